package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	pkglogger "github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/metrics"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/registry"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/scanner"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage"

	"github.com/juju/ratelimit"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// adHocKey is the exclusion key shared by every ad hoc run.
const adHocKey = ScheduleAdHoc

// Stop messages recorded on the run.
const (
	msgStopped         = "stopped by request"
	msgStoppedForced   = "stopped by request (forced)"
	msgInterrupted     = "interrupted by shutdown"
	msgRestartRecovery = "interrupted by restart"
)

// progressFlushInterval bounds how often a running record is written back.
const progressFlushInterval = 2 * time.Second

// StopMode 停止模式
type StopMode string

const (
	StopGraceful StopMode = "graceful"
	StopForce    StopMode = "force"
)

// ParseStopMode maps "" to StopGraceful.
func ParseStopMode(s string) (StopMode, error) {
	switch m := StopMode(s); m {
	case "":
		return StopGraceful, nil
	case StopGraceful, StopForce:
		return m, nil
	}
	return "", domain.NewValidationError("mode", fmt.Sprintf("unknown stop mode %q", s))
}

// ExecutorConfig 执行器配置
type ExecutorConfig struct {
	// NFSPath is the root every source directory is resolved against.
	NFSPath string
	// BackupDays skips files older than this many days; <= 0 disables the cutoff.
	BackupDays   int
	StorageClass string
	// UploadRetries is the number of retries after the first attempt.
	UploadRetries int
	RetryDelay    time.Duration
	MaxThreads    int
	// UploadRateLimit caps upload bandwidth in bytes per second; 0 is unlimited.
	UploadRateLimit int64
	// KeyPrefix is prepended to every object key.
	KeyPrefix string
	// VerifyETag also compares the local MD5 with a remote single-part ETag
	// before skipping an existing object. Multipart ETags fall back to size.
	VerifyETag bool
}

// RunTarget describes what a run backs up.
type RunTarget struct {
	// Schedule is nil for an ad hoc run.
	Schedule        *domain.Schedule
	Name            string
	Filter          domain.Filter
	SourceDirectory string
}

// ScheduleTarget builds the target of a scheduled run.
func ScheduleTarget(s *domain.Schedule) RunTarget {
	return RunTarget{
		Schedule:        s,
		Name:            s.Name,
		Filter:          s.Filter,
		SourceDirectory: s.SourceDirectory,
	}
}

// AdHocTarget builds the target of a manual run without a schedule.
func AdHocTarget(filter domain.Filter, sourceDirectory string) RunTarget {
	return RunTarget{Name: "Manual upload", Filter: filter, SourceDirectory: sourceDirectory}
}

func (t RunTarget) key() string {
	if t.Schedule == nil {
		return adHocKey
	}
	return t.Schedule.ID
}

// RunOutcome is the result of a synchronous run request. A skipped request
// carries no record.
type RunOutcome struct {
	Record  *domain.RunRecord
	Skipped bool
}

// Submitter runs fn in the background; *workerpool.Pool implements it.
type Submitter interface {
	SubmitAsync(ctx context.Context, fn func(context.Context) error) error
}

// RunExecutor executes backup runs, at most one per schedule at a time.
// RunExecutor 执行备份任务，同一计划同时最多一个
type RunExecutor struct {
	cfg       ExecutorConfig
	scanner   *scanner.Scanner
	uploader  storage.Uploader
	history   domain.HistoryRepository
	schedules ScheduleService
	logger    *zap.Logger
	now       Clock

	running *registry.Registry[string, *Run]
	bucket  *ratelimit.Bucket

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunExecutor 创建执行器
func NewRunExecutor(
	cfg ExecutorConfig,
	sc *scanner.Scanner,
	uploader storage.Uploader,
	history domain.HistoryRepository,
	schedules ScheduleService,
	logger *zap.Logger,
	clock Clock,
) *RunExecutor {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = 1
	}
	if cfg.UploadRetries < 0 {
		cfg.UploadRetries = 0
	}
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &RunExecutor{
		cfg:       cfg,
		scanner:   sc,
		uploader:  uploader,
		history:   history,
		schedules: schedules,
		logger:    logger,
		now:       clock,
		running:   registry.New[string, *Run](),
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.UploadRateLimit > 0 {
		e.bucket = ratelimit.NewBucketWithRate(float64(cfg.UploadRateLimit), cfg.UploadRateLimit)
	}
	return e
}

// Begin claims the target's exclusion key and appends a running record.
// It returns skipped = true without a run when the key is already held.
func (e *RunExecutor) Begin(ctx context.Context, target RunTarget) (*Run, bool, error) {
	if e.ctx.Err() != nil {
		return nil, false, errors.New("executor is shut down")
	}

	key := target.key()
	ctxRun, cancel := context.WithCancel(e.ctx)
	r := &Run{
		exec:   e,
		key:    key,
		target: target,
		ctx:    ctxRun,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	start := e.now()
	r.record = domain.RunRecord{
		ID:           NewRunID(scheduleIDOf(target), start),
		ScheduleID:   scheduleIDOf(target),
		ScheduleName: target.Name,
		StartTime:    start,
		Status:       domain.RunRunning,
	}
	r.lastFlush = start
	rec := r.record

	e.wg.Add(1)
	if err := e.running.Register(key, r); err != nil {
		e.wg.Done()
		cancel()
		metrics.RunsSkippedTotal.Inc()
		e.logger.Info("run skipped, already running",
			zap.String(pkglogger.FieldScheduleID, key), zap.String(pkglogger.FieldScheduleName, target.Name))
		return nil, true, nil
	}

	if err := e.history.Append(ctx, &rec); err != nil {
		e.running.UnregisterIf(key, func(v *Run) bool { return v == r })
		e.wg.Done()
		cancel()
		return nil, false, err
	}

	metrics.RunsInFlight.Inc()
	return r, false, nil
}

// Run executes target synchronously.
func (e *RunExecutor) Run(ctx context.Context, target RunTarget) (RunOutcome, error) {
	r, skipped, err := e.Begin(ctx, target)
	if err != nil || skipped {
		return RunOutcome{Skipped: skipped}, err
	}
	rec := r.Execute()
	return RunOutcome{Record: rec}, nil
}

// Start begins a run and hands its execution to pool. The returned record is
// the running snapshot.
func (e *RunExecutor) Start(ctx context.Context, target RunTarget, pool Submitter) (RunOutcome, error) {
	r, skipped, err := e.Begin(ctx, target)
	if err != nil || skipped {
		return RunOutcome{Skipped: skipped}, err
	}
	snapshot := r.Snapshot()
	err = pool.SubmitAsync(context.Background(), func(context.Context) error {
		r.Execute()
		return nil
	})
	if err != nil {
		r.Abort(err)
		return RunOutcome{}, err
	}
	return RunOutcome{Record: &snapshot}, nil
}

// Stop asks the run holding key to stop. key is a schedule id or "adhoc".
func (e *RunExecutor) Stop(key string, mode StopMode) error {
	r, ok := e.running.Get(key)
	if !ok {
		return domain.ErrRunNotFound
	}
	r.Stop(mode)
	return nil
}

// IsRunning reports whether a run holds key.
func (e *RunExecutor) IsRunning(key string) bool {
	return e.running.Exists(key)
}

// Running returns snapshots of every executing run.
func (e *RunExecutor) Running() []domain.RunRecord {
	out := make([]domain.RunRecord, 0, e.running.Length())
	for _, key := range registry.Keys(e.running) {
		if r, ok := e.running.Get(key); ok {
			out = append(out, r.Snapshot())
		}
	}
	return out
}

// Shutdown force-stops every run and waits for them to finalize.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scheduleIDOf(t RunTarget) string {
	if t.Schedule == nil {
		return ""
	}
	return t.Schedule.ID
}

// Run is one claimed execution. It is finalized exactly once, by Execute
// or Abort.
type Run struct {
	exec   *RunExecutor
	key    string
	target RunTarget

	mu        sync.Mutex
	record    domain.RunRecord
	lastFlush time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	graceful atomic.Bool
	forced   atomic.Bool
	final    sync.Once
	done     chan struct{}
}

// Snapshot returns a copy of the record.
func (r *Run) Snapshot() domain.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record
}

// Done is closed once the record is final.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Stop requests a graceful or forced stop.
func (r *Run) Stop(mode StopMode) {
	r.graceful.Store(true)
	if mode == StopForce {
		r.forced.Store(true)
		r.cancel()
	}
	r.exec.logger.Info("stop requested",
		zap.String(pkglogger.FieldRunID, r.Snapshot().ID), zap.String("mode", string(mode)))
}

// Abort finalizes a run that never executed.
func (r *Run) Abort(cause error) {
	r.finalize(domain.RunFailed, cause.Error())
}

// Execute performs the run and returns the final record.
func (r *Run) Execute() *domain.RunRecord {
	e := r.exec
	lg := e.logger.With(
		zap.String(pkglogger.FieldRunID, r.record.ID),
		zap.String(pkglogger.FieldScheduleID, r.key),
		zap.String(pkglogger.FieldScheduleName, r.target.Name),
	)
	r.markStarted()
	lg.Info("backup run started")

	root, err := r.checkEnvironment()
	if err != nil {
		lg.Error("backup run aborted", zap.Error(err))
		r.finalize(domain.RunFailed, r.stopMessage(err.Error()))
		return r.result()
	}

	files, err := r.listFiles(root)
	if err != nil {
		lg.Error("backup run aborted", zap.Error(err))
		r.finalize(domain.RunFailed, r.stopMessage(err.Error()))
		return r.result()
	}
	lg.Info("files listed", zap.Int("candidates", len(files)))

	r.uploadAll(files, lg)

	status, msg := domain.RunCompleted, ""
	switch {
	case r.forced.Load():
		status, msg = domain.RunFailed, msgStoppedForced
	case r.ctx.Err() != nil:
		status, msg = domain.RunFailed, msgInterrupted
	case r.graceful.Load():
		msg = msgStopped
	}
	r.finalize(status, msg)

	final := r.result()
	lg.Info("backup run finished",
		zap.String("status", string(final.Status)),
		zap.String("summary", final.Summary()),
		zap.Duration(pkglogger.FieldDuration, final.Duration))
	return final
}

// markStarted restamps the start time when execution actually begins. A run
// waiting in the pool shows as running from Begin, but its duration covers
// only the execution.
func (r *Run) markStarted() {
	now := r.exec.now()
	r.mu.Lock()
	r.record.StartTime = now
	r.lastFlush = now
	rec := r.record
	r.mu.Unlock()

	if err := r.exec.history.Update(context.Background(), &rec); err != nil {
		r.exec.logger.Warn("write run start failed", zap.String(pkglogger.FieldRunID, rec.ID), zap.Error(err))
	}
}

func (r *Run) result() *domain.RunRecord {
	rec := r.Snapshot()
	return &rec
}

// stopMessage prefers the stop reason over a cancellation error.
func (r *Run) stopMessage(fallback string) string {
	switch {
	case r.forced.Load():
		return msgStoppedForced
	case r.ctx.Err() != nil:
		return msgInterrupted
	}
	return fallback
}

// checkEnvironment resolves the source directory and verifies that it is a
// readable directory and that storage answers.
func (r *Run) checkEnvironment() (string, error) {
	e := r.exec
	root := e.cfg.NFSPath
	if src := r.target.SourceDirectory; src != "" {
		root = filepath.Join(root, filepath.Clean(string(filepath.Separator)+src))
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", &domain.CollaboratorError{Op: "nfs", Err: err}
	}
	if !info.IsDir() {
		return "", &domain.CollaboratorError{Op: "nfs", Err: errors.Errorf("%s is not a directory", root)}
	}
	f, err := os.Open(root)
	if err != nil {
		return "", &domain.CollaboratorError{Op: "nfs", Err: err}
	}
	_, err = f.Readdirnames(1)
	f.Close()
	if err != nil && err != io.EOF {
		return "", &domain.CollaboratorError{Op: "nfs", Err: err}
	}

	if err := e.uploader.Ping(r.ctx); err != nil {
		return "", &domain.CollaboratorError{Op: "storage", Err: err}
	}
	return root, nil
}

type candidate struct {
	entry scanner.FileEntry
	key   string
}

// listFiles consumes the whole listing before any upload so a listing
// failure aborts the run with nothing attempted.
func (r *Run) listFiles(root string) ([]candidate, error) {
	e := r.exec
	req := scanner.ListRequest{
		Root:       root,
		Categories: r.target.Filter.Categories,
		Extensions: r.target.Filter.Extensions,
	}
	if e.cfg.BackupDays > 0 {
		req.MinModTime = e.now().AddDate(0, 0, -e.cfg.BackupDays)
	}

	var out []candidate
	total, expired := 0, 0
	for entry, err := range e.scanner.List(r.ctx, req) {
		if err != nil {
			return nil, &domain.CollaboratorError{Op: "list files", Err: err}
		}
		total++
		if entry.Expired {
			expired++
			continue
		}
		out = append(out, candidate{entry: entry, key: scanner.NormalizeKey(e.cfg.KeyPrefix, entry.Tag, entry.RelPath)})
	}
	metrics.FilesTotal.WithLabelValues(metrics.FileSkippedTime).Add(float64(expired))

	r.update(func(rec *domain.RunRecord) {
		rec.TotalFiles = total
		rec.SkippedTime = expired
	})
	return out, nil
}

// uploadAll dispatches files in listing order to at most MaxThreads workers.
func (r *Run) uploadAll(files []candidate, lg *zap.Logger) {
	var g errgroup.Group
	g.SetLimit(r.exec.cfg.MaxThreads)

	for i, f := range files {
		if r.stopping() {
			r.update(func(rec *domain.RunRecord) { rec.NotAttempted += len(files) - i })
			break
		}
		g.Go(func() error {
			r.processFile(f, lg)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Run) stopping() bool {
	return r.graceful.Load() || r.ctx.Err() != nil
}

// processFile never fails the run; every outcome is counted.
func (r *Run) processFile(f candidate, lg *zap.Logger) {
	if r.stopping() {
		r.update(func(rec *domain.RunRecord) { rec.NotAttempted++ })
		return
	}
	e := r.exec
	lg = lg.With(zap.String(pkglogger.FieldPath, f.entry.RelPath), zap.String(pkglogger.FieldFileKey, f.key))

	info, err := e.uploader.Stat(r.ctx, f.key)
	if err != nil {
		lg.Warn("existence check failed, uploading anyway", zap.Error(err))
	} else if info != nil && r.sameObject(f, info, lg) {
		metrics.FilesTotal.WithLabelValues(metrics.FileSkippedExisting).Inc()
		r.update(func(rec *domain.RunRecord) { rec.SkippedExisting++ })
		return
	}

	sent, err := r.uploadWithRetry(f, lg)
	switch {
	case err == nil:
		metrics.FilesTotal.WithLabelValues(metrics.FileUploaded).Inc()
		metrics.UploadedBytesTotal.Add(float64(sent))
		r.update(func(rec *domain.RunRecord) {
			rec.FilesProcessed++
			rec.FilesUploaded++
			rec.UploadedSize += sent
		})
	case r.ctx.Err() != nil:
		r.update(func(rec *domain.RunRecord) { rec.NotAttempted++ })
	default:
		metrics.FilesTotal.WithLabelValues(metrics.FileFailed).Inc()
		lg.Error("upload failed", zap.Error(err))
		r.update(func(rec *domain.RunRecord) {
			rec.FilesProcessed++
			rec.FilesFailed++
		})
	}
}

// sameObject reports whether the remote object already holds f. Sizes must
// match; with VerifyETag a plain MD5 ETag must match the local content too.
func (r *Run) sameObject(f candidate, info *storage.ObjectInfo, lg *zap.Logger) bool {
	if info.Size != f.entry.Size {
		return false
	}
	etag := strings.ToLower(strings.Trim(info.ETag, `"`))
	if !r.exec.cfg.VerifyETag || !md5ETag.MatchString(etag) {
		return true
	}
	sum, err := fileMD5(f.entry.Path)
	if err != nil {
		lg.Warn("local checksum failed, uploading anyway", zap.Error(err))
		return false
	}
	return sum == etag
}

// md5ETag matches ETags of single-part uploads; multipart ones carry a
// "-<parts>" suffix.
var md5ETag = regexp.MustCompile(`^[0-9a-f]{32}$`)

func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// uploadWithRetry makes 1 + UploadRetries attempts with a fixed delay.
func (r *Run) uploadWithRetry(f candidate, lg *zap.Logger) (int64, error) {
	e := r.exec
	attempts := e.cfg.UploadRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(e.cfg.RetryDelay)
			select {
			case <-r.ctx.Done():
				timer.Stop()
				return 0, r.ctx.Err()
			case <-timer.C:
			}
		}

		sent, err := r.uploadOnce(f)
		if err == nil {
			lg.Debug("file uploaded", zap.Int64(pkglogger.FieldSize, sent), zap.Int(pkglogger.FieldAttempt, attempt))
			return sent, nil
		}
		if r.ctx.Err() != nil {
			return 0, r.ctx.Err()
		}
		lastErr = err
		lg.Warn("upload attempt failed", zap.Int(pkglogger.FieldAttempt, attempt), zap.Error(err))
	}
	return 0, errors.Wrapf(lastErr, "after %d attempts", attempts)
}

func (r *Run) uploadOnce(f candidate) (int64, error) {
	e := r.exec
	file, err := os.Open(f.entry.Path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var body io.Reader = file
	if e.bucket != nil {
		body = ratelimit.Reader(file, e.bucket)
	}
	res, err := e.uploader.Upload(r.ctx, storage.UploadInput{
		Key:          f.key,
		Body:         body,
		Size:         f.entry.Size,
		ModTime:      f.entry.ModTime,
		StorageClass: e.cfg.StorageClass,
	})
	if err != nil {
		return 0, err
	}
	if res.BytesSent > 0 {
		return res.BytesSent, nil
	}
	return f.entry.Size, nil
}

// update mutates the record under the lock and periodically writes it back
// so pollers see progress.
func (r *Run) update(fn func(rec *domain.RunRecord)) {
	r.mu.Lock()
	fn(&r.record)
	now := r.exec.now()
	if now.Sub(r.lastFlush) < progressFlushInterval {
		r.mu.Unlock()
		return
	}
	r.lastFlush = now
	rec := r.record
	r.mu.Unlock()

	if err := r.exec.history.Update(context.Background(), &rec); err != nil {
		r.exec.logger.Warn("progress update failed", zap.String(pkglogger.FieldRunID, rec.ID), zap.Error(err))
	}
}

// finalize writes the final record, advances the schedule and releases the
// exclusion key. Only the first call has an effect.
func (r *Run) finalize(status domain.RunStatus, msg string) {
	r.final.Do(func() {
		e := r.exec
		defer func() {
			e.running.UnregisterIf(r.key, func(v *Run) bool { return v == r })
			r.cancel()
			metrics.RunsInFlight.Dec()
			e.wg.Done()
			close(r.done)
		}()

		end := e.now()
		r.mu.Lock()
		r.record.Error = msg
		r.record.Finish(status, end)
		rec := r.record
		r.mu.Unlock()

		ctx := context.Background()
		if err := e.history.Update(ctx, &rec); err != nil {
			e.logger.Error("write run record failed", zap.String(pkglogger.FieldRunID, rec.ID), zap.Error(err))
		}
		if rec.ScheduleID != "" && e.schedules != nil {
			if err := e.schedules.MarkRun(ctx, rec.ScheduleID, end); err != nil {
				e.logger.Error("advance schedule failed", zap.String(pkglogger.FieldScheduleID, rec.ScheduleID), zap.Error(err))
			}
		}
		metrics.RunsTotal.WithLabelValues(string(status)).Inc()
		metrics.RunDurationSeconds.Observe(rec.Duration.Seconds())
	})
}

// RecoverInterrupted finalizes records left running by a previous process.
func (e *RunExecutor) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := e.history.FailRunning(ctx, msgRestartRecovery, e.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Warn("interrupted runs recovered", zap.Int64("count", n))
	}
	return n, nil
}
