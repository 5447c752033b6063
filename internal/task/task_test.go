package task

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/dao"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/safe_close"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/scanner"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/local_fs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTask struct {
	name     string
	interval time.Duration
	startup  bool
	runs     atomic.Int32
	panicOn  int32
	ctxs     chan context.Context
}

func (t *countingTask) Name() string                { return t.name }
func (t *countingTask) LoopInterval() time.Duration { return t.interval }
func (t *countingTask) IsStartupRun() bool          { return t.startup }
func (t *countingTask) Run(ctx context.Context) error {
	n := t.runs.Add(1)
	if t.ctxs != nil {
		select {
		case t.ctxs <- ctx:
		default:
		}
	}
	if n == t.panicOn {
		panic("boom")
	}
	return errors.New("ignored")
}

func TestScheduler_StartupLoopAndStop(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)

	once := &countingTask{name: "once", startup: true}
	loop := &countingTask{name: "loop", interval: 10 * time.Millisecond, startup: true, panicOn: 2, ctxs: make(chan context.Context, 1)}
	s.AddTask(once)
	s.AddTask(loop)
	s.Start()

	require.Eventually(t, func() bool { return loop.runs.Load() >= 4 }, 2*time.Second, 5*time.Millisecond,
		"a panicking pass must not stop the loop")
	ctx := <-loop.ctxs

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())

	assert.EqualValues(t, 1, once.runs.Load())
	assert.Error(t, ctx.Err(), "task context is cancelled on close")
	stopped := loop.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, loop.runs.Load())
}

type fakeSchedules struct {
	service.ScheduleService
	due         []*domain.Schedule
	err         error
	reconciled  atomic.Int32
	missingOnly atomic.Bool // of the last Reconcile call
}

func (f *fakeSchedules) Due(context.Context, time.Time) ([]*domain.Schedule, error) {
	return f.due, f.err
}

func (f *fakeSchedules) Reconcile(_ context.Context, missingOnly bool) (int, error) {
	f.reconciled.Add(1)
	f.missingOnly.Store(missingOnly)
	return 1, nil
}

type fakeStarter struct {
	mu      sync.Mutex
	started []string
	busy    map[string]bool
	fail    map[string]error
}

func (f *fakeStarter) StartRun(_ context.Context, target service.RunTarget) (service.RunOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := target.Schedule.ID
	if id == "panic" {
		panic("starter exploded")
	}
	if err := f.fail[id]; err != nil {
		return service.RunOutcome{}, err
	}
	if f.busy[id] {
		return service.RunOutcome{Skipped: true}, nil
	}
	f.started = append(f.started, id)
	return service.RunOutcome{Record: &domain.RunRecord{ID: id + "_run"}}, nil
}

func TestScheduleLoopTask_StartsEveryDueSchedule(t *testing.T) {
	schedules := &fakeSchedules{due: []*domain.Schedule{
		{ID: "a", Name: "A"}, {ID: "panic"}, {ID: "busy"}, {ID: "broken"}, {ID: "b", Name: "B"},
	}}
	starter := &fakeStarter{
		busy: map[string]bool{"busy": true},
		fail: map[string]error{"broken": errors.New("pool full")},
	}
	task := NewScheduleLoopTask(schedules, starter, time.Minute, nil)

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, []string{"a", "b"}, starter.started)
	assert.Equal(t, "ScheduleLoop", task.Name())
	assert.Equal(t, time.Minute, task.LoopInterval())
	assert.True(t, task.IsStartupRun())
}

func TestScheduleLoopTask_DueError(t *testing.T) {
	task := NewScheduleLoopTask(&fakeSchedules{err: errors.New("db down")}, &fakeStarter{}, time.Minute, nil)
	assert.EqualError(t, task.Run(context.Background()), "db down")
}

func TestScheduleLoopTask_CancelledContextStartsNothing(t *testing.T) {
	starter := &fakeStarter{}
	task := NewScheduleLoopTask(&fakeSchedules{due: []*domain.Schedule{{ID: "a"}}}, starter, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, task.Run(ctx))
	assert.Empty(t, starter.started)
}

func TestScheduleReconcileTask(t *testing.T) {
	schedules := &fakeSchedules{}
	task := &ScheduleReconcileTask{schedules: schedules, logger: zap.NewNop()}
	require.NoError(t, task.Run(context.Background()))
	assert.EqualValues(t, 1, schedules.reconciled.Load())
	assert.True(t, schedules.missingOnly.Load(), "periodic pass leaves due schedules to the loop")
	assert.False(t, task.IsStartupRun())
}

func TestRecover_FailsLeftoverRunningRecords(t *testing.T) {
	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{
		Type:        "sqlite",
		Path:        filepath.Join(t.TempDir(), "db.sqlite3"),
		AutoMigrate: true,
	}, nil)
	require.NoError(t, err)
	d := dao.New(db, context.Background())
	history := dao.NewHistoryRepository(d, 10)
	schedules := &fakeSchedules{}

	ctx := context.Background()
	start := time.Now().Add(-time.Hour)
	require.NoError(t, history.Append(ctx, &domain.RunRecord{ID: "old", StartTime: start, Status: domain.RunRunning}))

	mirror, err := local_fs.NewClient(&local_fs.Config{SavePath: t.TempDir()})
	require.NoError(t, err)
	exec := service.NewRunExecutor(service.ExecutorConfig{NFSPath: t.TempDir()}, scanner.New(nil), mirror, history, schedules, nil, nil)

	require.NoError(t, Recover(ctx, exec, schedules, zap.NewNop()))

	recs, err := history.Query(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.RunFailed, recs[0].Status)
	assert.Equal(t, "interrupted by restart", recs[0].Error)
	assert.EqualValues(t, 1, schedules.reconciled.Load())
	assert.False(t, schedules.missingOnly.Load(), "restart moves past next run times forward")
}
