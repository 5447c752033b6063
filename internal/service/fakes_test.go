package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage"
)

type memScheduleRepo struct {
	mu    sync.Mutex
	items map[string]domain.Schedule
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{items: map[string]domain.Schedule{}}
}

func (m *memScheduleRepo) Create(_ context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *memScheduleRepo) Get(_ context.Context, id string) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memScheduleRepo) List(_ context.Context) ([]*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Schedule, 0, len(m.items))
	for _, s := range m.items {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memScheduleRepo) Mutate(_ context.Context, id string, fn func(s *domain.Schedule) (bool, error)) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	write, err := fn(&cur)
	if err != nil {
		return nil, err
	}
	if write {
		m.items[id] = cur
	}
	return &cur, nil
}

func (m *memScheduleRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

type memHistoryRepo struct {
	mu       sync.Mutex
	records  []domain.RunRecord // append order
	capacity int
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{capacity: 100}
}

func (m *memHistoryRepo) Append(_ context.Context, r *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	for excess := len(m.records) - m.capacity; excess > 0; excess-- {
		idx := -1
		for i, rec := range m.records {
			if rec.Status != domain.RunRunning {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		m.records = append(m.records[:idx], m.records[idx+1:]...)
	}
	return nil
}

func (m *memHistoryRepo) Update(_ context.Context, r *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == r.ID {
			m.records[i] = *r
			return nil
		}
	}
	return domain.ErrRunNotFound
}

func (m *memHistoryRepo) Query(_ context.Context, f domain.HistoryFilter) ([]*domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.RunRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		switch {
		case f.AdHocOnly && rec.ScheduleID != "":
			continue
		case f.ScheduleID != "" && rec.ScheduleID != f.ScheduleID:
			continue
		case f.Since != nil && rec.StartTime.Before(*f.Since):
			continue
		}
		out = append(out, &rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memHistoryRepo) ClearFinished(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var n int64
	for _, rec := range m.records {
		if rec.Status == domain.RunRunning {
			kept = append(kept, rec)
			continue
		}
		n++
	}
	m.records = kept
	return n, nil
}

func (m *memHistoryRepo) FailRunning(_ context.Context, msg string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.records {
		if m.records[i].Status == domain.RunRunning {
			m.records[i].Error = msg
			m.records[i].Finish(domain.RunFailed, at)
			n++
		}
	}
	return n, nil
}

func (m *memHistoryRepo) running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.Status == domain.RunRunning {
			n++
		}
	}
	return n
}

func (m *memHistoryRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeUploader records attempts. fail decides per key whether an attempt
// fails; block, when set, is waited on before each upload.
type fakeUploader struct {
	mu       sync.Mutex
	attempts map[string]int
	order    []string
	remote   map[string]int64
	etags    map[string]string
	fail     func(key string) error
	pingErr  error
	block    chan struct{}
	started  chan string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{attempts: map[string]int{}, remote: map[string]int64{}, etags: map[string]string{}}
}

func (f *fakeUploader) Name() string { return "fake" }

func (f *fakeUploader) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.pingErr
}

func (f *fakeUploader) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.remote[key]
	if !ok {
		return nil, nil
	}
	return &storage.ObjectInfo{Key: key, Size: size, ETag: f.etags[key]}, nil
}

func (f *fakeUploader) Upload(ctx context.Context, in storage.UploadInput) (storage.UploadResult, error) {
	f.mu.Lock()
	f.attempts[in.Key]++
	if f.attempts[in.Key] == 1 {
		f.order = append(f.order, in.Key)
	}
	fail := f.fail
	f.mu.Unlock()

	if f.started != nil {
		f.started <- in.Key
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return storage.UploadResult{}, ctx.Err()
		}
	}
	if fail != nil {
		if err := fail(in.Key); err != nil {
			return storage.UploadResult{}, err
		}
	}
	n, err := discard(in.Body)
	if err != nil {
		return storage.UploadResult{}, err
	}
	f.mu.Lock()
	f.remote[in.Key] = n
	f.mu.Unlock()
	return storage.UploadResult{Key: in.Key, BytesSent: n}, nil
}

func (f *fakeUploader) attemptsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[key]
}

func (f *fakeUploader) uploadOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}
