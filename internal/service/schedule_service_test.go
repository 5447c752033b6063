package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time         { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newScheduleFixture() (ScheduleService, *memScheduleRepo, *fixedClock) {
	clock := &fixedClock{t: time.Date(2024, 5, 10, 1, 0, 0, 0, time.Local)}
	repo := newMemScheduleRepo()
	return NewScheduleService(repo, zap.NewNop(), clock.now), repo, clock
}

func TestScheduleService_Create(t *testing.T) {
	svc, repo, clock := newScheduleFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: " daily ", Trigger: domain.IntervalTrigger(1440), Enabled: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.ID, "schedule_"))
	assert.Len(t, s.ID, len("schedule_")+8)
	assert.Equal(t, "daily", s.Name)
	require.NotNil(t, s.NextRunAt)
	assert.Equal(t, clock.t.Add(1440*time.Minute), *s.NextRunAt)

	cron, err := svc.Create(ctx, domain.ScheduleSpec{Name: "nightly", Trigger: domain.CronTrigger("0 2 * * *"), Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 2, 0, 0, 0, time.Local), *cron.NextRunAt)

	disabled, err := svc.Create(ctx, domain.ScheduleSpec{Name: "off", Trigger: domain.IntervalTrigger(5)})
	require.NoError(t, err)
	assert.Nil(t, disabled.NextRunAt)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Len(t, repo.items, 3)
}

func TestScheduleService_CreateRejectsInvalid(t *testing.T) {
	svc, repo, _ := newScheduleFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.ScheduleSpec{Name: "bad", Trigger: domain.CronTrigger("99 * * * *"), Enabled: true})
	assert.True(t, domain.IsValidationError(err))
	_, err = svc.Create(ctx, domain.ScheduleSpec{Name: "", Trigger: domain.IntervalTrigger(5)})
	assert.True(t, domain.IsValidationError(err))
	_, err = svc.Create(ctx, domain.ScheduleSpec{
		Name:    "both",
		Trigger: domain.IntervalTrigger(5),
		Filter:  domain.Filter{Mode: domain.FilterCategories, Categories: []string{"full"}, Extensions: []string{".vbk"}},
	})
	assert.True(t, domain.IsValidationError(err))
	assert.Empty(t, repo.items)
}

func TestScheduleService_ImpossibleCronIsDisabled(t *testing.T) {
	svc, _, _ := newScheduleFixture()

	s, err := svc.Create(context.Background(), domain.ScheduleSpec{Name: "feb30", Trigger: domain.CronTrigger("0 0 30 2 *"), Enabled: true})
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Nil(t, s.NextRunAt)
	assert.NotEmpty(t, s.TriggerError)

	due, err := svc.Due(context.Background(), time.Now().AddDate(10, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestScheduleService_UpdateAndDelete(t *testing.T) {
	svc, _, clock := newScheduleFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: "a", Trigger: domain.IntervalTrigger(60), Enabled: true})
	require.NoError(t, err)
	first := *s.NextRunAt

	clock.advance(10 * time.Minute)
	name := "renamed"
	s, err = svc.Update(ctx, s.ID, domain.SchedulePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", s.Name)
	assert.Equal(t, first, *s.NextRunAt, "rename keeps the next run")

	tr := domain.IntervalTrigger(30)
	s, err = svc.Update(ctx, s.ID, domain.SchedulePatch{Trigger: &tr})
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(30*time.Minute), *s.NextRunAt)

	off := false
	s, err = svc.Update(ctx, s.ID, domain.SchedulePatch{Enabled: &off})
	require.NoError(t, err)
	assert.Nil(t, s.NextRunAt)

	bad := domain.CronTrigger("61 * * * *")
	_, err = svc.Update(ctx, s.ID, domain.SchedulePatch{Trigger: &bad})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Update(ctx, "schedule_missing", domain.SchedulePatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)

	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.ErrorIs(t, svc.Delete(ctx, s.ID), domain.ErrScheduleNotFound)
	_, err = svc.Get(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestScheduleService_DueAndMarkRun(t *testing.T) {
	svc, _, clock := newScheduleFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: "a", Trigger: domain.IntervalTrigger(15), Enabled: true})
	require.NoError(t, err)

	due, err := svc.Due(ctx, clock.t.Add(14*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
	due, err = svc.Due(ctx, clock.t.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)

	done := clock.t.Add(20 * time.Minute)
	require.NoError(t, svc.MarkRun(ctx, s.ID, done))
	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, done, *got.LastRunAt)
	assert.Equal(t, done.Add(15*time.Minute), *got.NextRunAt)

	assert.NoError(t, svc.MarkRun(ctx, "schedule_deleted", done))
}

func TestScheduleService_Reconcile(t *testing.T) {
	svc, repo, clock := newScheduleFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: "a", Trigger: domain.IntervalTrigger(60), Enabled: true})
	require.NoError(t, err)
	fresh, err := svc.Create(ctx, domain.ScheduleSpec{Name: "b", Trigger: domain.IntervalTrigger(600), Enabled: true})
	require.NoError(t, err)

	// simulate a missing value and a downtime longer than the interval
	stored := repo.items[s.ID]
	stored.NextRunAt = nil
	repo.items[s.ID] = stored
	clock.advance(3 * time.Hour)

	n, err := svc.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := svc.Get(ctx, s.ID)
	assert.Equal(t, clock.t.Add(time.Hour), *got.NextRunAt)
	untouched, _ := svc.Get(ctx, fresh.ID)
	assert.Equal(t, *fresh.NextRunAt, *untouched.NextRunAt)

	// both past: only a restart pass moves them forward
	clock.advance(11 * time.Hour)
	n, err = svc.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = svc.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	due, err := svc.Due(ctx, clock.t)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestScheduleService_PeriodicReconcileKeepsDueSchedules(t *testing.T) {
	svc, _, clock := newScheduleFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: "hourly", Trigger: domain.IntervalTrigger(60), Enabled: true})
	require.NoError(t, err)

	// became due ten seconds ago; the loop has not picked it up yet
	clock.advance(60*time.Minute + 10*time.Second)
	due, err := svc.Due(ctx, clock.t)
	require.NoError(t, err)
	require.Len(t, due, 1)

	n, err := svc.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	due, err = svc.Due(ctx, clock.t)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, s.ID, due[0].ID)
}

// finishingRunRepo lets a run of the same schedule finish while an edit is
// between its read and its write.
type finishingRunRepo struct {
	*memScheduleRepo
	finish func()
}

func (r *finishingRunRepo) Mutate(ctx context.Context, id string, fn func(s *domain.Schedule) (bool, error)) (*domain.Schedule, error) {
	if f := r.finish; f != nil {
		r.finish = nil
		f()
	}
	return r.memScheduleRepo.Mutate(ctx, id, fn)
}

func TestScheduleService_UpdateKeepsConcurrentRunBookkeeping(t *testing.T) {
	clock := &fixedClock{t: time.Date(2024, 5, 10, 1, 0, 0, 0, time.Local)}
	repo := &finishingRunRepo{memScheduleRepo: newMemScheduleRepo()}
	svc := NewScheduleService(repo, zap.NewNop(), clock.now)
	ctx := context.Background()

	s, err := svc.Create(ctx, domain.ScheduleSpec{Name: "hourly", Trigger: domain.IntervalTrigger(60), Enabled: true})
	require.NoError(t, err)

	clock.advance(61 * time.Minute)
	done := clock.t
	repo.finish = func() {
		require.NoError(t, svc.MarkRun(ctx, s.ID, done))
	}

	name := "renamed"
	got, err := svc.Update(ctx, s.ID, domain.SchedulePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.NotNil(t, got.LastRunAt)
	assert.Equal(t, done, *got.LastRunAt)
	assert.Equal(t, done.Add(time.Hour), *got.NextRunAt)

	due, err := svc.Due(ctx, clock.t)
	require.NoError(t, err)
	assert.Empty(t, due, "the finished run must not be repeated")
}
