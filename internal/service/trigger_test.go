package service

import (
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

func TestNextRunAfter_Interval(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("interval adds exactly m minutes", prop.ForAll(
		func(m int, offset int64) bool {
			from := base.Add(time.Duration(offset) * time.Second)
			next, err := NextRunAfter(domain.IntervalTrigger(m), from)
			return err == nil && next.Equal(from.Add(time.Duration(m)*time.Minute))
		},
		gen.IntRange(1, 525600),
		gen.Int64Range(0, 10*365*24*3600),
	))

	properties.TestingRun(t)
}

func TestNextRunAfter_Cron(t *testing.T) {
	exprs := []string{
		"0 2 * * *",
		"*/15 * * * *",
		"30 8-18 * * mon-fri",
		"0 0 1 * *",
		"5,35 */3 * jan,jul *",
	}
	properties := gopter.NewProperties(nil)

	properties.Property("next run is strictly after and matches the pattern", prop.ForAll(
		func(idx int, offset int64) bool {
			expr := exprs[idx]
			from := base.Add(time.Duration(offset) * time.Second)
			next, err := NextRunAfter(domain.CronTrigger(expr), from)
			if err != nil || !next.After(from) || next.Second() != 0 {
				return false
			}
			sched, _ := domain.CronParser.Parse(expr)
			// the minute before next must map to next as well
			return sched.Next(next.Add(-time.Minute)).Equal(next)
		},
		gen.IntRange(0, len(exprs)-1),
		gen.Int64Range(0, 3*365*24*3600),
	))

	properties.TestingRun(t)
}

func TestNextRunAfter_DailyAtTwo(t *testing.T) {
	tr := domain.CronTrigger("0 2 * * *")
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)

	next, err := NextRunAfter(tr, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day.Add(2*time.Hour), next)

	next, err = NextRunAfter(tr, day.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day.AddDate(0, 0, 1).Add(2*time.Hour), next)
}

func TestNextRunAfter_Errors(t *testing.T) {
	_, err := NextRunAfter(domain.CronTrigger("99 * * * *"), base)
	assert.True(t, domain.IsValidationError(err))

	_, err = NextRunAfter(domain.CronTrigger("0 0 30 2 *"), base)
	assert.True(t, domain.IsTriggerError(err))
}

func TestIsDue(t *testing.T) {
	now := base.Add(time.Hour)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	assert.True(t, IsDue(&domain.Schedule{Enabled: true, NextRunAt: &past}, now))
	assert.True(t, IsDue(&domain.Schedule{Enabled: true, NextRunAt: &now}, now))
	assert.False(t, IsDue(&domain.Schedule{Enabled: true, NextRunAt: &future}, now))
	assert.False(t, IsDue(&domain.Schedule{Enabled: false, NextRunAt: &past}, now))
	assert.False(t, IsDue(&domain.Schedule{Enabled: true}, now))
	assert.False(t, IsDue(nil, now))
}
