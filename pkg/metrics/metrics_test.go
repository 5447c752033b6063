package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGaugeFuncReplaces(t *testing.T) {
	SetGaugeFunc("test_gauge", "test gauge", func() float64 { return 1 })
	SetGaugeFunc("test_gauge", "test gauge", func() float64 { return 2 })

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "backup_scheduler_test_gauge 2"))
}

func TestCollectorsRegistered(t *testing.T) {
	RunsTotal.WithLabelValues("completed").Inc()
	FilesTotal.WithLabelValues(FileUploaded).Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `backup_scheduler_runs_total{status="completed"}`)
	assert.Contains(t, body, `backup_scheduler_files_total{result="uploaded"}`)
	assert.Contains(t, body, "go_goroutines")
}
