package routers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dao"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	binding.Validator = validator.NewCustomValidator()
}

type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	app    *app.App
	nfs    string
	mirror string
	token  string
}

func newTestServer(t *testing.T, extra string) *testServer {
	t.Helper()
	dir := t.TempDir()
	nfs := filepath.Join(dir, "nfs")
	mirror := filepath.Join(dir, "mirror")
	require.NoError(t, os.MkdirAll(filepath.Join(nfs, "jobs"), 0o755))

	raw := `
database:
  path: ` + filepath.Join(dir, "db.sqlite3") + `
backup:
  nfs-path: ` + nfs + `
  retry-delay: 10ms
storage:
  type: local
  save-path: ` + mirror + `
` + extra
	cfg, err := app.ParseConfig([]byte(raw))
	require.NoError(t, err)

	db, err := dao.NewDBEngineWithConfig(cfg.GetDatabaseConfig(), nil)
	require.NoError(t, err)

	a, err := app.NewApp(context.Background(), cfg, zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	return &testServer{t: t, engine: NewRouter(a, nil), app: a, nfs: nfs, mirror: mirror}
}

func (s *testServer) do(method, path, body string) envelope {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (s *testServer) writeFile(rel string, size int) {
	s.t.Helper()
	require.NoError(s.t, os.WriteFile(filepath.Join(s.nfs, rel), make([]byte, size), 0o644))
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	s.writeFile("jobs/a.vbk", 128)
	s.writeFile("jobs/b.vib", 64)
	s.writeFile("jobs/c.txt", 32)

	env := s.do(http.MethodPost, "/api/scheduler/schedules",
		`{"name":"Nightly","type":"interval","intervalMinutes":60,"categories":["full"],"sourceDirectory":"jobs"}`)
	require.Equal(t, 1, env.Code, env.Message)
	created := decode[map[string]any](t, env.Data)
	id := created["id"].(string)
	assert.Equal(t, "Nightly", created["name"])
	assert.Equal(t, true, created["enabled"])
	assert.NotNil(t, created["nextRunAt"])

	env = s.do(http.MethodGet, "/api/scheduler/schedules", "")
	list := decode[struct {
		List  []map[string]any `json:"list"`
		Total int              `json:"total"`
	}](t, env.Data)
	assert.Equal(t, 1, list.Total)

	env = s.do(http.MethodPut, "/api/scheduler/schedules/"+id, `{"name":"Nightly full"}`)
	require.Equal(t, 1, env.Code, env.Message)
	assert.Equal(t, "Nightly full", decode[map[string]any](t, env.Data)["name"])

	env = s.do(http.MethodPost, "/api/scheduler/run/"+id, `{"wait":true}`)
	require.Equal(t, 200, env.Code, env.Message)
	started := decode[struct {
		Skipped bool           `json:"skipped"`
		Record  map[string]any `json:"record"`
	}](t, env.Data)
	assert.False(t, started.Skipped)
	assert.Equal(t, "completed", started.Record["status"])
	assert.EqualValues(t, 1, started.Record["filesUploaded"])
	assert.Equal(t, id, started.Record["scheduleId"])
	assert.FileExists(t, filepath.Join(s.mirror, "full", "a.vbk"))

	env = s.do(http.MethodGet, "/api/scheduler/schedules/"+id, "")
	detail := decode[map[string]any](t, env.Data)
	stats := detail["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalRuns"])
	assert.EqualValues(t, 100, stats["successRate"])

	env = s.do(http.MethodGet, "/api/scheduler/history?schedule="+id, "")
	hist := decode[struct {
		Total int `json:"total"`
	}](t, env.Data)
	assert.Equal(t, 1, hist.Total)

	env = s.do(http.MethodGet, "/api/scheduler/history?schedule=adhoc", "")
	assert.Equal(t, 0, decode[struct {
		Total int `json:"total"`
	}](t, env.Data).Total)

	env = s.do(http.MethodDelete, "/api/scheduler/schedules/"+id, "")
	require.Equal(t, 1, env.Code)
	env = s.do(http.MethodGet, "/api/scheduler/schedules/"+id, "")
	assert.Equal(t, 2001, env.Code)

	// stats outlive the schedule
	env = s.do(http.MethodGet, "/api/scheduler/stats/"+id, "")
	require.Equal(t, 1, env.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, env.Data)["totalRuns"])

	env = s.do(http.MethodGet, "/api/scheduler/stats", "")
	global := decode[map[string]any](t, env.Data)
	assert.EqualValues(t, 0, global["totalSchedules"])
	assert.EqualValues(t, 1, global["totalRuns"])
}

func TestCreateSchedule_Rejected(t *testing.T) {
	s := newTestServer(t, "")

	cases := map[string]string{
		"unknown type":      `{"name":"x","type":"weekly","intervalMinutes":5}`,
		"missing name":      `{"type":"interval","intervalMinutes":5}`,
		"bad cron":          `{"name":"x","type":"cron","cronExpression":"0 0 2 * * *"}`,
		"escaping source":   `{"name":"x","type":"interval","intervalMinutes":5,"sourceDirectory":"../etc"}`,
		"both filter lists": `{"name":"x","type":"interval","intervalMinutes":5,"categories":["full"],"extensions":[".vbk"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			env := s.do(http.MethodPost, "/api/scheduler/schedules", body)
			assert.Equal(t, 400, env.Code, env.Message)
			assert.False(t, env.Status)
		})
	}

	env := s.do(http.MethodGet, "/api/scheduler/schedules", "")
	assert.Equal(t, 0, decode[struct {
		Total int `json:"total"`
	}](t, env.Data).Total)
}

func TestImpossibleCronIsStoredDisabled(t *testing.T) {
	s := newTestServer(t, "")
	env := s.do(http.MethodPost, "/api/scheduler/schedules", `{"name":"never","type":"cron","cronExpression":"0 0 30 2 *"}`)
	require.Equal(t, 1, env.Code, env.Message)
	got := decode[map[string]any](t, env.Data)
	assert.Equal(t, false, got["enabled"])
	assert.Nil(t, got["nextRunAt"])
	assert.NotEmpty(t, got["triggerError"])
}

func TestAdHocRunAndStop(t *testing.T) {
	s := newTestServer(t, "")
	s.writeFile("jobs/x.vbk", 16)

	env := s.do(http.MethodPost, "/api/scheduler/run", `{"extensions":["vbk"],"wait":true}`)
	require.Equal(t, 200, env.Code, env.Message)
	rec := decode[struct {
		Record map[string]any `json:"record"`
	}](t, env.Data).Record
	assert.Nil(t, rec["scheduleId"])
	assert.Equal(t, true, rec["isAdHoc"])

	env = s.do(http.MethodGet, "/api/scheduler/history?schedule=adhoc&period=today", "")
	assert.Equal(t, 1, decode[struct {
		Total int `json:"total"`
	}](t, env.Data).Total)

	env = s.do(http.MethodPost, "/api/scheduler/run/adhoc/stop", "")
	assert.Equal(t, 2004, env.Code)
	env = s.do(http.MethodPost, "/api/scheduler/run/missing/stop", `{"mode":"force"}`)
	assert.Equal(t, 2001, env.Code)
	env = s.do(http.MethodPost, "/api/scheduler/run/adhoc/stop", `{"mode":"later"}`)
	assert.Equal(t, 400, env.Code)
	env = s.do(http.MethodPost, "/api/scheduler/run/missing", "")
	assert.Equal(t, 2001, env.Code)
}

func TestHistoryAndDebugLogs(t *testing.T) {
	s := newTestServer(t, "")

	env := s.do(http.MethodGet, "/api/scheduler/history?period=decade", "")
	assert.Equal(t, 400, env.Code)

	env = s.do(http.MethodDelete, "/api/scheduler/history", "")
	require.Equal(t, 1, env.Code)

	s.app.Logger().Warn("disk almost full")
	env = s.do(http.MethodGet, "/api/scheduler/debug_logs?level=WARNING&limit=10", "")
	require.Equal(t, 1, env.Code, env.Message)
	logs := decode[struct {
		Entries []map[string]any `json:"entries"`
		Total   int              `json:"total"`
	}](t, env.Data)
	require.NotZero(t, logs.Total)
	assert.Equal(t, "disk almost full", logs.Entries[logs.Total-1]["message"])

	env = s.do(http.MethodGet, "/api/scheduler/debug_logs?level=loud", "")
	assert.Equal(t, 400, env.Code)

	env = s.do(http.MethodDelete, "/api/scheduler/debug_logs", "")
	require.Equal(t, 1, env.Code)
	assert.NotZero(t, decode[map[string]any](t, env.Data)["cleared"])
}

func TestAuthTokenAndHealth(t *testing.T) {
	s := newTestServer(t, "app:\n  auth-token: secret\n")

	env := s.do(http.MethodGet, "/api/scheduler/schedules", "")
	assert.Equal(t, 401, env.Code)

	s.token = "secret"
	env = s.do(http.MethodGet, "/api/scheduler/schedules", "")
	assert.Equal(t, 1, env.Code)

	s.token = ""
	env = s.do(http.MethodGet, "/api/health", "")
	require.Equal(t, 1, env.Code, string(env.Data))
	health := decode[map[string]any](t, env.Data)
	assert.Equal(t, "ok", health["status"])
	assert.NotNil(t, health["disk"])

	env = s.do(http.MethodGet, "/api/version", "")
	assert.Equal(t, app.Version, decode[map[string]any](t, env.Data)["version"])

	env = s.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, 404, env.Code)
}

func TestPrivateRouter(t *testing.T) {
	r := NewPrivateRouterWithLogger("debug", zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	NewPrivateRouterWithLogger("release", zap.NewNop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
