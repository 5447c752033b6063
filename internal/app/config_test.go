package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig([]byte("storage:\n  bucket-name: backups\n"))
	require.NoError(t, err)

	assert.Equal(t, "/mnt/backups", c.Backup.NFSPath)
	assert.Equal(t, 7, c.Backup.BackupDays)
	assert.Equal(t, 3, c.Backup.UploadRetries)
	assert.Equal(t, 5, c.Backup.MaxThreads)
	assert.Equal(t, "full", c.Backup.ExtTagMap[".vbk"])
	assert.Equal(t, "s3", c.Storage.Type)
	assert.Equal(t, "us-east-1", c.Storage.Region)
	assert.Equal(t, 100, c.Scheduler.HistoryLimit)
	assert.Equal(t, 30*time.Second, c.GetTickInterval())

	ec := c.GetExecutorConfig()
	assert.Equal(t, 5*time.Second, ec.RetryDelay)
	assert.Equal(t, "STANDARD", ec.StorageClass)
	assert.True(t, ec.VerifyETag)
}

func TestParseConfig_Overrides(t *testing.T) {
	raw := `
backup:
  nfs-path: /srv/nfs
  retry-delay: 1m
  storage-class: standard_ia
  upload-rate-limit: 10MB
  size-only-check: true
  ext-tag-map:
    .bak: dumps
storage:
  type: local
  save-path: /tmp/mirror
  custom-path: veeam
scheduler:
  tick-interval: 200ms
`
	c, err := ParseConfig([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{".bak": "dumps"}, c.Backup.ExtTagMap)
	assert.Equal(t, time.Second, c.GetTickInterval())

	ec := c.GetExecutorConfig()
	assert.Equal(t, "/srv/nfs", ec.NFSPath)
	assert.Equal(t, time.Minute, ec.RetryDelay)
	assert.Equal(t, "STANDARD_IA", ec.StorageClass)
	assert.Equal(t, "veeam", ec.KeyPrefix)
	assert.EqualValues(t, 10<<20, ec.UploadRateLimit)
	assert.False(t, ec.VerifyETag)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown storage":  "storage:\n  type: ftp\n",
		"missing bucket":   "storage:\n  type: s3\n",
		"bad retry delay":  "storage:\n  type: local\nbackup:\n  retry-delay: soon\n",
		"negative retries": "storage:\n  type: local\nbackup:\n  upload-retries: -1\n",
		"broken yaml":      "storage: [",
		"bad rate limit":   "storage:\n  type: local\nbackup:\n  upload-rate-limit: fast\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: local\n"), 0644))

	c, real, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, real)

	c.Backup.MaxThreads = 9
	require.NoError(t, c.Save())

	again, _, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, again.Backup.MaxThreads)
	assert.Equal(t, "local", again.Storage.Type)
}
