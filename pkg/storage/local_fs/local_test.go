package local_fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_Upload(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(&Config{SavePath: dir})
	require.NoError(t, err)
	ctx := context.Background()

	info, err := client.Stat(ctx, "full/job/a.vbk")
	require.NoError(t, err)
	assert.Nil(t, info)

	modTime := time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)
	res, err := client.Upload(ctx, types.UploadInput{
		Key:     "full/job/a.vbk",
		Body:    strings.NewReader("hello world"),
		ModTime: modTime,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, res.BytesSent)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", res.ETag)

	b, err := os.ReadFile(filepath.Join(dir, "full", "job", "a.vbk"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))

	fi, err := os.Stat(filepath.Join(dir, "full", "job", "a.vbk"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(modTime))

	info, err = client.Stat(ctx, "full/job/a.vbk")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.EqualValues(t, 11, info.Size)
}

func TestLocalFS_KeyStaysInsideSavePath(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(&Config{SavePath: filepath.Join(dir, "mirror")})
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), types.UploadInput{Key: "../../escape.vbk", Body: strings.NewReader("x")})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "mirror", "escape.vbk"))
	assert.NoError(t, err)
}

func TestLocalFS_UploadCancelled(t *testing.T) {
	client, err := NewClient(&Config{SavePath: t.TempDir()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Upload(ctx, types.UploadInput{Key: "a.vbk", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, client.Ping(context.Background()))
	_, err = NewClient(&Config{})
	assert.Error(t, err)
}
