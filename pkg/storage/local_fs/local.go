// Package local_fs mirrors backups into a local directory. It is used for
// dry runs against a second mount and by tests.
package local_fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/types"

	"github.com/gookit/goutil/fsutil"
	"github.com/pkg/errors"
)

type Config struct {
	SavePath string
}

type LocalFS struct {
	Config *Config
}

func NewClient(conf *Config) (*LocalFS, error) {
	if conf == nil || strings.TrimSpace(conf.SavePath) == "" {
		return nil, errors.New("local_fs: save path is required")
	}
	return &LocalFS{Config: conf}, nil
}

func (p *LocalFS) Name() string {
	return "file://" + p.Config.SavePath
}

func (p *LocalFS) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", errors.Errorf("local_fs: invalid key %q", key)
	}
	return filepath.Join(p.Config.SavePath, clean), nil
}

// Upload 写入临时文件后重命名
func (p *LocalFS) Upload(ctx context.Context, in types.UploadInput) (types.UploadResult, error) {
	dst, err := p.path(in.Key)
	if err != nil {
		return types.UploadResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return types.UploadResult{}, errors.Wrap(err, "local_fs")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return types.UploadResult{}, errors.Wrap(err, "local_fs")
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: in.Body})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return types.UploadResult{}, errors.Wrap(err, "local_fs")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return types.UploadResult{}, errors.Wrap(err, "local_fs")
	}
	if !in.ModTime.IsZero() {
		_ = os.Chtimes(dst, in.ModTime, in.ModTime)
	}
	return types.UploadResult{Key: in.Key, ETag: hex.EncodeToString(h.Sum(nil)), BytesSent: n}, nil
}

// Stat 查询文件
func (p *LocalFS) Stat(ctx context.Context, key string) (*types.ObjectInfo, error) {
	dst, err := p.path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dst)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "local_fs")
	}
	return &types.ObjectInfo{Key: key, Size: info.Size()}, nil
}

// Ping creates the save path when missing.
func (p *LocalFS) Ping(ctx context.Context) error {
	if fsutil.IsDir(p.Config.SavePath) {
		return nil
	}
	return errors.Wrap(os.MkdirAll(p.Config.SavePath, 0o755), "local_fs")
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
