// Package storage is the upload destination of backup runs.
// Package storage 备份上传目标存储
package storage

import (
	"context"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/aws_s3"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/local_fs"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/types"

	"go.uber.org/zap"
)

type Type = string

const S3 Type = "s3"
const LOCAL Type = "local"

var StorageTypeMap = map[Type]bool{
	S3:    true,
	LOCAL: true,
}

// Config Unified storage configuration
type Config struct {
	Type Type `yaml:"type" default:"s3"`

	// CustomPath is the key prefix of every uploaded object.
	CustomPath string `yaml:"custom-path"`

	// S3 compatible
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region" default:"us-east-1"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	UsePathStyle    bool   `yaml:"use-path-style"`
	PartSize        int64  `yaml:"part-size" default:"16777216"`
	Concurrency     int    `yaml:"concurrency" default:"4"`

	// Local FS
	SavePath string `yaml:"save-path" default:"storage/mirror"`
}

type (
	UploadInput  = types.UploadInput
	UploadResult = types.UploadResult
	ObjectInfo   = types.ObjectInfo
)

// Uploader is what a backup run needs from the destination.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (UploadResult, error)
	// Stat returns nil, nil when the object does not exist.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Ping checks that the destination is reachable.
	Ping(ctx context.Context) error
	Name() string
}

var (
	_ Uploader = (*aws_s3.S3)(nil)
	_ Uploader = (*local_fs.LocalFS)(nil)
)

// NewClient 根据配置创建存储客户端
func NewClient(ctx context.Context, config *Config, logger *zap.Logger) (Uploader, error) {
	if config == nil {
		return nil, code.ErrorInvalidStorage
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch config.Type {
	case S3:
		client, err := aws_s3.NewClient(ctx, &aws_s3.Config{
			Endpoint:        config.Endpoint,
			Region:          config.Region,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			UsePathStyle:    config.UsePathStyle,
			PartSize:        config.PartSize,
			Concurrency:     config.Concurrency,
		}, aws_s3.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case LOCAL:
		client, err := local_fs.NewClient(&local_fs.Config{SavePath: config.SavePath})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, code.ErrorInvalidStorage.WithDetails("unknown storage type: " + config.Type)
}
