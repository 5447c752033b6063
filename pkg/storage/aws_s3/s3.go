package aws_s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint        string
	Region          string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
	UsePathStyle    bool
	PartSize        int64
	Concurrency     int
}

type S3 struct {
	S3Client        *s3.Client
	TransferManager *transfermanager.Client
	Config          *Config
	logger          *zap.Logger
}

// Option 配置选项函数类型
type Option func(*S3)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3) {
		s.logger = logger
	}
}

// NewClient 创建 S3 存储实例
// An empty Endpoint targets AWS; anything else is treated as an
// S3-compatible service such as MinIO.
func NewClient(ctx context.Context, conf *Config, opts ...Option) (*S3, error) {
	if conf.BucketName == "" {
		return nil, errors.New("aws_s3: bucket name is required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(conf.Region),
	}
	if conf.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.AccessKeySecret, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = conf.UsePathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})

	tm := transfermanager.New(client, func(o *transfermanager.Options) {
		if conf.PartSize > 0 {
			o.PartSizeBytes = conf.PartSize
		}
		if conf.Concurrency > 0 {
			o.Concurrency = conf.Concurrency
		}
	})

	p := &S3{
		S3Client:        client,
		TransferManager: tm,
		Config:          conf,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *S3) Name() string {
	return "s3://" + p.Config.BucketName
}
