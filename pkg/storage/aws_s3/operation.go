package aws_s3

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const storageClassStandard = "STANDARD"

// Upload 通过 transfer manager 上传，必要时再复制以设置存储类型
func (p *S3) Upload(ctx context.Context, in types.UploadInput) (types.UploadResult, error) {
	bucket := p.Config.BucketName
	body := &countingReader{r: in.Body}

	input := &transfermanager.UploadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(in.Key),
		Body:   body,
	}
	if !in.ModTime.IsZero() {
		input.Metadata = map[string]string{
			"modification-time": in.ModTime.Format(time.RFC3339),
		}
	}

	if _, err := p.TransferManager.UploadObject(ctx, input); err != nil {
		var noBucket *s3types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return types.UploadResult{}, errors.Wrapf(err, "aws_s3: bucket %s does not exist", bucket)
		}
		return types.UploadResult{}, errors.Wrap(err, "aws_s3")
	}

	if sc := strings.ToUpper(in.StorageClass); sc != "" && sc != storageClassStandard {
		if err := p.applyStorageClass(ctx, in.Key, sc); err != nil {
			return types.UploadResult{}, err
		}
	}

	res := types.UploadResult{Key: in.Key, BytesSent: body.n.Load()}
	if info, err := p.Stat(ctx, in.Key); err == nil && info != nil {
		res.ETag = info.ETag
	}
	return res, nil
}

// applyStorageClass rewrites the object in place with a new storage class.
// Backends without storage classes answer NotImplemented, which is ignored.
func (p *S3) applyStorageClass(ctx context.Context, key, class string) error {
	bucket := p.Config.BucketName
	_, err := p.S3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(bucket + "/" + escapeKey(key)),
		StorageClass:      s3types.StorageClass(class),
		MetadataDirective: s3types.MetadataDirectiveCopy,
	})
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotImplemented" {
		p.logger.Warn("storage class not supported by backend",
			zap.String("storageClass", class), zap.String("key", key))
		return nil
	}
	return errors.Wrap(err, "aws_s3: set storage class")
}

// Stat 查询对象是否存在
func (p *S3) Stat(ctx context.Context, key string) (*types.ObjectInfo, error) {
	out, err := p.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "aws_s3: head object")
	}
	return &types.ObjectInfo{
		Key:  key,
		Size: aws.ToInt64(out.ContentLength),
		ETag: strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// Ping 检查桶是否可访问
func (p *S3) Ping(ctx context.Context) error {
	_, err := p.S3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.Config.BucketName),
	})
	return errors.Wrapf(err, "aws_s3: bucket %s", p.Config.BucketName)
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n.Add(int64(n))
	return n, err
}
