// Package types holds the values shared by every storage backend.
package types

import (
	"io"
	"time"
)

// UploadInput 上传参数，Key 为完整对象键
type UploadInput struct {
	Key          string
	Body         io.Reader
	Size         int64
	ModTime      time.Time
	StorageClass string
}

// UploadResult 上传结果
type UploadResult struct {
	Key       string
	ETag      string
	BytesSent int64
}

// ObjectInfo 远端对象信息
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}
