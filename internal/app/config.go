// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/dao"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/convert"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/util"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/workerpool"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File      string          `yaml:"-"` // 配置文件路径，不序列化
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	App       AppSettings     `yaml:"app"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Backup    BackupConfig    `yaml:"backup"`
	Storage   storage.Config  `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时只输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口
	HttpPort string `yaml:"http-port" default:":9000"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有 HTTP 监听地址（metrics / pprof），为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:"127.0.0.1:9001"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite / mysql / postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path string `yaml:"path" default:"storage/database/scheduler.sqlite3"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// Name 数据库名
	Name string `yaml:"name"`
	// TablePrefix 表前缀
	TablePrefix string `yaml:"table-prefix" default:"backup_"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool `yaml:"auto-migrate" default:"true"`
	// Charset 字符集
	Charset string `yaml:"charset"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time" default:"true"`
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数
	MaxOpenConns int `yaml:"max-open-conns" default:"20"`
	// ConnMaxLifetime 连接最大生命周期
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认请求上下文超时时间（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"60"`

	// Worker Pool 配置，每个执行中的备份占用一个 worker
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"8"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"64"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"100"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30s"`

	// RunRateLimit 手动执行接口每秒请求数，0 不限制
	RunRateLimit int64 `yaml:"run-rate-limit" default:"5"`
	// AuthToken API 访问 Token，为空时不校验
	AuthToken string `yaml:"auth-token"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// BackupConfig 备份源与上传参数
type BackupConfig struct {
	// NFSPath NFS 挂载根目录
	NFSPath string `yaml:"nfs-path" default:"/mnt/backups"`
	// BackupDays 只上传最近 N 天修改过的文件，-1 不限制（0 会被默认值 7 覆盖）
	BackupDays int `yaml:"backup-days" default:"7"`
	// StorageClass 对象存储类别
	StorageClass string `yaml:"storage-class" default:"STANDARD"`
	// UploadRetries 首次失败后的重试次数
	UploadRetries int `yaml:"upload-retries" default:"3"`
	// RetryDelay 重试间隔
	RetryDelay string `yaml:"retry-delay" default:"5s"`
	// MaxThreads 单次执行的并发上传数
	MaxThreads int `yaml:"max-threads" default:"5"`
	// UploadRateLimit 上传带宽限制（每秒），支持 KB/MB/GB 后缀，0 不限制
	UploadRateLimit string `yaml:"upload-rate-limit" default:"0"`
	// ExtTagMap 扩展名到分类标签的映射
	ExtTagMap map[string]string `yaml:"ext-tag-map"`
	// FileCategories 可选的分类列表，用于界面展示
	FileCategories []string `yaml:"file-categories"`
	// SizeOnlyCheck 远端已存在判断只比较大小，不校验单分片 ETag（MD5）
	SizeOnlyCheck bool `yaml:"size-only-check"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	// TickInterval 检查到期计划的间隔
	TickInterval string `yaml:"tick-interval" default:"30s"`
	// HistoryLimit 保留的历史记录条数
	HistoryLimit int `yaml:"history-limit" default:"100"`
	// DebugLogSize 内存调试日志条数
	DebugLogSize int `yaml:"debug-log-size" default:"1000"`
}

// DefaultExtTagMap is used when backup.ext-tag-map is empty.
var DefaultExtTagMap = map[string]string{
	".vbk": "full",
	".vib": "incremental",
	".vbm": "metadata",
	".log": "logs",
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	c, err := ParseConfig(file)
	if err != nil {
		return nil, realpath, err
	}
	c.File = realpath
	return c, realpath, nil
}

// ParseConfig parses YAML and fills defaults for missing or empty fields.
func ParseConfig(data []byte) (*AppConfig, error) {
	c := new(AppConfig)

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config file failed")
	}
	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "re-set default config failed")
	}
	if len(c.Backup.ExtTagMap) == 0 {
		c.Backup.ExtTagMap = DefaultExtTagMap
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values that would make the scheduler misbehave.
func (c *AppConfig) Validate() error {
	if !storage.StorageTypeMap[c.Storage.Type] {
		return errors.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == storage.S3 && c.Storage.BucketName == "" {
		return errors.New("storage.bucket-name is required for s3")
	}
	if c.Backup.MaxThreads < 1 {
		return errors.New("backup.max-threads must be at least 1")
	}
	if c.Backup.UploadRetries < 0 {
		return errors.New("backup.upload-retries must not be negative")
	}
	if n, err := convert.StrTo(c.Backup.UploadRateLimit).ToSize(); err != nil || n < 0 {
		return errors.Errorf("invalid backup.upload-rate-limit %q", c.Backup.UploadRateLimit)
	}
	for _, field := range []struct{ name, value string }{
		{"backup.retry-delay", c.Backup.RetryDelay},
		{"scheduler.tick-interval", c.Scheduler.TickInterval},
	} {
		if _, err := util.ParseDuration(field.value); err != nil {
			return errors.Wrapf(err, "invalid %s", field.name)
		}
	}
	return nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	if err := os.WriteFile(c.File, data, 0644); err != nil {
		return errors.Wrap(err, "write config file failed")
	}
	return nil
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}
	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	return cfg
}

// GetDatabaseConfig 获取 DAO 层数据库配置
func (c *AppConfig) GetDatabaseConfig() dao.DatabaseConfig {
	return dao.DatabaseConfig{
		Type:            c.Database.Type,
		Path:            c.Database.Path,
		UserName:        c.Database.UserName,
		Password:        c.Database.Password,
		Host:            c.Database.Host,
		Name:            c.Database.Name,
		TablePrefix:     c.Database.TablePrefix,
		AutoMigrate:     c.Database.AutoMigrate,
		Charset:         c.Database.Charset,
		ParseTime:       c.Database.ParseTime,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		RunMode:         c.Server.RunMode,
	}
}

// GetExecutorConfig 获取执行器配置
func (c *AppConfig) GetExecutorConfig() service.ExecutorConfig {
	return service.ExecutorConfig{
		NFSPath:         c.Backup.NFSPath,
		BackupDays:      c.Backup.BackupDays,
		StorageClass:    strings.ToUpper(strings.TrimSpace(c.Backup.StorageClass)),
		UploadRetries:   c.Backup.UploadRetries,
		RetryDelay:      util.MustParseDuration(c.Backup.RetryDelay, 5*time.Second),
		MaxThreads:      c.Backup.MaxThreads,
		UploadRateLimit: convert.StrTo(c.Backup.UploadRateLimit).MustToSize(0),
		KeyPrefix:       c.Storage.CustomPath,
		VerifyETag:      !c.Backup.SizeOnlyCheck,
	}
}

// GetTickInterval 获取调度检查间隔
func (c *AppConfig) GetTickInterval() time.Duration {
	d := util.MustParseDuration(c.Scheduler.TickInterval, 30*time.Second)
	if d < time.Second {
		return time.Second
	}
	return d
}
