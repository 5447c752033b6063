package dao

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/model"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/util"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Write queue keys. All ledger writes share one key so append + eviction
// never interleave with another append.
const (
	writeKeySchedules = "schedules"
	writeKeyHistory   = "history"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string
	Path            string
	UserName        string
	Password        string
	Host            string
	Name            string
	TablePrefix     string
	AutoMigrate     bool
	Charset         string
	ParseTime       bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	RunMode         string
}

// Dao wraps the gorm handle and the write queue
// Dao 封装 gorm 连接与写队列
type Dao struct {
	Db     *gorm.DB
	ctx    context.Context
	logger *zap.Logger
	wq     *writequeue.Manager
}

// Option Dao 可选配置
type Option func(*Dao)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) { d.logger = l }
}

func WithWriteQueueManager(wq *writequeue.Manager) Option {
	return func(d *Dao) { d.wq = wq }
}

func New(db *gorm.DB, ctx context.Context, opts ...Option) *Dao {
	d := &Dao{Db: db, ctx: ctx, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ExecuteWrite runs fn serialized per key when a write queue is configured.
// ExecuteWrite 通过写队列串行执行写操作
func (d *Dao) ExecuteWrite(ctx context.Context, key string, fn func(db *gorm.DB) error) error {
	run := func() error {
		return fn(d.Db.WithContext(ctx))
	}
	if d.wq == nil {
		return run()
	}
	return d.wq.Execute(ctx, key, run)
}

// Read returns a context-bound session for queries.
func (d *Dao) Read(ctx context.Context) *gorm.DB {
	return d.Db.WithContext(ctx)
}

// NewDBEngineWithConfig opens the database and applies pool settings
// NewDBEngineWithConfig 打开数据库并设置连接池
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	logMode := logger.Silent
	if c.RunMode == "debug" {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀
			SingularTable: true,          // 使用单数表名
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "gorm open")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "gorm db")
	}

	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.Type == "sqlite" {
		// one writer at a time; the write queue already serializes writes
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(util.MustParseDuration(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.MustParseDuration(c.ConnMaxIdleTime, 10*time.Minute))

	if c.AutoMigrate {
		if err := model.AutoMigrateAll(db); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}

	if lg != nil {
		lg.Info("database connected", zap.String("type", c.Type), zap.String("path", c.Path), zap.String("host", c.Host))
	}
	return db, nil
}

func useDialector(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName, c.Password, c.Host, c.Name, charset, c.ParseTime)), nil
	case "postgres":
		host, port, err := net.SplitHostPort(c.Host)
		if err != nil {
			host, port = c.Host, "5432"
		}
		return postgres.Open(fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Local",
			host, port, c.UserName, c.Password, c.Name)), nil
	case "sqlite", "":
		if c.Path == "" {
			return nil, errors.New("database path is required for sqlite")
		}
		if dir := filepath.Dir(c.Path); dir != "" {
			if err := os.MkdirAll(dir, 0754); err != nil {
				return nil, errors.Wrap(err, "create database dir")
			}
		}
		return sqlite.Open(c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", c.Type)
}
