package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeStudio/internal/config"
)

// Option 调整连接参数。
type Option func(*options)

type options struct {
	logLevel     logger.LogLevel
	maxIdleConns int
	maxOpenConns int
	connLifetime time.Duration
	migrate      bool
}

// WithLogLevel 设置 GORM 日志级别，默认 Warn。
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

// WithPool 设置连接池大小。
func WithPool(maxIdle, maxOpen int) Option {
	return func(o *options) {
		o.maxIdleConns = maxIdle
		o.maxOpenConns = maxOpen
	}
}

// WithoutMigrate 跳过账号表迁移。
func WithoutMigrate() Option {
	return func(o *options) { o.migrate = false }
}

// InitDatabase 连接 PostgreSQL 并迁移账号表。
func InitDatabase(cfg config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.DSN()), opts...)
}

// Open 使用任意方言打开数据库；测试用 sqlite 方言调用它。
func Open(dialector gorm.Dialector, opts ...Option) (*gorm.DB, error) {
	o := options{
		logLevel:     logger.Warn,
		maxIdleConns: 5,
		maxOpenConns: 25,
		connLifetime: 30 * time.Minute,
		migrate:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}
	sqlDB.SetMaxIdleConns(o.maxIdleConns)
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetConnMaxLifetime(o.connLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if o.migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate 创建或更新账号表。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
