package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewManager connects to MySQL using config
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dsn, err := config.DSN()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newManager(config, mysql.Open(dsn))
}

// NewManagerWithDialector creates a manager on an already configured GORM
// dialector, e.g. mysql.New(mysql.Config{Conn: existingDB}).
// Connection fields of config are ignored; pool and logging settings apply.
func NewManagerWithDialector(config *Config, dialector gorm.Dialector) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.validatePool(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newManager(config, dialector)
}

func newManager(config *Config, dialector gorm.Dialector) (*Manager, error) {
	gormConfig := &gorm.Config{
		SkipDefaultTransaction: true, // the resolver only reads
		PrepareStmt:            config.PrepareStmt,
		Logger:                 newLogger(config.Logging),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	return &Manager{
		config: config,
		db:     db,
	}, nil
}

// DB returns the GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// WithQueryTimeout wraps ctx with the configured query timeout, if any
func (m *Manager) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.config != nil && m.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, m.config.QueryTimeout)
	}
	return ctx, func() {}
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping tests the database connection
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection statistics
func (m *Manager) Stats() (sql.DBStats, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

func newLogger(config LoggingConfig) logger.Interface {
	return logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             config.SlowQueryThreshold,
		LogLevel:                  getLogLevel(config.Level),
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      !config.LogQueryParameters,
	})
}

func getLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info", "debug":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Error
	}
}
