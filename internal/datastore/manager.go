// Package datastore opens the SQLite and MySQL databases used as migration
// source and target.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// DefaultSlowQueryThreshold is the duration after which queries are logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Manager defines the interface for an opened database.
type Manager interface {
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database for MySQL).
	Path() string
	// TablePrefix returns the prefix applied to every table name.
	TablePrefix() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Config holds database configuration for a manager.
type Config struct {
	Settings    conf.DatabaseSettings
	TablePrefix string
	Logger      logger.Logger
	// SlowThreshold overrides DefaultSlowQueryThreshold when non-zero.
	SlowThreshold time.Duration
}

// Open returns a manager for the configured driver.
func Open(cfg *Config) (Manager, error) {
	switch cfg.Settings.Driver {
	case conf.DriverSQLite:
		return NewSQLiteManager(cfg)
	case conf.DriverMySQL:
		return NewMySQLManager(cfg)
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func gormConfig(cfg *Config) *gorm.Config {
	threshold := cfg.SlowThreshold
	if threshold == 0 {
		threshold = DefaultSlowQueryThreshold
	}
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(cfg.Logger, threshold),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.TablePrefix,
		},
	}
}

// SQLiteManager handles a SQLite database file.
type SQLiteManager struct {
	db          *gorm.DB
	dbPath      string
	tablePrefix string
}

// NewSQLiteManager opens (or creates) the SQLite database at cfg.Settings.SQLite.Path.
func NewSQLiteManager(cfg *Config) (*SQLiteManager, error) {
	dbPath := cfg.Settings.SQLite.Path

	if dir := filepath.Dir(dbPath); dir != "." && !isMemoryPath(dbPath) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryFileIO).
				FileContext(dbPath).
				Build()
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	if isMemoryPath(dbPath) {
		dsn = dbPath
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open sqlite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			FileContext(dbPath).
			Build()
	}

	return &SQLiteManager{
		db:          db,
		dbPath:      dbPath,
		tablePrefix: cfg.TablePrefix,
	}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// TablePrefix returns the table prefix.
func (m *SQLiteManager) TablePrefix() string {
	return m.tablePrefix
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeGorm(m.db)
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// MySQLManager handles a MySQL database. Source and target may share one
// MySQL schema; table prefixes keep them apart.
type MySQLManager struct {
	db          *gorm.DB
	location    string
	tablePrefix string
}

// NewMySQLManager opens a MySQL connection pool.
func NewMySQLManager(cfg *Config) (*MySQLManager, error) {
	mysqlSettings := cfg.Settings.MySQL

	db, err := gorm.Open(mysql.Open(mysqlSettings.MySQLDSN()), gormConfig(cfg))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open MySQL database %s: %w", mysqlSettings.Location(), err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	// One slice is single threaded; a small pool is enough.
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		db:          db,
		location:    mysqlSettings.Location(),
		tablePrefix: cfg.TablePrefix,
	}, nil
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database location (host:port/database).
func (m *MySQLManager) Path() string {
	return m.location
}

// TablePrefix returns the table prefix.
func (m *MySQLManager) TablePrefix() string {
	return m.tablePrefix
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeGorm(m.db)
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
