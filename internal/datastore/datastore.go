// Package datastore opens the plant-care database and seeds it from CSV files.
package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

const memoryDSN = ":memory:"

// Store is an open database with its repositories.
type Store struct {
	DB    *gorm.DB
	Repos *repository.Repositories
	Kind  string
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("datastore")
	})
	return serviceLogger
}

// Open connects to the configured backend and migrates the schema.
func Open(ctx context.Context, settings *conf.DatabaseSettings) (*Store, error) {
	log := GetLogger()
	gormConfig := &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold),
		TranslateError: true,
	}

	var (
		dialector gorm.Dialector
		kind      = settings.Type
		target    string
	)
	switch {
	case settings.Type == conf.DatabaseMySQL:
		dialector = mysql.Open(mysqlDSN(&settings.MySQL))
		target = settings.MySQL.Host + "/" + settings.MySQL.Database
	case settings.TestMode:
		kind = conf.DatabaseSQLite
		dialector = sqlite.Open(memoryDSN)
		target = memoryDSN
	default:
		kind = conf.DatabaseSQLite
		dialector = sqlite.Open(settings.SQLite.Path + "?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL")
		target = settings.SQLite.Path
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open %s database: %w", kind, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("backend", kind).
			Build()
	}

	if kind == conf.DatabaseSQLite {
		if err := configureSQLite(db, settings.TestMode); err != nil {
			return nil, err
		}
	}

	store := &Store{DB: db, Repos: repository.New(db), Kind: kind}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info("database opened",
		logger.String("backend", kind),
		logger.String("target", target))
	return store, nil
}

// OpenWithDB wraps an existing connection, migrating the schema. Used by tests.
func OpenWithDB(ctx context.Context, db *gorm.DB) (*Store, error) {
	store := &Store{DB: db, Repos: repository.New(db), Kind: db.Name()}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func mysqlDSN(s *conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

// configureSQLite enables foreign keys and pins in-memory databases to one
// connection, since every new connection would otherwise see an empty database.
func configureSQLite(db *gorm.DB, inMemory bool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.New(fmt.Errorf("failed to get sql.DB: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if inMemory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return errors.New(fmt.Errorf("failed to enable foreign keys: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	if err := s.DB.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return errors.New(fmt.Errorf("auto migration failed: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Timing("auto_migrate", time.Since(start)).
			Build()
	}
	GetLogger().Debug("schema migrated", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
