package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the gorm handle so packages depend on one connection type
// regardless of which driver opened it.
type DB struct {
	*gorm.DB
}

// NewConnection opens the Postgres pool the engine runs on. TranslateError
// is on so unique-constraint violations surface as gorm.ErrDuplicatedKey
// rather than opaque driver errors; the lineup-key claim relies on that.
func NewConnection(databaseURL string, isDevelopment bool) (*DB, error) {
	logLevel := logger.Error
	if isDevelopment {
		logLevel = logger.Info
	}

	gdb, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}

	// The workload is a small API plus short batch ticks; a modest pool is
	// plenty and keeps idle connections off the server.
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logrus.Info("Database connection established")
	return &DB{gdb}, nil
}

// Wrap adapts an already-open gorm handle (used by tests running on sqlite).
func Wrap(db *gorm.DB) *DB {
	return &DB{db}
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
