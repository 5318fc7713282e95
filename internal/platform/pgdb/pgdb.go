// Package pgdb opens the Postgres connection backing the execution and
// aggregation stores: a DSN assembled from discrete env vars, a
// gorm.Logger tuned to ignore record-not-found noise, and an AutoMigrate
// pass run once at startup.
package pgdb

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/envutil"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// Open connects to Postgres using either DATABASE_URL (if set) or the
// discrete POSTGRES_HOST/PORT/USER/PASSWORD/NAME variables.
func Open(log *logger.Logger) (*gorm.DB, error) {
	dsn := envutil.Str("DATABASE_URL", "")
	if dsn == "" {
		host := envutil.Str("POSTGRES_HOST", "localhost")
		port := envutil.Str("POSTGRES_PORT", "5432")
		user := envutil.Str("POSTGRES_USER", "postgres")
		pass := envutil.Str("POSTGRES_PASSWORD", "")
		name := envutil.Str("POSTGRES_NAME", "batchcore")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
	}

	gormLog := gormlogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to postgres")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("pgdb: open: %w", err)
	}
	return db, nil
}

// AutoMigrate runs GORM's schema migration for every domain model the
// Execution Store and Aggregation Store persist.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.JobInstance{},
		&domain.JobExecution{},
		&domain.StepExecution{},
		&domain.AggregationRow{},
	)
}
