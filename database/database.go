package database

import (
	"context"
	stdlog "log"
	"os"
	"time"

	"github.com/projectshelf/backend/discovery"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Database bundles one repository per table over a shared GORM connection.
type Database struct {
	*ProfileRepo
	*ProjectRepo
	*CollaboratorRepo
	*ReviewRepo
	db *gorm.DB
}

var (
	_ workflow.Store     = Database{}
	_ discovery.Searcher = Database{}
)

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		ProfileRepo:      NewProfileRepo(db),
		ProjectRepo:      NewProjectRepo(db),
		CollaboratorRepo: NewCollaboratorRepo(db),
		ReviewRepo:       NewReviewRepo(db),
		db:               db,
	}
}

// Open connects to Postgres. When replicaDSN is set, reads are routed to the replica
// through dbresolver and writes stay on the primary.
func Open(dsn, replicaDSN string) (*gorm.DB, error) {
	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, errs.NewDatabaseError("connect", "database", err)
	}

	if replicaDSN != "" {
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.New(postgres.Config{DSN: replicaDSN, PreferSimpleProtocol: true})},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, errs.NewDatabaseError("register", "read replica", err)
		}
		log.Info().Msg("Read replica registered")
	}
	return db, nil
}

// DB returns the underlying connection.
func (d Database) DB() *gorm.DB {
	return d.db
}

// Ping checks the primary connection.
func (d Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errs.NewDatabaseError("open", "connection pool", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	return nil
}

func (d Database) Migrate() error {
	return models.Migrate(d.db)
}

func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
