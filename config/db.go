package config

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stackit-backend/models/notification"
	"stackit-backend/models/qa"
	"stackit-backend/models/users"
)

var dbLogger = loggo.GetLogger("stackit.db")

// loggoWriter - sends gorm's log lines to loggo.
type loggoWriter struct{}

func (loggoWriter) Printf(format string, args ...interface{}) {
	dbLogger.Debugf(format, args...)
}

// DSNString builds the connection string for the configured driver.
func (c DatabaseConfig) DSNString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return "stackit.db"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.SSLMode)
}

// InitDB opens the database and checks the connection.
func InitDB(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSNString())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSNString())
	default:
		return nil, errors.NotSupportedf("database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(loggoWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s database", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Annotate(err, "getting database handle")
	}
	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; one connection also keeps ":memory:" databases alive.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Annotate(err, "pinging database")
	}
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&users.User{},
		&qa.Tag{},
		&qa.Question{},
		&qa.Answer{},
		&qa.Vote{},
		&qa.Comment{},
		&notification.Notification{},
	)
	return errors.Annotate(err, "migrating schema")
}
