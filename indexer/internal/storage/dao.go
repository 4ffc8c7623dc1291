package storage

import (
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	"github.com/kamva/mgm/v3"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Cursor is the persisted sync position.
type Cursor struct {
	MaxSyncedID  int64
	LastSyncTime *time.Time
}

func InitDB(dsn string, timeout time.Duration) (*gorm.DB, error) {
	dsn, err := withTimeouts(dsn, timeout)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return db, nil
}

// withTimeouts sets the dial, read and write timeouts of dsn unless the DSN already
// carries its own.
func withTimeouts(dsn string, timeout time.Duration) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", errors.Annotatef(err, "parse mysql dsn")
	}
	if timeout > 0 {
		if cfg.Timeout == 0 {
			cfg.Timeout = timeout
		}
		if cfg.ReadTimeout == 0 {
			cfg.ReadTimeout = timeout
		}
		if cfg.WriteTimeout == 0 {
			cfg.WriteTimeout = timeout
		}
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func InitMongo(dbName, uri string, timeout time.Duration) error {
	return mgm.SetDefaultConfig(&mgm.Config{CtxTimeout: timeout}, dbName, options.Client().ApplyURI(uri))
}
