// File: internal/database/database.go
package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iyunix/go-mutabakat/internal/domain"
)

// Open returns a gorm handle for the configured driver. sqlite is the
// default and is what the tests run on.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "sqlite":
		if dsn == "" {
			dsn = "mutabakat.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates every table the service touches.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Company{},
		&domain.CompanyTemplate{},
		&domain.Reconciliation{},
		&domain.ExcelLine{},
		&domain.ReconciliationLink{},
		&domain.ApprovalRequest{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
