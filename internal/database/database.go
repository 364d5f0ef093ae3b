package database

import (
	"fmt"
	"time"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is an interface for database operations
type DB interface {
	DB() (*gorm.DB, error)
	Close() error
}

// GormDatabase implements the DB interface for GORM
type GormDatabase struct {
	db *gorm.DB
}

// Connect establishes a connection to the database
func Connect(cfg config.DatabaseConfig) (DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &GormDatabase{db: db}, nil
}

// DB returns the underlying gorm.DB instance
func (d *GormDatabase) DB() (*gorm.DB, error) {
	return d.db, nil
}

// Close closes the database connection
func (d *GormDatabase) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations for all entity tables
func AutoMigrate(db DB) error {
	gormDB, err := db.DB()
	if err != nil {
		return err
	}

	err = gormDB.AutoMigrate(
		&models.Driver{},
		&models.Fleet{},
		&models.Seller{},
		&models.DriverBonus{},
		&models.MerchantOrder{},
		&models.SenderValidation{},
		&models.PhoneMessage{},
		&models.MessageLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate table structures: %w", err)
	}

	return nil
}
