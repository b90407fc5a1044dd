package db

import (
	"errors"
	"time"

	"otaflow/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm connection handed to repositories
type Database struct {
	DB *gorm.DB
}

// Initialize opens the metadata store connection and runs auto migration
func Initialize(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("empty DATABASE_URL")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)

	if err := db.AutoMigrate(
		&models.Org{},
		&models.App{},
		&models.Bundle{},
		&models.Channel{},
		&models.Device{},
		&models.ChannelDeviceOverride{},
		&models.DeviceVersionOverride{},
		&models.StatEvent{},
	); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Ping verifies the underlying connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
