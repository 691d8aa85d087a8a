package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sehatline/sehat_backend/config"
)

// InitializeDatabase creates the application database if it doesn't exist.
// It connects to the default 'postgres' database to create it. Called once
// during `system init`, before migrations.
func InitializeDatabase(cfg *config.Config) error {
	if cfg.Database.DBName == "" {
		return fmt.Errorf("no database name provided")
	}

	adminCfg := FromCentralConfig(cfg.Database)
	adminCfg.DBName = "postgres"

	db, err := NewGormFromConfig(adminCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exists bool
	err = db.WithContext(ctx).
		Raw(`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = ?)`, cfg.Database.DBName).
		Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := db.WithContext(ctx).Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Database.DBName)).Error; err != nil {
		return fmt.Errorf("failed to create database %q: %w", cfg.Database.DBName, err)
	}

	return nil
}
