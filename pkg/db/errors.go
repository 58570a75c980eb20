package db

import "errors"

var (
	ErrFailedToParseDBConfig    = errors.New("db: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrHealthcheckFailed        = errors.New("db: healthcheck failed")
	ErrUnsupportedDriver        = errors.New("db: unsupported driver")
	ErrCreateMigrator           = errors.New("db migrator: failed to create migration provider")
	ErrApplyMigrations          = errors.New("db migrator: failed to apply migrations")
)
