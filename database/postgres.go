// File: database/postgres.go

package database

import (
	"fmt"

	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/api/association"
	"github.com/openworkshop/owapi/api/game"
	"github.com/openworkshop/owapi/api/genre"
	"github.com/openworkshop/owapi/api/mod"
	"github.com/openworkshop/owapi/api/resource"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/api/tag"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/zaplogger"
	"github.com/openworkshop/owapi/stats"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")

	// Set up GORM logger
	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	// Open database connection
	db, err := gorm.Open(postgres.Open(cfg.PostgresDsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}
	zaplogger.Info("  * connected")
	zaplogger.Info("  * checking tables")

	// AutoMigrate will create tables and add/modify columns
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	// Verify that the tables are created
	if err := verifyTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates and updates every table of the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.AccountModel{},
		&session.SessionModel{},
		&session.RegistrationBlockModel{},
		&game.GameModel{},
		&mod.ModModel{},
		&mod.ModAuthorModel{},
		&mod.ModTagModel{},
		&mod.ModDependencyModel{},
		&tag.TagModel{},
		&genre.GenreModel{},
		&association.GameGenreModel{},
		&association.GameTagModel{},
		&resource.ResourceModel{},
		&stats.StatModel{},
	)
}

func verifyTables(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{account.AccountsTableName, &account.AccountModel{}},
		{session.SessionsTableName, &session.SessionModel{}},
		{session.RegistrationBlocksTableName, &session.RegistrationBlockModel{}},
		{game.GamesTableName, &game.GameModel{}},
		{mod.ModsTableName, &mod.ModModel{}},
		{mod.ModAuthorsTableName, &mod.ModAuthorModel{}},
		{mod.ModTagsTableName, &mod.ModTagModel{}},
		{mod.ModDependenciesTableName, &mod.ModDependencyModel{}},
		{tag.TagsTableName, &tag.TagModel{}},
		{genre.GenresTableName, &genre.GenreModel{}},
		{association.GameGenresTableName, &association.GameGenreModel{}},
		{association.GameTagsTableName, &association.GameTagModel{}},
		{resource.ResourcesTableName, &resource.ResourceModel{}},
		{stats.StatsTableName, &stats.StatModel{}},
	}

	for _, table := range tables {
		if db.Migrator().HasTable(table.model) {
			zaplogger.Info("    - " + table.name + " ✔")
		} else {
			return fmt.Errorf("failed to create table: %s", table.name)
		}
	}

	return nil
}
