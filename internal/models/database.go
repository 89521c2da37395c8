package models

import (
	"fmt"

	"github.com/indyforge/groupindustry/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the global handle.
func Open(cfg *config.DatabaseConfig, logMode logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}

	DB = db
	return nil
}

// Migrate creates or updates every table on the given handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&ItemType{},
		&Project{},
		&ProjectItem{},
		&ProjectMember{},
		&BomItem{},
		&Contribution{},
		&Sale{},
		&SchedulerLock{},
	)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}

// defaultItemTypes is a minimal catalog so the blacklist resolver works on a
// fresh install; the SDE import replaces it with the full table.
var defaultItemTypes = []ItemType{
	{TypeID: 34, Name: "Tritanium", GroupID: 18, CategoryID: 4},
	{TypeID: 35, Name: "Pyerite", GroupID: 18, CategoryID: 4},
	{TypeID: 36, Name: "Mexallon", GroupID: 18, CategoryID: 4},
	{TypeID: 37, Name: "Isogen", GroupID: 18, CategoryID: 4},
	{TypeID: 38, Name: "Nocxium", GroupID: 18, CategoryID: 4},
	{TypeID: 39, Name: "Zydrine", GroupID: 18, CategoryID: 4},
	{TypeID: 40, Name: "Megacyte", GroupID: 18, CategoryID: 4},
	{TypeID: 11399, Name: "Morphite", GroupID: 18, CategoryID: 4},
	{TypeID: 16272, Name: "Heavy Water", GroupID: 423, CategoryID: 4},
	{TypeID: 16273, Name: "Liquid Ozone", GroupID: 423, CategoryID: 4},
	{TypeID: 16274, Name: "Helium Isotopes", GroupID: 423, CategoryID: 4},
	{TypeID: 16275, Name: "Strontium Clathrates", GroupID: 423, CategoryID: 4},
	{TypeID: 4051, Name: "Caldari Fuel Block", GroupID: 1136, CategoryID: 4},
	{TypeID: 4246, Name: "Minmatar Fuel Block", GroupID: 1136, CategoryID: 4},
	{TypeID: 4247, Name: "Amarr Fuel Block", GroupID: 1136, CategoryID: 4},
	{TypeID: 4312, Name: "Gallente Fuel Block", GroupID: 1136, CategoryID: 4},
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	return Seed(DB)
}

func Seed(db *gorm.DB) error {
	var typeCount int64
	if err := db.Model(&ItemType{}).Count(&typeCount).Error; err != nil {
		return err
	}
	if typeCount == 0 {
		items := make([]ItemType, len(defaultItemTypes))
		copy(items, defaultItemTypes)
		if err := db.CreateInBatches(&items, 100).Error; err != nil {
			return err
		}
	}
	return nil
}
