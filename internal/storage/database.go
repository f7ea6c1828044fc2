package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dynamic-sky/internal/astro"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// keepEntries bounds the table; only the latest row is ever read.
const keepEntries = 7

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&AstroCacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// AstroCache adapts the database to astro.Cache.
func (d *Database) AstroCache() *AstroCache {
	return &AstroCache{db: d}
}

func (d *Database) SaveEntry(entry *astro.CacheEntry) error {
	daily, err := json.Marshal(entry.Daily)
	if err != nil {
		return fmt.Errorf("failed to encode daily entries: %w", err)
	}

	row := &AstroCacheEntry{
		FetchedAt: entry.TS,
		Source:    entry.Source,
		Daily:     string(daily),
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return d.prune(tx)
	})
}

func (d *Database) LatestEntry() (*astro.CacheEntry, error) {
	var row AstroCacheEntry
	result := d.db.Order("fetched_at desc").Order("id desc").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	entry := &astro.CacheEntry{TS: row.FetchedAt, Source: row.Source}
	if err := json.Unmarshal([]byte(row.Daily), &entry.Daily); err != nil {
		return nil, fmt.Errorf("failed to decode daily entries: %w", err)
	}
	return entry, nil
}

func (d *Database) CountEntries() (int64, error) {
	var n int64
	err := d.db.Model(&AstroCacheEntry{}).Count(&n).Error
	return n, err
}

func (d *Database) prune(tx *gorm.DB) error {
	var ids []uint
	if err := tx.Model(&AstroCacheEntry{}).
		Order("fetched_at desc").Order("id desc").
		Offset(keepEntries).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.Unscoped().Delete(&AstroCacheEntry{}, ids).Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AstroCache stores forecasts in sqlite instead of the JSON file.
type AstroCache struct {
	db *Database
}

func (c *AstroCache) Load() (*astro.CacheEntry, error) {
	return c.db.LatestEntry()
}

func (c *AstroCache) Save(entry *astro.CacheEntry) error {
	return c.db.SaveEntry(entry)
}
