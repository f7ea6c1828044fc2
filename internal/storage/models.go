package storage

import (
	"gorm.io/gorm"
)

// AstroCacheEntry is one captured forecast. Daily holds the JSON-encoded
// daily array so the row mirrors the JSON cache file.
type AstroCacheEntry struct {
	gorm.Model
	FetchedAt int64  `gorm:"index" json:"_ts"`
	Source    string `json:"source"`
	Daily     string `gorm:"type:text" json:"daily"`
}
