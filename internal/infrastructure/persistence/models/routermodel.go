package models

import (
	"time"
)

// RouterModel represents the database persistence model for relays
// This is the anti-corruption layer between domain and database
type RouterModel struct {
	ID          uint   `gorm:"primarykey"`
	Fingerprint string `gorm:"uniqueIndex;not null;size:40"`
	Name        string `gorm:"not null;default:Unnamed;size:100"`
	Welcomed    bool   `gorm:"not null;default:false"`
	Up          bool   `gorm:"not null;default:true;index:idx_routers_up"`
	Exit        bool   `gorm:"not null;default:false"`
	Stable      bool   `gorm:"not null;default:false"`
	Hibernating bool   `gorm:"not null;default:false"`
	Version     string `gorm:"size:64"`
	ObservedKBs int64  `gorm:"column:observed_kbs;not null;default:0"`
	Contact     string `gorm:"size:255"`
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM
func (RouterModel) TableName() string {
	return "routers"
}
