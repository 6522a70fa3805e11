package models

import (
	"time"
)

// SubscriberModel represents the database persistence model for subscribers
type SubscriberModel struct {
	ID          uint        `gorm:"primarykey"`
	Email       string      `gorm:"not null;size:75;index:idx_subscribers_email;uniqueIndex:idx_subscribers_email_router,priority:1"`
	RouterID    uint        `gorm:"not null;uniqueIndex:idx_subscribers_email_router,priority:2"`
	Router      RouterModel `gorm:"constraint:OnDelete:CASCADE"`
	Confirmed   bool        `gorm:"not null;default:false"`
	ConfirmAuth string      `gorm:"uniqueIndex;not null;size:24"`
	UnsubsAuth  string      `gorm:"uniqueIndex;not null;size:24"`
	PrefAuth    string      `gorm:"uniqueIndex;not null;size:24"`
	SubDate     time.Time   `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for GORM
func (SubscriberModel) TableName() string {
	return "subscribers"
}
