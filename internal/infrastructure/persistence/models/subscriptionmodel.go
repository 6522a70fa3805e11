package models

import (
	"time"
)

// SubscriptionModel represents the database persistence model for subscriptions
// All subscription types share this table, discriminated by SubType.
type SubscriptionModel struct {
	ID           uint            `gorm:"primarykey"`
	SubscriberID uint            `gorm:"not null;uniqueIndex:idx_subscriptions_subscriber_type,priority:1"`
	Subscriber   SubscriberModel `gorm:"constraint:OnDelete:CASCADE"`
	SubType      string          `gorm:"not null;size:20;uniqueIndex:idx_subscriptions_subscriber_type,priority:2;index:idx_subscriptions_type"`
	Emailed      bool            `gorm:"not null;default:false"`
	Triggered    bool            `gorm:"not null;default:false"`
	LastChanged  *time.Time
	GraceHours   int     `gorm:"not null;default:1"`
	NotifyType   string  `gorm:"size:20"`
	ThresholdKBs int64   `gorm:"column:threshold_kbs;not null;default:0"`
	AvgKBs       float64 `gorm:"column:avg_kbs;not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
