package migration

import (
	"torweather/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.RouterModel{},
		&models.SubscriberModel{},
		&models.SubscriptionModel{},
	}
}
