package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"torweather/internal/domain/subscription"
	"torweather/internal/infrastructure/persistence/mappers"
	"torweather/internal/infrastructure/persistence/models"
	"torweather/internal/shared/logger"
)

// SubscriptionRepository implements the subscription repository interface
type SubscriptionRepository struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepository{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

// Create creates a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, entity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription in database",
			"subscriber_id", model.SubscriberID, "type", model.SubType, "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Debugw("subscription created",
		"id", model.ID, "subscriber_id", model.SubscriberID, "type", model.SubType)
	return nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetBySubscriberAndType retrieves one subscriber's rule of the given type
func (r *SubscriptionRepository) GetBySubscriberAndType(ctx context.Context, subscriberID uint, t subscription.Type) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND sub_type = ?", subscriberID, string(t)).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by subscriber and type",
			"subscriber_id", subscriberID, "type", t, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// ListBySubscriber returns all of one subscriber's rules
func (r *SubscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID uint) ([]*subscription.Subscription, error) {
	var subscriptionModels []*models.SubscriptionModel

	if err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Find(&subscriptionModels).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions", "subscriber_id", subscriberID, "error", err)
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return r.mapper.ToEntities(subscriptionModels)
}

// Update persists the subscription's current state
func (r *SubscriptionRepository) Update(ctx context.Context, entity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.SubscriptionModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", model.ID)
	}

	return nil
}

// Delete removes a subscription
func (r *SubscriptionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SubscriptionModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete subscription", "id", id, "error", result.Error)
		return fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", id)
	}

	return nil
}

// checkTargetRow carries the joined columns of one poll-cycle target.
type checkTargetRow struct {
	ID           uint
	SubscriberID uint
	SubType      string
	Emailed      bool
	Triggered    bool
	LastChanged  *time.Time
	GraceHours   int
	NotifyType   string
	ThresholdKBs int64   `gorm:"column:threshold_kbs"`
	AvgKBs       float64 `gorm:"column:avg_kbs"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Email        string
	UnsubsAuth   string
	PrefAuth     string
	RouterID     uint
}

// ListConfirmedByType returns every subscription of one type whose
// subscriber has confirmed, joined with delivery details
func (r *SubscriptionRepository) ListConfirmedByType(ctx context.Context, t subscription.Type) ([]*subscription.CheckTarget, error) {
	var rows []checkTargetRow

	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Select("subscriptions.*, subscribers.email, subscribers.unsubs_auth, subscribers.pref_auth, subscribers.router_id").
		Joins("JOIN subscribers ON subscribers.id = subscriptions.subscriber_id").
		Where("subscriptions.sub_type = ? AND subscribers.confirmed = ?", string(t), true).
		Scan(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list confirmed subscriptions", "type", t, "error", err)
		return nil, fmt.Errorf("failed to list confirmed subscriptions: %w", err)
	}

	targets := make([]*subscription.CheckTarget, 0, len(rows))
	for _, row := range rows {
		entity, err := subscription.Reconstruct(subscription.ReconstructParams{
			ID:           row.ID,
			SubscriberID: row.SubscriberID,
			Type:         subscription.Type(row.SubType),
			Emailed:      row.Emailed,
			Triggered:    row.Triggered,
			LastChanged:  row.LastChanged,
			GraceHours:   row.GraceHours,
			NotifyType:   subscription.NotifyType(row.NotifyType),
			ThresholdKBs: row.ThresholdKBs,
			AvgKBs:       row.AvgKBs,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
		if err != nil {
			r.logger.Warnw("failed to reconstruct subscription, skipping", "id", row.ID, "error", err)
			continue
		}
		targets = append(targets, &subscription.CheckTarget{
			Subscription: entity,
			Email:        row.Email,
			UnsubsAuth:   row.UnsubsAuth,
			PrefAuth:     row.PrefAuth,
			RouterID:     row.RouterID,
		})
	}

	return targets, nil
}
