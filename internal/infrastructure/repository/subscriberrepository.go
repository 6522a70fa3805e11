package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"torweather/internal/domain/subscriber"
	"torweather/internal/infrastructure/persistence/mappers"
	"torweather/internal/infrastructure/persistence/models"
	"torweather/internal/shared/logger"
)

// SubscriberRepository implements the subscriber repository interface
type SubscriberRepository struct {
	db     *gorm.DB
	mapper mappers.SubscriberMapper
	logger logger.Interface
}

// NewSubscriberRepository creates a new subscriber repository
func NewSubscriberRepository(db *gorm.DB, logger logger.Interface) subscriber.Repository {
	return &SubscriberRepository{
		db:     db,
		mapper: mappers.NewSubscriberMapper(),
		logger: logger,
	}
}

// Create creates a new subscriber
func (r *SubscriberRepository) Create(ctx context.Context, entity *subscriber.Subscriber) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscriber entity to model", "error", err)
		return fmt.Errorf("failed to map subscriber entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscriber in database", "email", model.Email, "error", err)
		return fmt.Errorf("failed to create subscriber: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscriber ID: %w", err)
	}

	r.logger.Infow("subscriber created", "id", model.ID, "router_id", model.RouterID)
	return nil
}

// GetByID retrieves a subscriber by ID
func (r *SubscriberRepository) GetByID(ctx context.Context, id uint) (*subscriber.Subscriber, error) {
	var model models.SubscriberModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscriber by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByEmailAndRouter retrieves the subscriber record for one email address
// watching one relay
func (r *SubscriberRepository) GetByEmailAndRouter(ctx context.Context, email string, routerID uint) (*subscriber.Subscriber, error) {
	var model models.SubscriberModel

	if err := r.db.WithContext(ctx).
		Where("email = ? AND router_id = ?", email, routerID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscriber by email and router", "router_id", routerID, "error", err)
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriberRepository) getByAuthKey(ctx context.Context, column, key string) (*subscriber.Subscriber, error) {
	var model models.SubscriberModel

	if err := r.db.WithContext(ctx).Where(column+" = ?", key).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscriber by auth key", "column", column, "error", err)
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByConfirmAuth retrieves a subscriber by confirmation key
func (r *SubscriberRepository) GetByConfirmAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.getByAuthKey(ctx, "confirm_auth", key)
}

// GetByUnsubsAuth retrieves a subscriber by unsubscribe key
func (r *SubscriberRepository) GetByUnsubsAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.getByAuthKey(ctx, "unsubs_auth", key)
}

// GetByPrefAuth retrieves a subscriber by preferences key
func (r *SubscriberRepository) GetByPrefAuth(ctx context.Context, key string) (*subscriber.Subscriber, error) {
	return r.getByAuthKey(ctx, "pref_auth", key)
}

// Update persists the subscriber's current state
func (r *SubscriberRepository) Update(ctx context.Context, entity *subscriber.Subscriber) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscriber entity to model", "error", err)
		return fmt.Errorf("failed to map subscriber entity: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.SubscriberModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update subscriber", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscriber: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscriber not found: %d", model.ID)
	}

	return nil
}

// Delete removes the subscriber; subscriptions go with it via the FK cascade
func (r *SubscriberRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SubscriberModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete subscriber", "id", id, "error", result.Error)
		return fmt.Errorf("failed to delete subscriber: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscriber not found: %d", id)
	}

	r.logger.Infow("subscriber deleted", "id", id)
	return nil
}

// ListConfirmedByRouter returns confirmed subscribers of one relay
func (r *SubscriberRepository) ListConfirmedByRouter(ctx context.Context, routerID uint) ([]*subscriber.Subscriber, error) {
	var subscriberModels []*models.SubscriberModel

	if err := r.db.WithContext(ctx).
		Where("router_id = ? AND confirmed = ?", routerID, true).
		Find(&subscriberModels).Error; err != nil {
		r.logger.Errorw("failed to list confirmed subscribers", "router_id", routerID, "error", err)
		return nil, fmt.Errorf("failed to list confirmed subscribers: %w", err)
	}

	return r.mapper.ToEntities(subscriberModels)
}
