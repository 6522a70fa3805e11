package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"torweather/internal/domain/router"
	"torweather/internal/infrastructure/persistence/mappers"
	"torweather/internal/infrastructure/persistence/models"
	"torweather/internal/shared/logger"
)

// RouterRepository implements the relay repository interface
type RouterRepository struct {
	db     *gorm.DB
	mapper mappers.RouterMapper
	logger logger.Interface
}

// NewRouterRepository creates a new router repository
func NewRouterRepository(db *gorm.DB, logger logger.Interface) router.Repository {
	return &RouterRepository{
		db:     db,
		mapper: mappers.NewRouterMapper(),
		logger: logger,
	}
}

// Create creates a new relay record
func (r *RouterRepository) Create(ctx context.Context, entity *router.Router) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map router entity to model", "error", err)
		return fmt.Errorf("failed to map router entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create router in database", "fingerprint", model.Fingerprint, "error", err)
		return fmt.Errorf("failed to create router: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set router ID: %w", err)
	}

	r.logger.Debugw("router created", "id", model.ID, "fingerprint", model.Fingerprint)
	return nil
}

// GetByID retrieves a relay by ID
func (r *RouterRepository) GetByID(ctx context.Context, id uint) (*router.Router, error) {
	var model models.RouterModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get router by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get router: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetByFingerprint retrieves a relay by its hex fingerprint
func (r *RouterRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*router.Router, error) {
	var model models.RouterModel

	if err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get router by fingerprint", "fingerprint", fingerprint, "error", err)
		return nil, fmt.Errorf("failed to get router: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update persists the relay's current state
func (r *RouterRepository) Update(ctx context.Context, entity *router.Router) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map router entity to model", "error", err)
		return fmt.Errorf("failed to map router entity: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.RouterModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update router", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update router: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("router not found: %d", model.ID)
	}

	return nil
}

// Delete removes a relay record
func (r *RouterRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.RouterModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete router", "id", id, "error", result.Error)
		return fmt.Errorf("failed to delete router: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("router not found: %d", id)
	}

	r.logger.Infow("router deleted", "id", id)
	return nil
}

// ListAll returns every tracked relay
func (r *RouterRepository) ListAll(ctx context.Context) ([]*router.Router, error) {
	var routerModels []*models.RouterModel

	if err := r.db.WithContext(ctx).Find(&routerModels).Error; err != nil {
		r.logger.Errorw("failed to list routers", "error", err)
		return nil, fmt.Errorf("failed to list routers: %w", err)
	}

	return r.mapper.ToEntities(routerModels)
}

// ListUnwelcomed returns up, stable relays whose operator has not been welcomed
func (r *RouterRepository) ListUnwelcomed(ctx context.Context) ([]*router.Router, error) {
	var routerModels []*models.RouterModel

	if err := r.db.WithContext(ctx).
		Where("welcomed = ? AND up = ? AND stable = ?", false, true, true).
		Find(&routerModels).Error; err != nil {
		r.logger.Errorw("failed to list unwelcomed routers", "error", err)
		return nil, fmt.Errorf("failed to list unwelcomed routers: %w", err)
	}

	return r.mapper.ToEntities(routerModels)
}
