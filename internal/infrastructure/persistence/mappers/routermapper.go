package mappers

import (
	"fmt"

	"torweather/internal/domain/router"
	"torweather/internal/infrastructure/persistence/models"
)

// RouterMapper handles the conversion between domain entities and persistence models
type RouterMapper interface {
	ToEntity(model *models.RouterModel) (*router.Router, error)
	ToModel(entity *router.Router) (*models.RouterModel, error)
	ToEntities(models []*models.RouterModel) ([]*router.Router, error)
}

// RouterMapperImpl is the concrete implementation of RouterMapper
type RouterMapperImpl struct{}

// NewRouterMapper creates a new router mapper
func NewRouterMapper() RouterMapper {
	return &RouterMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *RouterMapperImpl) ToEntity(model *models.RouterModel) (*router.Router, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := router.ReconstructRouter(
		model.ID,
		model.Fingerprint,
		model.Name,
		model.Welcomed,
		model.Up,
		model.Exit,
		model.Stable,
		model.Hibernating,
		model.Version,
		model.ObservedKBs,
		model.Contact,
		model.LastSeen,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct router entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *RouterMapperImpl) ToModel(entity *router.Router) (*models.RouterModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.RouterModel{
		ID:          entity.ID(),
		Fingerprint: entity.Fingerprint(),
		Name:        entity.Name(),
		Welcomed:    entity.Welcomed(),
		Up:          entity.Up(),
		Exit:        entity.Exit(),
		Stable:      entity.Stable(),
		Hibernating: entity.Hibernating(),
		Version:     entity.Version(),
		ObservedKBs: entity.ObservedKBs(),
		Contact:     entity.Contact(),
		LastSeen:    entity.LastSeen(),
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *RouterMapperImpl) ToEntities(ms []*models.RouterModel) ([]*router.Router, error) {
	if ms == nil {
		return nil, nil
	}

	entities := make([]*router.Router, 0, len(ms))
	for _, model := range ms {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}
