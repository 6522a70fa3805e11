package mappers

import (
	"fmt"

	"torweather/internal/domain/subscriber"
	"torweather/internal/infrastructure/persistence/models"
)

// SubscriberMapper handles the conversion between domain entities and persistence models
type SubscriberMapper interface {
	ToEntity(model *models.SubscriberModel) (*subscriber.Subscriber, error)
	ToModel(entity *subscriber.Subscriber) (*models.SubscriberModel, error)
	ToEntities(models []*models.SubscriberModel) ([]*subscriber.Subscriber, error)
}

// SubscriberMapperImpl is the concrete implementation of SubscriberMapper
type SubscriberMapperImpl struct{}

// NewSubscriberMapper creates a new subscriber mapper
func NewSubscriberMapper() SubscriberMapper {
	return &SubscriberMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *SubscriberMapperImpl) ToEntity(model *models.SubscriberModel) (*subscriber.Subscriber, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := subscriber.ReconstructSubscriber(
		model.ID,
		model.Email,
		model.RouterID,
		model.Confirmed,
		model.ConfirmAuth,
		model.UnsubsAuth,
		model.PrefAuth,
		model.SubDate,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscriber entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *SubscriberMapperImpl) ToModel(entity *subscriber.Subscriber) (*models.SubscriberModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.SubscriberModel{
		ID:          entity.ID(),
		Email:       entity.Email(),
		RouterID:    entity.RouterID(),
		Confirmed:   entity.Confirmed(),
		ConfirmAuth: entity.ConfirmAuth(),
		UnsubsAuth:  entity.UnsubsAuth(),
		PrefAuth:    entity.PrefAuth(),
		SubDate:     entity.SubDate(),
		CreatedAt:   entity.CreatedAt(),
		UpdatedAt:   entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *SubscriberMapperImpl) ToEntities(ms []*models.SubscriberModel) ([]*subscriber.Subscriber, error) {
	if ms == nil {
		return nil, nil
	}

	entities := make([]*subscriber.Subscriber, 0, len(ms))
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
