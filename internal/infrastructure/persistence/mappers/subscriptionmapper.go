package mappers

import (
	"fmt"

	"torweather/internal/domain/subscription"
	"torweather/internal/infrastructure/persistence/models"
)

// SubscriptionMapper handles the conversion between domain entities and persistence models
type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

// SubscriptionMapperImpl is the concrete implementation of SubscriptionMapper
type SubscriptionMapperImpl struct{}

// NewSubscriptionMapper creates a new subscription mapper
func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity
func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := subscription.Reconstruct(subscription.ReconstructParams{
		ID:           model.ID,
		SubscriberID: model.SubscriberID,
		Type:         subscription.Type(model.SubType),
		Emailed:      model.Emailed,
		Triggered:    model.Triggered,
		LastChanged:  model.LastChanged,
		GraceHours:   model.GraceHours,
		NotifyType:   subscription.NotifyType(model.NotifyType),
		ThresholdKBs: model.ThresholdKBs,
		AvgKBs:       model.AvgKBs,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.SubscriptionModel{
		ID:           entity.ID(),
		SubscriberID: entity.SubscriberID(),
		SubType:      string(entity.Type()),
		Emailed:      entity.Emailed(),
		Triggered:    entity.Triggered(),
		LastChanged:  entity.LastChanged(),
		GraceHours:   entity.GraceHours(),
		NotifyType:   string(entity.NotifyType()),
		ThresholdKBs: entity.ThresholdKBs(),
		AvgKBs:       entity.AvgKBs(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *SubscriptionMapperImpl) ToEntities(ms []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	if ms == nil {
		return nil, nil
	}

	entities := make([]*subscription.Subscription, 0, len(ms))
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
