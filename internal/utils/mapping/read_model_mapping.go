package mapping

import (
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/models"
)

// ToDomainQuoteReadModel converts a quote_read_models row to its domain projection
func ToDomainQuoteReadModel(m models.QuoteReadModel) domain.QuoteReadModel {
	return domain.QuoteReadModel{
		TenantID:      m.TenantID,
		AggregateID:   m.AggregateID,
		QuoteID:       m.QuoteID,
		ProductID:     m.ProductID,
		QuoteType:     domain.QuoteType(m.QuoteType),
		WorkflowState: domain.QuoteState(m.WorkflowState),
		QuoteNumber:   m.QuoteNumber,
		PolicyNumber:  m.PolicyNumber,
		TotalPayable:  m.TotalPayable,
		CurrencyCode:  m.CurrencyCode,
		Bindable:      m.Bindable,
		CreatedAt:     m.CreatedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}

// ToDomainPolicyReadModel converts a policy_read_models row to its domain projection
func ToDomainPolicyReadModel(m models.PolicyReadModel) domain.PolicyReadModel {
	return domain.PolicyReadModel{
		TenantID:                  m.TenantID,
		AggregateID:               m.AggregateID,
		PolicyID:                  m.PolicyID,
		PolicyNumber:              m.PolicyNumber,
		ProductID:                 m.ProductID,
		InceptionDate:             m.InceptionDate,
		ExpiryDate:                m.ExpiryDate,
		CancellationEffectiveDate: m.CancellationEffectiveDate,
		TransactionCount:          m.TransactionCount,
		TotalCharged:              m.TotalCharged,
		IssuedAt:                  m.IssuedAt,
		LastUpdatedAt:             m.LastUpdatedAt,
	}
}

// ToModelQuoteEvent converts an event envelope to its storage row
func ToModelQuoteEvent(env domain.EventEnvelope) (models.QuoteEvent, error) {
	payload, err := domain.MarshalEventPayload(env.Event)
	if err != nil {
		return models.QuoteEvent{}, err
	}
	return models.QuoteEvent{
		TenantID:         env.TenantID,
		AggregateID:      env.AggregateID,
		SequenceNumber:   env.Sequence,
		EventType:        env.EventType(),
		Payload:          payload,
		PerformingUserID: env.PerformingUserID,
		CreatedAt:        env.CreatedAt,
	}, nil
}

// ToDomainEventEnvelope decodes a stored event row
func ToDomainEventEnvelope(m models.QuoteEvent) (domain.EventEnvelope, error) {
	evt, err := domain.UnmarshalEvent(m.EventType, m.Payload)
	if err != nil {
		return domain.EventEnvelope{}, err
	}
	return domain.EventEnvelope{
		TenantID:         m.TenantID,
		AggregateID:      m.AggregateID,
		Sequence:         m.SequenceNumber,
		PerformingUserID: m.PerformingUserID,
		CreatedAt:        m.CreatedAt,
		Event:            evt,
	}, nil
}
