package mapping

import (
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/models"
)

// The audit column set is identical on both sides, so the structs convert directly.

func ToModelAuditFields(d domain.AuditFields) models.AuditFields {
	return models.AuditFields(d)
}

func ToDomainAuditFields(m models.AuditFields) domain.AuditFields {
	return domain.AuditFields(m)
}
