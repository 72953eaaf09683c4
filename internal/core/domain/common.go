package domain

import (
	"encoding/json"
	"time"
)

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// NewAuditFields stamps a freshly created entity.
func NewAuditFields(by string, at time.Time) AuditFields {
	return AuditFields{CreatedAt: at, CreatedBy: by, LastUpdatedAt: at, LastUpdatedBy: by}
}

// Touch records a modification.
func (a *AuditFields) Touch(by string, at time.Time) {
	a.LastUpdatedAt = at
	a.LastUpdatedBy = by
}

// FormData is one captured revision of the answers entered on a quote form.
type FormData struct {
	FormDataID string          `json:"formDataID"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Clone returns a deep copy so that patches on one holder never leak into another.
func (f FormData) Clone() FormData {
	f.Data = append(json.RawMessage(nil), f.Data...)
	return f
}
