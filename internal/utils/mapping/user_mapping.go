package mapping

import (
	"database/sql"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	m := models.User{
		UserID:       d.UserID,
		Username:     d.Username,
		Email:        sql.NullString{String: d.Email, Valid: d.Email != ""},
		PasswordHash: sql.NullString{String: d.PasswordHash, Valid: d.PasswordHash != ""},
		Name:         d.Name,
		AuditFields:  ToModelAuditFields(d.AuditFields),
		DeletedAt:    d.DeletedAt,
	}
	if d.RefreshTokenHash != "" {
		m.RefreshTokenHash = sql.NullString{String: d.RefreshTokenHash, Valid: true}
	}
	if d.RefreshTokenExpiryTime != nil {
		m.RefreshTokenExpiryTime = sql.NullTime{Time: *d.RefreshTokenExpiryTime, Valid: true}
	}
	return m
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	d := domain.User{
		UserID:           m.UserID,
		Username:         m.Username,
		Email:            m.Email.String,
		PasswordHash:     m.PasswordHash.String,
		Name:             m.Name,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
		DeletedAt:        m.DeletedAt,
		RefreshTokenHash: m.RefreshTokenHash.String,
	}
	if m.RefreshTokenExpiryTime.Valid {
		expiry := m.RefreshTokenExpiryTime.Time
		d.RefreshTokenExpiryTime = &expiry
	}
	return d
}

// ToDomainUserSlice converts a slice of model Users to a slice of domain Users
func ToDomainUserSlice(ms []models.User) []domain.User {
	ds := make([]domain.User, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainUser(m)
	}
	return ds
}
