package store

import (
	"crypto/rand"
	"time"

	"gorm.io/gorm"
)

// Preference stores a persisted key-value preference (language, currency).
type Preference struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for Preference
func (Preference) TableName() string {
	return "preferences"
}

// CachedSession stores the backend session so sign-in survives restarts.
// At most one row exists.
type CachedSession struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token" gorm:"type:text"`
	RefreshToken string    `json:"refresh_token" gorm:"type:text"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnalysisRecord is the local mirror of an analysis persisted to the
// backend, kept for offline history.
type AnalysisRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"index:idx_user_created" json:"user_id"`
	Question     string    `json:"question" gorm:"type:text"`
	Answer       string    `json:"answer" gorm:"type:text"`
	DocumentType string    `json:"document_type"`
	Language     string    `json:"language"`
	TokensUsed   int       `json:"tokens_used"`
	SourceImage  string    `json:"source_image,omitempty"`
	CreatedAt    time.Time `gorm:"index:idx_user_created" json:"created_at"`
}

// BeforeCreate hook for AnalysisRecord
func (a *AnalysisRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateID("analysis")
	}
	return nil
}

// BeforeCreate hook for CachedSession
func (s *CachedSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = "current"
	}
	return nil
}

// generateID creates a unique ID with nanosecond precision
func generateID(prefix string) string {
	return prefix + "_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

// randomString generates a cryptographically secure random string
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
