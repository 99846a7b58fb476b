package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AccessToken is a personal bearer credential. Lookups go through the hash
// of the secret; the secret itself is kept sealed for the owner's listing.
type AccessToken struct {
	ID           snowflake.ID                `gorm:"primaryKey"`
	UserID       snowflake.ID                `gorm:"column:user_id;not null;index"`
	SecretHash   string                      `gorm:"column:secret_hash;type:text;not null;uniqueIndex"`
	SecretHint   string                      `gorm:"column:secret_hint;type:text;not null"`
	SecretSealed datatypes.JSON              `gorm:"column:secret_sealed;type:jsonb"`
	Name         string                      `gorm:"type:text;not null"`
	Permissions  datatypes.JSONSlice[string] `gorm:"column:permissions;type:jsonb;not null"`
	ExpiresAt    *time.Time                  `gorm:"column:expires_at"`
	LastUsedAt   *time.Time                  `gorm:"column:last_used_at"`
	IsActive     bool                        `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time                   `gorm:"not null"`
	UpdatedAt    time.Time                   `gorm:"not null"`
}

// TableName sets the database table name.
func (AccessToken) TableName() string { return "access_tokens" }

// ValidAt reports whether the token may authenticate at now.
func (t AccessToken) ValidAt(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
