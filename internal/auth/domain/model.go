// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusTrialing = "trialing"
)

// User is a dashboard account and the owner of its subscription state.
type User struct {
	ID                    snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Email                 string       `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	DisplayName           string       `gorm:"column:display_name;type:text;not null;default:''" json:"displayName"`
	PasswordHash          *string      `gorm:"column:password_hash;type:text" json:"-"`
	SubscriptionTier      string       `gorm:"column:subscription_tier;type:text;not null;default:'free'" json:"subscriptionTier"`
	SubscriptionStatus    string       `gorm:"column:subscription_status;type:text;not null;default:'active'" json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time   `gorm:"column:subscription_expires_at" json:"subscriptionExpiresAt"`
	CreatedAt             time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
