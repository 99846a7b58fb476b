package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	CategoryGeneral   = "general"
	CategoryCommunity = "community"
	CategoryEvents    = "events"
	CategoryFeatures  = "features"

	// MaxOptions matches the number reactions a Discord poll message offers.
	MaxOptions = 10
)

var Categories = map[string]struct{}{
	CategoryGeneral:   {},
	CategoryCommunity: {},
	CategoryEvents:    {},
	CategoryFeatures:  {},
}

type Poll struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description *string      `gorm:"type:text" json:"description"`
	Category    string       `gorm:"type:text;not null;default:'general'" json:"category"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null;index" json:"createdBy,string"`
	ExpiresAt   *time.Time   `gorm:"column:expires_at" json:"expiresAt"`
	IsActive    bool         `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsAnonymous bool         `gorm:"column:is_anonymous;not null;default:false" json:"isAnonymous"`
	CreatedAt   time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updatedAt"`

	Options []Option `gorm:"-" json:"options"`
}

func (Poll) TableName() string { return "polls" }

// OpenAt reports whether the poll accepts votes at now.
func (p Poll) OpenAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

type Option struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	PollID    snowflake.ID `gorm:"column:poll_id;not null;index" json:"pollId,string"`
	Text      string       `gorm:"type:text;not null" json:"text"`
	Position  int          `gorm:"column:position;not null;default:0" json:"order"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Option) TableName() string { return "poll_options" }

// Vote is one user's choice in a poll. A user votes at most once per poll.
type Vote struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	PollID    snowflake.ID `gorm:"column:poll_id;not null;uniqueIndex:idx_poll_votes_poll_user" json:"pollId,string"`
	OptionID  snowflake.ID `gorm:"column:option_id;not null;index" json:"optionId,string"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:idx_poll_votes_poll_user" json:"userId,string"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Vote) TableName() string { return "poll_votes" }

type OptionResult struct {
	OptionID snowflake.ID `json:"optionId,string"`
	Text     string       `json:"text"`
	Votes    int64        `json:"votes"`
}

type Results struct {
	PollID     snowflake.ID   `json:"pollId,string"`
	TotalVotes int64          `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}
