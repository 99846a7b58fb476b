package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Event struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Title         string       `gorm:"type:text;not null" json:"title"`
	Description   *string      `gorm:"type:text" json:"description"`
	StartsAt      time.Time    `gorm:"column:starts_at;not null;index" json:"date"`
	AttendeeCount int          `gorm:"column:attendee_count;not null;default:0" json:"attendeeCount"`
	MaxAttendees  *int         `gorm:"column:max_attendees" json:"maxAttendees"`
	CreatedBy     snowflake.ID `gorm:"column:created_by;not null" json:"createdBy,string"`
	CreatedAt     time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Event) TableName() string { return "events" }

type Announcement struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	AuthorID  snowflake.ID `gorm:"column:author_id;not null" json:"authorId,string"`
	IsPinned  bool         `gorm:"column:is_pinned;not null;default:false" json:"isPinned"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Announcement) TableName() string { return "announcements" }
