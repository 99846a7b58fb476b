package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) error
	UpdateEvent(ctx context.Context, db *gorm.DB, event *Event) error
	DeleteEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Event, error)
	ListEvents(ctx context.Context, db *gorm.DB, from *time.Time, limit int) ([]Event, error)

	InsertAnnouncement(ctx context.Context, db *gorm.DB, announcement *Announcement) error
	ListAnnouncements(ctx context.Context, db *gorm.DB, limit int) ([]Announcement, error)
}

type Service interface {
	ListEvents(ctx context.Context) ([]Event, error)
	UpcomingEvents(ctx context.Context, limit int) ([]Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, createdBy snowflake.ID, req CreateEventRequest) (*Event, error)
	UpdateEvent(ctx context.Context, id string, req UpdateEventRequest) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListAnnouncements(ctx context.Context) ([]Announcement, error)
	CreateAnnouncement(ctx context.Context, authorID snowflake.ID, req CreateAnnouncementRequest) (*Announcement, error)
}

type CreateEventRequest struct {
	Title        string    `json:"title" binding:"required,max=255"`
	Description  *string   `json:"description"`
	Date         time.Time `json:"date" binding:"required"`
	MaxAttendees *int      `json:"maxAttendees"`
}

type UpdateEventRequest struct {
	Title         *string    `json:"title" binding:"omitempty,max=255"`
	Description   *string    `json:"description"`
	Date          *time.Time `json:"date"`
	AttendeeCount *int       `json:"attendeeCount"`
	MaxAttendees  *int       `json:"maxAttendees"`
}

type CreateAnnouncementRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Content  string `json:"content" binding:"required"`
	IsPinned bool   `json:"isPinned"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidContent  = errors.New("invalid_content")
	ErrInvalidCapacity = errors.New("invalid_capacity")
	ErrNotFound        = errors.New("not_found")
)
