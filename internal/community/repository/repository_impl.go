package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/community/domain"
	"gorm.io/gorm"
)

const (
	eventColumns        = `id, title, description, starts_at, attendee_count, max_attendees, created_by, created_at, updated_at`
	announcementColumns = `id, title, content, author_id, is_pinned, created_at, updated_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Description,
		event.StartsAt,
		event.AttendeeCount,
		event.MaxAttendees,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) UpdateEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`UPDATE events
		 SET title = ?, description = ?, starts_at = ?, attendee_count = ?, max_attendees = ?, updated_at = ?
		 WHERE id = ?`,
		event.Title,
		event.Description,
		event.StartsAt,
		event.AttendeeCount,
		event.MaxAttendees,
		event.UpdatedAt,
		event.ID,
	).Error
}

func (r *repo) DeleteEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM events WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	var event domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

// ListEvents orders by start time. A nil from lists every event.
func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, from *time.Time, limit int) ([]domain.Event, error) {
	stmt := db.WithContext(ctx).Model(&domain.Event{})
	if from != nil {
		stmt = stmt.Where("starts_at >= ?", *from)
	}
	stmt = stmt.Order("starts_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var events []domain.Event
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) InsertAnnouncement(ctx context.Context, db *gorm.DB, announcement *domain.Announcement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO announcements (`+announcementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		announcement.ID,
		announcement.Title,
		announcement.Content,
		announcement.AuthorID,
		announcement.IsPinned,
		announcement.CreatedAt,
		announcement.UpdatedAt,
	).Error
}

func (r *repo) ListAnnouncements(ctx context.Context, db *gorm.DB, limit int) ([]domain.Announcement, error) {
	var announcements []domain.Announcement
	err := db.WithContext(ctx).Raw(
		`SELECT `+announcementColumns+` FROM announcements
		 ORDER BY is_pinned DESC, created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	).Scan(&announcements).Error
	if err != nil {
		return nil, err
	}
	return announcements, nil
}
