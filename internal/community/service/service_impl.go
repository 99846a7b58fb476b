package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/community/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	announcementLimit = 50
	defaultUpcoming   = 3
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("community.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.listEvents(ctx, nil, 0)
}

// UpcomingEvents returns events starting now or later, soonest first.
func (s *Service) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultUpcoming
	}
	now := s.clock.Now()
	return s.listEvents(ctx, &now, limit)
}

func (s *Service) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	eventID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.FindEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *Service) CreateEvent(ctx context.Context, createdBy snowflake.ID, req domain.CreateEventRequest) (*domain.Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.MaxAttendees != nil && *req.MaxAttendees <= 0 {
		return nil, domain.ErrInvalidCapacity
	}

	now := s.clock.Now()
	event := &domain.Event{
		ID:           s.genID.Generate(),
		Title:        title,
		Description:  req.Description,
		StartsAt:     req.Date.UTC(),
		MaxAttendees: req.MaxAttendees,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id string, req domain.UpdateEventRequest) (*domain.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		event.Title = title
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.Date != nil {
		event.StartsAt = req.Date.UTC()
	}
	if req.MaxAttendees != nil {
		event.MaxAttendees = req.MaxAttendees
	}
	if req.AttendeeCount != nil {
		event.AttendeeCount = *req.AttendeeCount
	}
	if event.AttendeeCount < 0 {
		return nil, domain.ErrInvalidCapacity
	}
	if event.MaxAttendees != nil && (*event.MaxAttendees <= 0 || event.AttendeeCount > *event.MaxAttendees) {
		return nil, domain.ErrInvalidCapacity
	}
	event.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateEvent(ctx, s.db, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	eventID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteEvent(ctx, s.db, eventID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAnnouncements returns pinned announcements first, then newest first.
func (s *Service) ListAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	announcements, err := s.repo.ListAnnouncements(ctx, s.db, announcementLimit)
	if err != nil {
		return nil, err
	}
	if announcements == nil {
		announcements = []domain.Announcement{}
	}
	return announcements, nil
}

func (s *Service) CreateAnnouncement(ctx context.Context, authorID snowflake.ID, req domain.CreateAnnouncementRequest) (*domain.Announcement, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, domain.ErrInvalidContent
	}

	now := s.clock.Now()
	announcement := &domain.Announcement{
		ID:        s.genID.Generate(),
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		IsPinned:  req.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertAnnouncement(ctx, s.db, announcement); err != nil {
		return nil, err
	}
	return announcement, nil
}

func (s *Service) listEvents(ctx context.Context, from *time.Time, limit int) ([]domain.Event, error) {
	events, err := s.repo.ListEvents(ctx, s.db, from, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
