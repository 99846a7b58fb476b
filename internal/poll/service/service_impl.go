package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/clock"
	"github.com/smallbiznis/botcentral/internal/poll/domain"
	"github.com/smallbiznis/botcentral/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
		log:   p.Log.Named("poll.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, category string) ([]domain.Poll, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" {
		if _, ok := domain.Categories[category]; !ok {
			return nil, domain.ErrInvalidCategory
		}
	}
	polls, err := s.repo.ListPolls(ctx, s.db, category)
	if err != nil {
		return nil, err
	}
	if polls == nil {
		return []domain.Poll{}, nil
	}
	if err := s.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	poll, err := s.findPoll(ctx, s.db, pollID)
	if err != nil {
		return nil, err
	}
	polls := []domain.Poll{*poll}
	if err := s.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return &polls[0], nil
}

func (s *Service) Create(ctx context.Context, createdBy snowflake.ID, req domain.CreateRequest) (*domain.Poll, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	category, err := normalizeCategory(req.Category)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}
	texts, err := normalizeOptions(req.Options)
	if err != nil {
		return nil, err
	}

	poll := &domain.Poll{
		ID:          s.genID.Generate(),
		Title:       title,
		Description: req.Description,
		Category:    category,
		CreatedBy:   createdBy,
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
		IsAnonymous: req.IsAnonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
		Options:     make([]domain.Option, 0, len(texts)),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertPoll(ctx, tx, poll); err != nil {
			return err
		}
		for i, text := range texts {
			option := domain.Option{
				ID:        s.genID.Generate(),
				PollID:    poll.ID,
				Text:      text,
				Position:  i,
				CreatedAt: now,
			}
			if err := s.repo.InsertOption(ctx, tx, &option); err != nil {
				return err
			}
			poll.Options = append(poll.Options, option)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Poll, error) {
	poll, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		poll.Title = title
	}
	if req.Description != nil {
		poll.Description = req.Description
	}
	if req.Category != nil {
		if poll.Category, err = normalizeCategory(*req.Category); err != nil {
			return nil, err
		}
	}
	if req.ExpiresAt != nil {
		poll.ExpiresAt = req.ExpiresAt
	}
	if req.IsActive != nil {
		poll.IsActive = *req.IsActive
	}
	poll.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdatePoll(ctx, s.db, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	pollID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.DeletePoll(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *Service) AddOption(ctx context.Context, pollID string, req domain.AddOptionRequest) (*domain.Option, error) {
	id, err := parseID(pollID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.ErrInvalidOption
	}

	var option *domain.Option
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findPoll(ctx, tx, id); err != nil {
			return err
		}
		count, err := s.repo.CountOptions(ctx, tx, id)
		if err != nil {
			return err
		}
		if count >= domain.MaxOptions {
			return domain.ErrTooManyOptions
		}
		option = &domain.Option{
			ID:        s.genID.Generate(),
			PollID:    id,
			Text:      text,
			Position:  int(count),
			CreatedAt: s.clock.Now(),
		}
		return s.repo.InsertOption(ctx, tx, option)
	})
	if err != nil {
		return nil, err
	}
	return option, nil
}

func (s *Service) ListOptions(ctx context.Context, pollID string) ([]domain.Option, error) {
	poll, err := s.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return poll.Options, nil
}

// Vote records the user's choice. A second vote in the same poll is rejected
// by the (poll_id, user_id) unique index.
func (s *Service) Vote(ctx context.Context, pollID string, userID snowflake.ID, req domain.VoteRequest) (*domain.Vote, error) {
	poll, err := s.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !poll.OpenAt(now) {
		return nil, domain.ErrPollClosed
	}
	optionID, err := snowflake.ParseString(strings.TrimSpace(req.OptionID))
	if err != nil {
		return nil, domain.ErrInvalidOption
	}
	if !hasOption(poll.Options, optionID) {
		return nil, domain.ErrInvalidOption
	}

	vote := &domain.Vote{
		ID:        s.genID.Generate(),
		PollID:    poll.ID,
		OptionID:  optionID,
		UserID:    userID,
		CreatedAt: now,
	}
	if err := s.repo.InsertVote(ctx, s.db, vote); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyVoted
		}
		return nil, err
	}
	s.log.Debug("vote recorded",
		zap.String("poll_id", poll.ID.String()),
		zap.String("option_id", optionID.String()),
	)
	return vote, nil
}

// MyVote returns the user's vote, or nil when the user has not voted.
func (s *Service) MyVote(ctx context.Context, pollID string, userID snowflake.ID) (*domain.Vote, error) {
	id, err := parseID(pollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findPoll(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.repo.FindVote(ctx, s.db, id, userID)
}

func (s *Service) Results(ctx context.Context, pollID string) (*domain.Results, error) {
	id, err := parseID(pollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findPoll(ctx, s.db, id); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountVotesByOption(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	results := &domain.Results{PollID: id, Options: counts}
	if results.Options == nil {
		results.Options = []domain.OptionResult{}
	}
	for _, option := range results.Options {
		results.TotalVotes += option.Votes
	}
	return results, nil
}

func (s *Service) findPoll(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Poll, error) {
	poll, err := s.repo.FindPoll(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, domain.ErrNotFound
	}
	return poll, nil
}

func (s *Service) attachOptions(ctx context.Context, polls []domain.Poll) error {
	ids := make([]snowflake.ID, 0, len(polls))
	for _, poll := range polls {
		ids = append(ids, poll.ID)
	}
	options, err := s.repo.ListOptions(ctx, s.db, ids)
	if err != nil {
		return err
	}
	byPoll := make(map[snowflake.ID][]domain.Option, len(polls))
	for _, option := range options {
		byPoll[option.PollID] = append(byPoll[option.PollID], option)
	}
	for i := range polls {
		polls[i].Options = byPoll[polls[i].ID]
		if polls[i].Options == nil {
			polls[i].Options = []domain.Option{}
		}
	}
	return nil
}

func normalizeCategory(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return domain.CategoryGeneral, nil
	}
	if _, ok := domain.Categories[value]; !ok {
		return "", domain.ErrInvalidCategory
	}
	return value, nil
}

func normalizeOptions(values []string) ([]string, error) {
	if len(values) > domain.MaxOptions {
		return nil, domain.ErrTooManyOptions
	}
	texts := make([]string, 0, len(values))
	for _, value := range values {
		text := strings.TrimSpace(value)
		if text == "" {
			return nil, domain.ErrInvalidOption
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func hasOption(options []domain.Option, id snowflake.ID) bool {
	for _, option := range options {
		if option.ID == id {
			return true
		}
	}
	return false
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
