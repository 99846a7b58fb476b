package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/poll/domain"
	"gorm.io/gorm"
)

const (
	pollColumns   = `id, title, description, category, created_by, expires_at, is_active, is_anonymous, created_at, updated_at`
	optionColumns = `id, poll_id, text, position, created_at`
	voteColumns   = `id, poll_id, option_id, user_id, created_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPoll(ctx context.Context, db *gorm.DB, poll *domain.Poll) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO polls (`+pollColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		poll.ID,
		poll.Title,
		poll.Description,
		poll.Category,
		poll.CreatedBy,
		poll.ExpiresAt,
		poll.IsActive,
		poll.IsAnonymous,
		poll.CreatedAt,
		poll.UpdatedAt,
	).Error
}

func (r *repo) UpdatePoll(ctx context.Context, db *gorm.DB, poll *domain.Poll) error {
	return db.WithContext(ctx).Exec(
		`UPDATE polls
		 SET title = ?, description = ?, category = ?, expires_at = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		poll.Title,
		poll.Description,
		poll.Category,
		poll.ExpiresAt,
		poll.IsActive,
		poll.UpdatedAt,
		poll.ID,
	).Error
}

// DeletePoll removes the poll together with its options and votes.
func (r *repo) DeletePoll(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(`DELETE FROM poll_votes WHERE poll_id = ?`, id).Error; err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM poll_options WHERE poll_id = ?`, id).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM polls WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindPoll(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Poll, error) {
	var poll domain.Poll
	err := db.WithContext(ctx).Raw(
		`SELECT `+pollColumns+` FROM polls WHERE id = ?`,
		id,
	).Scan(&poll).Error
	if err != nil {
		return nil, err
	}
	if poll.ID == 0 {
		return nil, nil
	}
	return &poll, nil
}

func (r *repo) ListPolls(ctx context.Context, db *gorm.DB, category string) ([]domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var polls []domain.Poll
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&polls).Error; err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *repo) InsertOption(ctx context.Context, db *gorm.DB, option *domain.Option) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO poll_options (`+optionColumns+`) VALUES (?, ?, ?, ?, ?)`,
		option.ID,
		option.PollID,
		option.Text,
		option.Position,
		option.CreatedAt,
	).Error
}

func (r *repo) ListOptions(ctx context.Context, db *gorm.DB, pollIDs []snowflake.ID) ([]domain.Option, error) {
	if len(pollIDs) == 0 {
		return nil, nil
	}
	var options []domain.Option
	err := db.WithContext(ctx).Raw(
		`SELECT `+optionColumns+` FROM poll_options
		 WHERE poll_id IN ?
		 ORDER BY poll_id, position ASC, id ASC`,
		pollIDs,
	).Scan(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (r *repo) CountOptions(ctx context.Context, db *gorm.DB, pollID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM poll_options WHERE poll_id = ?`,
		pollID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) InsertVote(ctx context.Context, db *gorm.DB, vote *domain.Vote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO poll_votes (`+voteColumns+`) VALUES (?, ?, ?, ?, ?)`,
		vote.ID,
		vote.PollID,
		vote.OptionID,
		vote.UserID,
		vote.CreatedAt,
	).Error
}

func (r *repo) FindVote(ctx context.Context, db *gorm.DB, pollID, userID snowflake.ID) (*domain.Vote, error) {
	var vote domain.Vote
	err := db.WithContext(ctx).Raw(
		`SELECT `+voteColumns+` FROM poll_votes WHERE poll_id = ? AND user_id = ?`,
		pollID,
		userID,
	).Scan(&vote).Error
	if err != nil {
		return nil, err
	}
	if vote.ID == 0 {
		return nil, nil
	}
	return &vote, nil
}

func (r *repo) CountVotesByOption(ctx context.Context, db *gorm.DB, pollID snowflake.ID) ([]domain.OptionResult, error) {
	var results []domain.OptionResult
	err := db.WithContext(ctx).Raw(
		`SELECT o.id AS option_id, o.text AS text, COUNT(v.id) AS votes
		 FROM poll_options o
		 LEFT JOIN poll_votes v ON v.option_id = o.id
		 WHERE o.poll_id = ?
		 GROUP BY o.id, o.text, o.position
		 ORDER BY o.position ASC, o.id ASC`,
		pollID,
	).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
