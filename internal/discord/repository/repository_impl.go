package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/botcentral/internal/discord/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	connectionColumns = `id, user_id, discord_user_id, discord_username, discord_discriminator, discord_avatar, access_token, refresh_token, token_expires_at, scopes, is_active, created_at, updated_at`
	serverColumns     = `id, user_id, server_id, server_name, server_icon, server_owner, permissions, features, member_count, is_selected, created_at, updated_at`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// UpsertConnection keeps one row per user. The stored id and created_at
// survive a reconnect.
func (r *repo) UpsertConnection(ctx context.Context, db *gorm.DB, conn *domain.Connection) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"discord_user_id",
			"discord_username",
			"discord_discriminator",
			"discord_avatar",
			"access_token",
			"refresh_token",
			"token_expires_at",
			"scopes",
			"is_active",
			"updated_at",
		}),
	}).Create(conn).Error
}

func (r *repo) FindConnection(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Connection, error) {
	var conn domain.Connection
	err := db.WithContext(ctx).Raw(
		`SELECT `+connectionColumns+` FROM discord_connections WHERE user_id = ?`,
		userID,
	).Scan(&conn).Error
	if err != nil {
		return nil, err
	}
	if conn.ID == 0 {
		return nil, nil
	}
	return &conn, nil
}

func (r *repo) DeleteConnection(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM discord_connections WHERE user_id = ?`, userID)
	return res.RowsAffected, res.Error
}

// UpsertServer refreshes guild metadata and leaves the selection untouched.
func (r *repo) UpsertServer(ctx context.Context, db *gorm.DB, server *domain.Server) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "server_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"server_name",
			"server_icon",
			"server_owner",
			"permissions",
			"features",
			"member_count",
			"updated_at",
		}),
	}).Create(server).Error
}

func (r *repo) FindServer(ctx context.Context, db *gorm.DB, userID snowflake.ID, serverID string) (*domain.Server, error) {
	var server domain.Server
	err := db.WithContext(ctx).Raw(
		`SELECT `+serverColumns+` FROM discord_servers WHERE user_id = ? AND server_id = ?`,
		userID,
		serverID,
	).Scan(&server).Error
	if err != nil {
		return nil, err
	}
	if server.ID == 0 {
		return nil, nil
	}
	return &server, nil
}

func (r *repo) ListServers(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Server, error) {
	var servers []domain.Server
	err := db.WithContext(ctx).Raw(
		`SELECT `+serverColumns+` FROM discord_servers
		 WHERE user_id = ?
		 ORDER BY server_name ASC, id ASC`,
		userID,
	).Scan(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

func (r *repo) ClearSelected(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE discord_servers SET is_selected = ? WHERE user_id = ?`,
		false,
		userID,
	).Error
}

func (r *repo) SelectServer(ctx context.Context, db *gorm.DB, userID snowflake.ID, serverID string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE discord_servers SET is_selected = ? WHERE user_id = ? AND server_id = ?`,
		true,
		userID,
		serverID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteServers(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM discord_servers WHERE user_id = ?`, userID).Error
}
