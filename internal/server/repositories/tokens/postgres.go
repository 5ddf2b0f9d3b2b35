package tokens

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/dbx"
	"github.com/dmitrijs2005/tokenauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) error {
	query := `
		INSERT INTO tokens (access_token, refresh_token, expires_at, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		token.AccessToken, token.RefreshToken, token.ExpiresAt, token.UserID, token.CreatedAt, token.UpdatedAt,
	).Scan(&token.ID)
	if err != nil {
		return common.NewStorageError("tokens.create", err)
	}
	return nil
}

func (r *PostgresRepository) FindByAccessToken(ctx context.Context, accessToken string) (*models.Token, error) {
	query := `
		SELECT id, access_token, refresh_token, expires_at, user_id, created_at, updated_at
		FROM tokens
		WHERE access_token = $1
	`
	t := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, accessToken).Scan(
		&t.ID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.NewStorageError("tokens.find", err)
	}
	return t, nil
}

func (r *PostgresRepository) Rotate(ctx context.Context, token *models.Token, previousRefresh string) error {
	query := `
		UPDATE tokens
		SET access_token = $3, refresh_token = $4, expires_at = $5, updated_at = $6
		WHERE id = $1 AND refresh_token = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		token.ID, previousRefresh, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.UpdatedAt)
	if err != nil {
		return common.NewStorageError("tokens.rotate", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return common.NewStorageError("tokens.rotate", err)
	}
	if n == 0 {
		return common.ErrVersionConflict
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM tokens
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return common.NewStorageError("tokens.delete", err)
	}
	return nil
}
