package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/dbx"
	"github.com/dmitrijs2005/tokenauth/internal/server/models"
)

const emailConstraint = "users_email_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills in its generated ID.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return nil, common.NewStorageError("users.create", err)
	}

	query :=
		`INSERT INTO users (email, name, password_hash, salt, roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, user.Salt, roles, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, common.NewStorageError("users.create", err)
	}

	return user, nil
}

const selectUser = `SELECT id, email, name, password_hash, salt, roles, created_at, updated_at FROM users`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "users.get_by_email", selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "users.get_by_id", selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, op, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var roles []byte

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Salt, &roles, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.NewStorageError(op, err)
	}

	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &user.Roles); err != nil {
			return nil, common.NewStorageError(op, err)
		}
	}

	return user, nil
}

// Update writes the mutable profile fields of user.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	roles, err := encodeRoles(user.Roles)
	if err != nil {
		return common.NewStorageError("users.update", err)
	}

	query :=
		`UPDATE users
		 SET name = $2, password_hash = $3, salt = $4, roles = $5, updated_at = $6
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.PasswordHash, user.Salt, roles, user.UpdatedAt)
	if err != nil {
		return common.NewStorageError("users.update", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return common.NewStorageError("users.update", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func encodeRoles(roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	b, err := json.Marshal(roles)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
