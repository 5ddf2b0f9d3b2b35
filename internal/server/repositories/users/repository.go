// Package users stores registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/tokenauth/internal/server/models"
)

// Repository is the user store. Lookups return common.ErrorNotFound when no
// row matches; Create returns common.ErrorAlreadyExists for a taken email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
