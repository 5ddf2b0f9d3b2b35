// Package tokens declares the token store: one row per issued
// access/refresh pair.
package tokens

import (
	"context"

	"github.com/dmitrijs2005/tokenauth/internal/server/models"
)

type Repository interface {
	// Create inserts token and fills in its generated ID.
	Create(ctx context.Context, token *models.Token) error

	// FindByAccessToken returns common.ErrorNotFound for an unknown value.
	FindByAccessToken(ctx context.Context, accessToken string) (*models.Token, error)

	// Rotate overwrites the values of token.ID only while its refresh token
	// still equals previousRefresh. A lost race returns
	// common.ErrVersionConflict.
	Rotate(ctx context.Context, token *models.Token, previousRefresh string) error

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}
