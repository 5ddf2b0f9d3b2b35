package models

import "time"

// Token is one issued access/refresh pair. A refresh rotates the row in
// place, so ID and UserID are stable for the token's whole life while
// UpdatedAt marks the last issue.
type Token struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
