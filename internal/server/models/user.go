// Package models holds the persistent entities of the server.
package models

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
)

// User is a registered account. Email is stored lowercased and is unique.
// Roles holds extra roles only; the base role is implied.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Salt         string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllRoles returns the stored roles plus common.BaseRole, without
// duplicates, in stored order.
func (u *User) AllRoles() []string {
	roles := make([]string, 0, len(u.Roles)+1)
	for _, r := range u.Roles {
		if r != "" && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	if !slices.Contains(roles, common.BaseRole) {
		roles = append(roles, common.BaseRole)
	}
	return roles
}
