package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
)

// getSimpleText and getPassword are indirections swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Register prompts for e-mail, display name and password, creates the
// account and stores the session the server opens for it.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Register(ctx, userName, name, password)
	if err != nil {
		return err
	}

	printlnFn("Registered and logged in as", s.Username)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	a.logger.Debug(ctx, "logged in", "username", s.Username)
	printlnFn("Logged in as", s.Username, "until", s.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	s, err := a.authService.Refresh(ctx)
	if err != nil {
		return err
	}

	printlnFn("Token refreshed, valid until", s.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}

	printlnFn("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return err
	}

	printlnFn("id:   ", u.ID)
	printlnFn("email:", u.Email)
	printlnFn("name: ", u.Name)
	printlnFn("roles:", u.Roles)
	return nil
}

// Profile updates the display name and/or password. Empty answers keep the
// current value.
func (a *App) Profile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "New display name (empty to keep)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("New password (empty to keep)", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	if len(password) == 0 {
		password = nil
	}
	if namePtr == nil && password == nil {
		printlnFn("Nothing to change")
		return nil
	}

	u, err := a.authService.UpdateProfile(ctx, namePtr, password)
	if err != nil {
		return err
	}

	printlnFn("Profile updated:", u.Name)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.authService.Ping(ctx); err != nil {
		return err
	}

	printlnFn("Server is up")
	return nil
}
