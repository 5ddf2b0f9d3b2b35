package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/tokenauth/internal/client/client"
	"github.com/dmitrijs2005/tokenauth/internal/client/config"
	"github.com/dmitrijs2005/tokenauth/internal/client/services"
	"github.com/dmitrijs2005/tokenauth/internal/logging"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the local session database and builds the API client.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("session database init error: %w", err)
	}

	apiClient, err := client.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		authService: services.NewAuthService(apiClient, db, l),
		db:          db,
		logger:      l,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

// Run executes args[0] as a single command, or starts the interactive
// prompt when args is empty. It returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	defer func() {
		if err := a.db.Close(); err != nil {
			a.logger.Error(ctx, "session database close error", "error", err)
		}
	}()

	if len(args) == 0 {
		printlnFn("tokenauth CLI (type 'help' for commands)")
		runREPL(ctx, a, a.status, a.reader)
		return 0
	}

	if err := dispatch(ctx, a, args[0]); err != nil {
		printlnFn("error:", err)
		return 1
	}
	return 0
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	_, err := a.authService.Current(ctx)
	return err == nil
}

func (a *App) status(ctx context.Context) string {
	s, err := a.authService.Current(ctx)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("(%s)", s.Username)
}
