package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

var errUnknownCommand = errors.New("unknown command")

// execIface is the command surface the prompt needs. App satisfies it.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	Ping(ctx context.Context) error
}

func dispatch(ctx context.Context, a execIface, cmd string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "profile":
		return a.Profile(ctx)
	case "ping":
		return a.Ping(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
// Command errors are printed and the loop goes on. Commands prompt on the
// same reader, so it must not be wrapped in another buffer.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tokenauth %s> ", statusFn(ctx)))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn("Available commands: whoami, profile, refresh, logout, ping, exit")
			} else {
				printlnFn("Available commands: register, login, ping, exit")
			}
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if err := dispatch(ctx, a, cmd); err != nil {
				printlnFn("error:", err)
			}
		}
	}
}
