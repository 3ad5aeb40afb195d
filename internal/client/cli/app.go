// Package cli implements the cropauth command-line tool: account signup,
// login and logout, token verification, session history and password reset
// requests against a running server.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/client"
	"github.com/dmitrijs2005/cropauth/internal/client/config"
)

const usage = `usage: cropauth [-a url] [-token token] [-timeout seconds] [-c file] <command> [flags]

commands:
  signup          create an account and print its token
  login           log in and print a token
  logout          end the session bound to the token
  verify          show the identity behind the token
  sessions        list session history (-user id, default: token owner)
  reset-password  request a password reset email
`

type command func(ctx context.Context, a *App, args []string) error

var commands = map[string]command{
	"signup":         signup,
	"login":          login,
	"logout":         logout,
	"verify":         verify,
	"sessions":       sessions,
	"reset-password": resetPassword,
}

type App struct {
	config *config.Config
	client *client.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config: cfg,
		client: client.New(cfg.ServerURL, cfg.Timeout).WithToken(cfg.Token),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run executes the subcommand found in args and returns the process exit
// code.
func (a *App) Run(ctx context.Context, args []string) int {
	name, rest := splitCommand(args)
	if name == "" || name == "help" {
		fmt.Fprint(a.out, usage)
		if name == "" {
			return 2
		}
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	if err := cmd(ctx, a, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(a.out, "error:", describe(err))
		return 1
	}
	return 0
}

// splitCommand skips the global flags owned by config and returns the
// subcommand name and its own arguments.
func splitCommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg, args[i+1:]
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if slices.Contains(config.GlobalFlags, arg) && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return "", nil
}

func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	}
	return err.Error()
}
