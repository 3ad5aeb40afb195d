package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/client/models"
	"github.com/dmitrijs2005/cropauth/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func newFlagSet(a *App, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// promptIfEmpty asks for v when a flag left it empty.
func (a *App) promptIfEmpty(v *string, prompt string) error {
	if *v != "" {
		return nil
	}
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func signup(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet(a, "signup")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(username, "Enter username"); err != nil {
		return err
	}
	if err := a.promptIfEmpty(email, "Enter email"); err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.client.Signup(ctx, *username, *email, string(password))
	if err != nil {
		return err
	}

	a.printAuth(res)
	return nil
}

func login(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet(a, "login")
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(username, "Enter username"); err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.client.Login(ctx, *username, string(password))
	if err != nil {
		return err
	}

	a.printAuth(res)
	return nil
}

func logout(ctx context.Context, a *App, _ []string) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func verify(ctx context.Context, a *App, _ []string) error {
	u, err := a.client.Verify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User: %s (%s)\nID: %s\n", u.Username, u.Email, u.ID)
	return nil
}

func sessions(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet(a, "sessions")
	userID := fs.String("user", "", "user id (default: token owner)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *userID == "" {
		u, err := a.client.Verify(ctx)
		if err != nil {
			return err
		}
		*userID = u.ID
	}

	list, err := a.client.ListSessions(ctx, *userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No sessions")
		return nil
	}

	printSessions(a, list)
	return nil
}

func resetPassword(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet(a, "reset-password")
	email := fs.String("e", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.promptIfEmpty(email, "Enter email"); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("email is required")
	}

	msg, err := a.client.RequestPasswordReset(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) printAuth(res *models.AuthResult) {
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", res.User.Username, res.User.ID)
	fmt.Fprintf(a.out, "Token: %s\n", res.Token)
}

func printSessions(a *App, list []*models.Session) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tACTIVE\tDURATION\tIP\tACTIVITIES\tREASON")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%d\t%s\n",
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.IsActive,
			(time.Duration(s.DurationSecs) * time.Second).String(),
			s.IPAddress,
			len(s.Activities),
			s.LogoutReason,
		)
	}
	_ = tw.Flush()
}
