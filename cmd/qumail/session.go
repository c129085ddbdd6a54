package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pterm/pterm"
	"github.com/qumail/qumail-client/internal/app"
	"github.com/qumail/qumail-client/internal/auth"
	"github.com/qumail/qumail-client/internal/auth/providers"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/qumail/qumail-client/internal/tui"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `qumail login` first")

// identity is what whoami and login print. It never includes the token.
type identity struct {
	UserID     string     `json:"userId" yaml:"userId"`
	Email      string     `json:"email" yaml:"email"`
	SignedInAt time.Time  `json:"signedInAt" yaml:"signedInAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

func newIdentity(cred *session.Credential) identity {
	id := identity{
		UserID:     cred.UserID,
		Email:      cred.Email,
		SignedInAt: cred.IssuedAt,
	}
	if exp, ok := tokenExpiry(cred.Token); ok {
		id.ExpiresAt = &exp
	}
	return id
}

// tokenExpiry reads the exp claim of a JWT session token without verifying
// it. The backend remains the authority on validity.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func printIdentity(id identity) error {
	f, _ := parseFormat(outputFormat)
	if f != formatText {
		return writeValue(os.Stdout, f, id)
	}

	data := pterm.TableData{
		{"User ID", id.UserID},
		{"Email", id.Email},
		{"Signed in", id.SignedInAt.Local().Format(time.RFC1123)},
	}
	if id.ExpiresAt != nil {
		status := id.ExpiresAt.Local().Format(time.RFC1123)
		if time.Now().After(*id.ExpiresAt) {
			status += " (expired)"
		}
		data = append(data, []string{"Expires", status})
	}
	return pterm.DefaultTable.WithData(data).Render()
}

func newLoginCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through your identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var coord *auth.Coordinator
			if err := app.Populate(cfg, &coord); err != nil {
				return err
			}
			cred, err := runLogin(cmd.Context(), coord, plain)
			if err != nil {
				return err
			}
			if f, _ := parseFormat(outputFormat); f == formatText {
				pterm.Success.Printfln("Signed in as %s", cred.Email)
				return nil
			}
			return printIdentity(newIdentity(cred))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Do not show the interactive login screen")
	return cmd
}

func runLogin(ctx context.Context, coord *auth.Coordinator, plain bool) (*session.Credential, error) {
	attempt, err := coord.StartLogin(ctx)
	if err != nil {
		return nil, err
	}

	if plain {
		pterm.Info.Println("Complete the sign-in in your browser. Press Ctrl+C to cancel.")
	} else {
		info, _ := providers.Lookup(coord.Provider().Name())
		if err := tui.RunLogin(attempt, info, os.Stdin, os.Stderr); err != nil {
			return nil, err
		}
	}

	cred, err := attempt.Wait(context.Background())
	switch {
	case errors.Is(err, auth.ErrCancelledByUser):
		return nil, fmt.Errorf("sign-in cancelled: %w", err)
	case err != nil:
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}
	return cred, nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var store session.Store
			if err := app.Populate(cfg, &store); err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var store session.Store
			if err := app.Populate(cfg, &store); err != nil {
				return err
			}
			id, err := currentIdentity(store)
			if err != nil {
				return err
			}
			return printIdentity(id)
		},
	}
}

func currentIdentity(store session.Store) (identity, error) {
	cred, ok, err := store.Load()
	if err != nil {
		return identity{}, err
	}
	if !ok {
		return identity{}, errNotSignedIn
	}
	return newIdentity(cred), nil
}
