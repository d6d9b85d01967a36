package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/shared"
)

// AuthLogin exchanges credentials for a token and stores it in the session slot.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.enter(ctx, guard.PathLogin); err != nil {
		return err
	}

	creds, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "username", creds.Username)
	if err := r.machine.Login(ctx, creds); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, services.ErrorMessage(err))
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Logged in as %s\n", creds.Username)
}

// AuthRegister creates an account and logs into it.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.enter(ctx, guard.PathRegister); err != nil {
		return err
	}

	creds, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("registering", "username", creds.Username)
	if err := r.machine.Register(ctx, creds); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, services.ErrorMessage(err))
	}

	return r.writePlain("✓ Registered and logged in as %s\n", creds.Username)
}

// AuthLogout clears the session slot. Logging out without a session is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	if !r.session.HasToken() {
		return r.writePlain("Not logged in\n")
	}
	if err := r.machine.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthWhoAmI revalidates the stored token against the server.
func (r *Runner) AuthWhoAmI(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.enter(ctx, guard.PathSongs); err != nil {
		return err
	}

	user := r.machine.State().User
	if user == nil {
		return shared.ErrNotAuthenticated
	}
	if cmd.Bool("json") {
		return r.writeJSON(user, false)
	}
	return r.writePlain("%s\n", user.Username)
}

// AuthStatus reports the stored session without any network call.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	r.writePlainHeader("Session")
	r.writePlain("Backend: %s\n", r.backendName())
	r.writePlain("Server:  %s\n", r.config.API.BaseURL)

	if !r.session.HasToken() {
		return r.writePlain("Status:  ✗ Not logged in\n")
	}
	r.writePlain("Status:  ✓ Token stored\n")

	if entry, err := r.slotEntry(ctx); err != nil {
		r.logger.Warn("failed to read slot bookkeeping", "error", err)
	} else if entry != nil {
		r.writePlain("Saved:   %s\n", entry.UpdatedAt.Local().Format(time.RFC1123))
	}

	info, err := r.session.Inspect()
	if err != nil {
		r.logger.Debug("token is not a JWT", "error", err)
		return r.writePlain("Token:   opaque\n")
	}

	if info.Subject != "" {
		r.writePlain("User:    %s\n", info.Subject)
	}
	if info.IssuedAt != nil {
		r.writePlain("Issued:  %s\n", info.IssuedAt.Local().Format(time.RFC1123))
	}
	if info.ExpiresAt != nil {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired"
		}
		r.writePlain("Expires: %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
	}
	return nil
}

// credentials reads username and password from flags, prompting for anything missing.
func (r *Runner) credentials(cmd *cli.Command) (models.Credentials, error) {
	creds := models.Credentials{
		Username: strings.TrimSpace(cmd.String("username")),
		Password: cmd.String("password"),
	}

	var err error
	if creds.Username == "" {
		if creds.Username, err = r.readLine("Username: "); err != nil {
			return creds, err
		}
		creds.Username = strings.TrimSpace(creds.Username)
	}
	if creds.Password == "" {
		if creds.Password, err = r.readPassword("Password: "); err != nil {
			return creds, err
		}
	}

	if err := creds.Validate(); err != nil {
		return creds, fmt.Errorf("%w: %v", shared.ErrMissingArgument, err)
	}
	return creds, nil
}

// readPassword prompts without echo on a terminal and falls back to a plain line read otherwise.
func (r *Runner) readPassword(prompt string) (string, error) {
	f, ok := r.input.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r.readLine(prompt)
	}

	r.writePlain("%s", prompt)
	data, err := term.ReadPassword(int(f.Fd()))
	r.writePlain("\n")
	if err != nil {
		return "", fmt.Errorf("%w: failed to read password: %v", shared.ErrInvalidInput, err)
	}
	return string(data), nil
}
