package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/output"
	"github.com/joescharf/vibejira/internal/store"
)

var (
	userEmail    string
	userPassword string
)

// readPasswordFunc prompts for a password, replaceable in tests.
var readPasswordFunc = promptPassword

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an API user",
	Long: `Create a user that can obtain API tokens.

Without --password the password is read from the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userCreateRun(cmd.Context(), args[0])
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an API token for a user",
	Long:  "Print a bearer token for the user without asking for the password.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userTokenRun(cmd.Context(), args[0])
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (prompted when omitted)")
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userTokenCmd)
	rootCmd.AddCommand(userCmd)
}

func userCreateRun(ctx context.Context, username string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password := userPassword
	if password == "" {
		if password, err = readPasswordFunc(); err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	if dryRun {
		ui.DryRunMsg("Would create user %s", username)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	authn, err := newAuthenticator(cfg, s)
	if err != nil {
		return err
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return err
	}

	u := &models.User{Username: username, Email: userEmail, PasswordHash: hash}
	if err := s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	ui.Success("Created user %s (id %d)", output.Cyan(username), u.ID)
	return nil
}

func userTokenRun(ctx context.Context, username string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	authn, err := newAuthenticator(cfg, s)
	if err != nil {
		return err
	}

	u, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("user not found: %s", username)
	}
	if err != nil {
		return err
	}

	token, err := authn.Token(u)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(ui.Out, token)
	return nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; pass --password")
	}

	fmt.Fprint(ui.ErrOut, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(ui.ErrOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(ui.ErrOut, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(ui.ErrOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
