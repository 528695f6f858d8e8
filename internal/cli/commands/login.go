package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
)

type credentials struct {
	username string
	password string
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	creds := &credentials{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Reasoned server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runLogin(cmd.Context(), *creds, opts...)
		},
	}

	cmd.Flags().StringVar(&creds.username, "username", "", "Username (or set REASONED_USERNAME)")
	cmd.Flags().StringVar(&creds.password, "password", "", "Password (or set REASONED_PASSWORD, will prompt if not provided)")

	return cmd
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	creds := &credentials{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long: `Create an account on the selected server and log in.

Usernames need at least 3 characters and are stored lowercase.
Passwords need at least 6 characters and at most 72 bytes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runRegister(cmd.Context(), *creds, opts...)
		},
	}

	cmd.Flags().StringVar(&creds.username, "username", "", "Username (or set REASONED_USERNAME)")
	cmd.Flags().StringVar(&creds.password, "password", "", "Password (or set REASONED_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, creds credentials, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.completeCredentials(&creds); err != nil {
		return err
	}

	fmt.Fprintf(rt.Out, "Logging in to %s (%s)...\n", rt.server.Alias, rt.server.URL)

	resp, err := rt.client.Login(ctx, creds.username, creds.password)
	if err != nil {
		return fmt.Errorf("login failed: %w", explainAuthError(err))
	}

	fmt.Fprintln(rt.Out, "✓ Login successful!")
	printAuthSummary(rt, resp)
	return nil
}

func runRegister(ctx context.Context, creds credentials, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.completeCredentials(&creds); err != nil {
		return err
	}

	fmt.Fprintf(rt.Out, "Registering on %s (%s)...\n", rt.server.Alias, rt.server.URL)

	resp, err := rt.client.Register(ctx, creds.username, creds.password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", explainAuthError(err))
	}

	fmt.Fprintln(rt.Out, "✓ Account created!")
	printAuthSummary(rt, resp)
	return nil
}

func printAuthSummary(rt *runtime, resp *client.AuthResponse) {
	fmt.Fprintf(rt.Out, "  User: %s (%s)\n", resp.User, resp.Role)
	if resp.IsPaid {
		fmt.Fprintln(rt.Out, "  Plan: Paid")
	}
	fmt.Fprintf(rt.Out, "\nRun '%s dash' to open your dashboard.\n", Program)
}

// explainAuthError keeps network hints but drops the "login again" hint
// that makes no sense while logging in
func explainAuthError(err error) error {
	if client.IsUnauthorized(err) {
		return err
	}
	return explainAPIError(err)
}

// completeCredentials fills missing credentials from the environment,
// then from interactive prompts
func (rt *runtime) completeCredentials(creds *credentials) error {
	if creds.username == "" {
		creds.username = rt.Settings.Credentials.Username
	}
	if creds.password == "" {
		creds.password = rt.Settings.Credentials.Password
	}

	interactive := rt.Interactive != nil && rt.Interactive()

	if strings.TrimSpace(creds.username) == "" {
		if !interactive {
			return fmt.Errorf("username is required in non-interactive mode (use --username flag or REASONED_USERNAME env var)")
		}
		prompt := promptui.Prompt{Label: "Username"}
		username, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		creds.username = username
	}

	if creds.password == "" {
		if !interactive {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or REASONED_PASSWORD env var)")
		}
		fmt.Fprint(rt.ErrOut, "Password: ")
		bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(rt.ErrOut) // New line after password input
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		creds.password = string(bytePassword)
	}

	return nil
}
