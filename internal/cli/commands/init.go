package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/config"
)

type initOptions struct {
	alias       string
	openBrowser bool
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a Reasoned server to ./" + config.ConfigFileName,
		Long: `Add a Reasoned server to the project configuration.

The URL is reduced to its origin; a missing scheme defaults to https.

Examples:
  $ reasoned init quiz.example.com
  $ reasoned init http://localhost:5500 --alias local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Alias for the server (default: production, then server-N)")
	cmd.Flags().BoolVar(&opts.openBrowser, "open", false, "Open the registration page in a browser")

	return cmd
}

func runInit(rawURL string, opts *initOptions, envOpts ...Option) error {
	env := defaultEnv()
	for _, opt := range envOpts {
		opt(&env)
	}

	serverURL, err := config.NormalizeServerURL(rawURL)
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(env.Out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Servers: []config.Server{}}
		isNewConfig = true
	}

	server, added := cfg.AddServer(serverURL, opts.alias)
	if !added {
		fmt.Fprintf(env.Out, "Server %s already exists in %s (%s)\n", serverURL, config.ConfigFileName, server.Alias)
	} else {
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Fprintf(env.Out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, server.URL, server.Alias)
		} else {
			fmt.Fprintf(env.Out, "✓ Added server %s (%s) to ./%s\n", server.URL, server.Alias, config.ConfigFileName)
		}
	}

	if opts.openBrowser {
		registerURL := server.URL + "/register.html"
		fmt.Fprintf(env.Out, "\nOpening registration page at %s...\n", registerURL)
		if err := openBrowser(registerURL); err != nil {
			fmt.Fprintf(env.ErrOut, "⚠ Could not open browser automatically: %v\n", err)
			fmt.Fprintf(env.Out, "Please visit: %s\n", registerURL)
		}
	}

	fmt.Fprintln(env.Out, "\nNext steps:")
	fmt.Fprintf(env.Out, "  1. Run '%s register' to create an account\n", Program)
	fmt.Fprintf(env.Out, "  2. Run '%s login' to authenticate\n", Program)

	return nil
}
