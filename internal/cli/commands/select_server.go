package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/config"
	"github.com/reasoned-dev/reasoned/internal/cli/serverselect"
	"github.com/reasoned-dev/reasoned/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ reasoned select-server                          # Interactive selection
  $ reasoned select-server https://quiz.example.com # Select by URL
  $ reasoned select-server production               # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()))
			return runSelectServer(urlOrAlias, serverselect.PromptServerSelection, opts...)
		},
	}

	return cmd
}

func runSelectServer(urlOrAlias string, prompt func(*config.Config) (*config.Server, error), opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun '%s init' to create a configuration file", err, Program)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
	} else {
		server, err = prompt(cfg)
	}
	if err != nil {
		return err
	}

	users := userconfig.New(env.Settings.UserConfigPath())
	if err := users.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(env.Out, "Selected server: %s (%s)\n", server.Alias, server.URL)
	return nil
}
