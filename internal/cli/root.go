package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/commands"
	"github.com/reasoned-dev/reasoned/internal/config"
	"github.com/reasoned-dev/reasoned/internal/logger"
)

var version = "dev" // Will be set during build

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "reasoned",
	Short: "Reasoned - exam practice from the terminal",
	Long: `Reasoned CLI - Practice UTBK and TKA exams from your terminal.

Log in to a Reasoned server, read study materials, ask the tutor,
and generate, answer and review practice quizzes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			settings.Logging.Level = logLevel
		}

		if settings.Logging.File != "" {
			logger.InitFile(settings.Logging.Level, settings.Logging.Format, settings.Logging.File)
		} else {
			logger.Init(settings.Logging.Level, settings.Logging.Format)
		}
		commands.Globals.Settings = settings
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&commands.Globals.Server, "server", "s", "", "Server URL or alias from reasoned.json")
	flags.StringVarP(&commands.Globals.Output, "output", "o", "table", "Output format: table, json or yaml")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (or set LOG_LEVEL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reasoned version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewDashCmd())
	rootCmd.AddCommand(commands.NewMaterialsCmd())
	rootCmd.AddCommand(commands.NewMaterialCmd())
	rootCmd.AddCommand(commands.NewTutorCmd())
	rootCmd.AddCommand(commands.NewMetaCmd())
	rootCmd.AddCommand(commands.NewQuizCmd())
	rootCmd.AddCommand(commands.NewAPIBaseCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
