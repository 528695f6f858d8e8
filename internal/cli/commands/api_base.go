package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAPIBaseCmd creates the api-base command
func NewAPIBaseCmd() *cobra.Command {
	var clearOverride bool

	cmd := &cobra.Command{
		Use:   "api-base [url]",
		Short: "Show or override the backend URL for the selected server",
		Long: `Show or override the backend URL for the selected server.

By default the backend is the server origin, or http://127.0.0.1:8000 when
the server runs on localhost. An override is kept with the session and is
removed by 'logout'.

Examples:
  $ reasoned api-base                             # Show the effective URL
  $ reasoned api-base https://api.example.com/    # Override
  $ reasoned api-base --clear                     # Back to the default`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base string
			if len(args) > 0 {
				base = args[0]
			}
			if clearOverride && base != "" {
				return fmt.Errorf("--clear cannot be combined with a URL")
			}
			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}
			return runAPIBase(base, clearOverride, opts...)
		},
	}

	cmd.Flags().BoolVar(&clearOverride, "clear", false, "Remove the override")

	return cmd
}

func runAPIBase(base string, clearOverride bool, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	switch {
	case clearOverride:
		if err := rt.session.SetAPIBase(""); err != nil {
			return fmt.Errorf("failed to clear api base: %w", err)
		}
	case base != "":
		if err := validateAPIBase(base); err != nil {
			return err
		}
		if err := rt.session.SetAPIBase(base); err != nil {
			return fmt.Errorf("failed to save api base: %w", err)
		}
	}

	effective, err := rt.client.BaseURL()
	if err != nil {
		return err
	}

	override, err := rt.session.APIBase()
	if err != nil {
		return err
	}

	source := "default"
	if override != "" {
		source = "override"
	}
	fmt.Fprintf(rt.Out, "%s (%s)\n", effective, source)
	return nil
}

func validateAPIBase(base string) error {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("invalid api base %q: must start with http:// or https://", base)
	}
	return nil
}
