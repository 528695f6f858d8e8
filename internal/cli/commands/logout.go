package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session stored for the selected server",
		Long: `Forget the session stored for the selected server.

This clears everything kept for the server: the token, the cached quiz,
the last score and any api-base override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runLogout(opts...)
		},
	}
}

func runLogout(opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.EndSession(); err != nil {
		return fmt.Errorf("logout of %s is incomplete: %w", rt.server.Alias, err)
	}

	fmt.Fprintf(rt.Out, "✓ Logged out of %s (%s)\n", rt.server.Alias, rt.server.URL)
	return nil
}
