package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/output"
)

// NewMetaCmd creates the meta command
func NewMetaCmd() *cobra.Command {
	var exam, track string

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "List the subjects available per exam and track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runMeta(cmd.Context(), exam, track, opts...)
		},
	}

	cmd.Flags().StringVar(&exam, "exam", "", "Only show subjects of this exam (UTBK or TKA)")
	cmd.Flags().StringVar(&track, "track", "SAINTEK", "Track used with --exam TKA")

	return cmd
}

func runMeta(ctx context.Context, exam, track string, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	meta, err := rt.client.Meta(ctx)
	if err != nil {
		return fmt.Errorf("failed to load exam metadata: %w", explainAPIError(err))
	}

	if exam != "" {
		subjects := meta.SubjectsFor(exam, track)
		return output.Render(rt.Out, rt.Format, subjects, func(w io.Writer) error {
			if len(subjects) == 0 {
				fmt.Fprintf(w, "No subjects for %s %s.\n", strings.ToUpper(exam), strings.ToUpper(track))
				return nil
			}
			for _, s := range subjects {
				fmt.Fprintln(w, s)
			}
			return nil
		})
	}

	return output.Render(rt.Out, rt.Format, meta, func(w io.Writer) error {
		tw := output.NewTabWriter(w)
		fmt.Fprintln(tw, "EXAM\tTRACK\tSUBJECTS")
		fmt.Fprintf(tw, "UTBK\t-\t%s\n", strings.Join(meta.UTBK, ", "))

		tracks := make([]string, 0, len(meta.TKA))
		for t := range meta.TKA {
			tracks = append(tracks, t)
		}
		sort.Strings(tracks)
		for _, t := range tracks {
			fmt.Fprintf(tw, "TKA\t%s\t%s\n", t, strings.Join(meta.TKA[t], ", "))
		}
		return tw.Flush()
	})
}
