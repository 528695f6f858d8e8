package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
	"github.com/reasoned-dev/reasoned/internal/cli/output"
)

const defaultSubject = "MATEMATIKA"

// NewMaterialsCmd creates the materials command
func NewMaterialsCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "materials",
		Short: "List the study chapters of a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runMaterials(cmd.Context(), subject, opts...)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", defaultSubject, "Subject to list")

	return cmd
}

// NewMaterialCmd creates the material command
func NewMaterialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "material <id>",
		Short: "Show the study material of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChapterID(args[0])
			if err != nil {
				return err
			}
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			return runMaterial(cmd.Context(), id, opts...)
		},
	}
}

func parseChapterID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chapter id %q: must be a positive number", s)
	}
	return id, nil
}

func runMaterials(ctx context.Context, subject string, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	subject = strings.ToUpper(strings.TrimSpace(subject))
	materials, err := rt.client.Materials(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to list materials: %w", explainAPIError(err))
	}

	return output.Render(rt.Out, rt.Format, materials, func(w io.Writer) error {
		if len(materials) == 0 {
			fmt.Fprintf(w, "No materials for %s yet.\n", subject)
			return nil
		}

		tw := output.NewTabWriter(w)
		fmt.Fprintln(tw, "ID\tSUBJECT\tCHAPTER")
		for _, m := range materials {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", m.ID, m.Subject, m.Chapter)
		}
		return tw.Flush()
	})
}

func runMaterial(ctx context.Context, id int, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	material, err := rt.client.Material(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load material %d: %w", id, explainAPIError(err))
	}

	return output.Render(rt.Out, rt.Format, material, func(w io.Writer) error {
		printMaterial(w, material)
		return nil
	})
}

func printMaterial(w io.Writer, m *client.Material) {
	fmt.Fprintf(w, "%s · %s\n", m.Subject, m.Chapter)

	sections := []struct{ title, body string }{
		{"Summary", m.Summary},
		{"Formulas", m.Formulas},
		{"Examples", m.Examples},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s\n", s.title, s.body)
	}

	fmt.Fprintf(w, "\nAsk the tutor with '%s tutor %d <question>'.\n", Program, m.ID)
}
