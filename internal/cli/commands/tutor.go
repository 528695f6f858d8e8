package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
)

// NewTutorCmd creates the tutor command
func NewTutorCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "tutor <chapter-id> [question...]",
		Short: "Ask the tutor about a chapter",
		Long: `Ask the tutor about a chapter.

With a question, prints a single answer. Without one, starts a chat
that reads questions line by line until "exit" or end of input.

Examples:
  $ reasoned tutor 1 apa rumus akar kuadrat?
  $ reasoned tutor 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChapterID(args[0])
			if err != nil {
				return err
			}
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts,
				WithOutput(cmd.OutOrStdout()),
				WithErrOutput(cmd.ErrOrStderr()),
				WithInput(cmd.InOrStdin()),
			)
			return runTutor(cmd.Context(), id, subject, strings.Join(args[1:], " "), opts...)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject of the chapter (looked up when empty)")

	return cmd
}

func runTutor(ctx context.Context, chapterID int, subject, question string, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	if subject == "" {
		material, err := rt.client.Material(ctx, chapterID)
		if err != nil {
			return fmt.Errorf("failed to load chapter %d: %w", chapterID, explainAPIError(err))
		}
		subject = material.Subject
		if strings.TrimSpace(question) == "" {
			fmt.Fprintf(rt.Out, "Tutor · %s · %s\n", material.Subject, material.Chapter)
		}
	}
	subject = strings.ToUpper(subject)

	if q := strings.TrimSpace(question); q != "" {
		return rt.askTutor(ctx, chapterID, subject, q)
	}

	fmt.Fprintln(rt.Out, `Type a question and press enter. "exit" ends the chat.`)
	scanner := bufio.NewScanner(rt.In)
	for {
		fmt.Fprint(rt.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(rt.Out)
			return scanner.Err()
		}

		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := rt.askTutor(ctx, chapterID, subject, q); err != nil {
			// Keep chatting unless the session itself is gone
			if isFatal(err) {
				return err
			}
			fmt.Fprintf(rt.ErrOut, "Error: %v\n", err)
		}
	}
}

func (rt *runtime) askTutor(ctx context.Context, chapterID int, subject, question string) error {
	answer, err := rt.client.TutorChat(ctx, chapterID, subject, question)
	if err != nil {
		return fmt.Errorf("tutor request failed: %w", explainAPIError(err))
	}
	fmt.Fprintln(rt.Out, strings.TrimSpace(answer.Answer))
	return nil
}

// isFatal reports errors that end an interactive chat
func isFatal(err error) bool {
	return client.IsUnauthorized(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
