package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
	"github.com/reasoned-dev/reasoned/internal/cli/output"
)

// AnswerPrompt asks for the answer of question index (0-based) and
// returns the chosen option index
type AnswerPrompt func(index int, q client.Question) (int, error)

var errNoCachedQuiz = fmt.Errorf("no quiz generated yet. Run '%s quiz generate' first", Program)

// NewQuizCmd creates the quiz command group
func NewQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate, answer and review practice quizzes",
	}

	cmd.AddCommand(newQuizGenerateCmd())
	cmd.AddCommand(newQuizShowCmd())
	cmd.AddCommand(newQuizSubmitCmd())
	cmd.AddCommand(newQuizExplainCmd())

	return cmd
}

func commandOptions(cmd *cobra.Command) ([]Option, error) {
	opts, err := globalOptions()
	if err != nil {
		return nil, err
	}
	return append(opts,
		WithOutput(cmd.OutOrStdout()),
		WithErrOutput(cmd.ErrOrStderr()),
		WithInput(cmd.InOrStdin()),
	), nil
}

func newQuizGenerateCmd() *cobra.Command {
	req := client.GenerateSetRequest{}
	var seed int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new quiz",
		Long: `Generate a new quiz and keep it for 'quiz show', 'quiz submit'
and 'quiz explain'.

Each generation uses one free attempt unless the account is paid or admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}
			return runQuizGenerate(cmd.Context(), req, opts...)
		},
	}

	cmd.Flags().StringVar(&req.Exam, "exam", "UTBK", "Exam: UTBK or TKA")
	cmd.Flags().StringVar(&req.Track, "track", "SAINTEK", "Track: SAINTEK or SOSHUM")
	cmd.Flags().StringVar(&req.Subject, "subject", client.MixSubject, "Subject, or MIX for all subjects of the exam")
	cmd.Flags().Float64Var(&req.Level, "level", 1.5, "Difficulty level")
	cmd.Flags().IntVar(&req.N, "n", 10, "Number of questions (10-30)")
	cmd.Flags().IntVar(&seed, "seed", 0, "Seed for reproducible quizzes")

	return cmd
}

func runQuizGenerate(ctx context.Context, req client.GenerateSetRequest, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	req.Exam = strings.ToUpper(strings.TrimSpace(req.Exam))
	req.Track = strings.ToUpper(strings.TrimSpace(req.Track))
	req.Subject = strings.ToUpper(strings.TrimSpace(req.Subject))

	set, err := rt.client.GenerateSet(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate quiz: %w", explainAPIError(err))
	}

	return output.Render(rt.Out, rt.Format, set, func(w io.Writer) error {
		printQuizSet(w, set)
		fmt.Fprintf(w, "\nSubmit with '%s quiz submit'.\n", Program)
		return nil
	})
}

func newQuizShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the last generated quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}
			return runQuizShow(opts...)
		},
	}
}

func runQuizShow(opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	set, err := rt.lastQuizSet()
	if err != nil {
		return err
	}

	return output.Render(rt.Out, rt.Format, set, func(w io.Writer) error {
		printQuizSet(w, set)
		return nil
	})
}

func (rt *runtime) lastQuizSet() (*client.QuizSet, error) {
	payload, err := rt.session.LastQuizSet()
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errNoCachedQuiz
	}

	var set client.QuizSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("cached quiz is unreadable, generate a new one: %w", err)
	}
	if len(set.Questions) == 0 {
		return nil, errNoCachedQuiz
	}
	return &set, nil
}

func printQuizSet(w io.Writer, set *client.QuizSet) {
	header := set.Exam
	if set.Track != "" && !strings.EqualFold(set.Exam, "UTBK") {
		header += " " + set.Track
	}
	fmt.Fprintf(w, "%s · %d questions\n", header, len(set.Questions))

	for i, q := range set.Questions {
		fmt.Fprintf(w, "\n%d. [%s] %s\n", i+1, q.Subject, q.Text)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %s. %s\n", client.OptionLetter(j), opt)
		}
	}
}

func newQuizSubmitCmd() *cobra.Command {
	var answers string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Answer and submit the last generated quiz",
		Long: `Answer and submit the last generated quiz.

Answers are given as option letters in question order. Empty entries
leave a question unanswered, which counts as option A.

Examples:
  $ reasoned quiz submit                     # Answer interactively
  $ reasoned quiz submit --answers A,C,,B,D`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}
			return runQuizSubmit(cmd.Context(), answers, cmd.Flags().Changed("answers"), opts...)
		},
	}

	cmd.Flags().StringVar(&answers, "answers", "", "Comma separated option letters, e.g. A,C,,B")

	return cmd
}

type quizResult struct {
	Score   int                     `json:"score"`
	Total   int                     `json:"total"`
	Answers []int                   `json:"answers"`
	Results []client.QuestionResult `json:"results"`
}

func runQuizSubmit(ctx context.Context, answerList string, haveAnswers bool, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	set, err := rt.lastQuizSet()
	if err != nil {
		return err
	}

	var answers []int
	switch {
	case haveAnswers:
		answers, err = parseAnswers(answerList, set.Questions)
	case rt.Interactive != nil && rt.Interactive():
		answers, err = askAnswers(rt.Ask, set.Questions)
	default:
		err = errors.New("answers are required in non-interactive mode (use --answers A,B,...)")
	}
	if err != nil {
		return err
	}

	items := make([]client.AnswerItem, len(set.Questions))
	for i, q := range set.Questions {
		items[i] = client.AnswerItem{Token: q.Token, Answer: answers[i]}
	}

	result, err := rt.client.CheckSet(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to submit quiz: %w", explainAPIError(err))
	}

	res := quizResult{Score: result.Score, Total: result.Total, Answers: answers, Results: result.Results}
	return output.Render(rt.Out, rt.Format, res, func(w io.Writer) error {
		printQuizResult(w, set, &res)
		return nil
	})
}

// parseAnswers reads a comma separated list of option letters (or 1-based
// option numbers). Missing and empty entries are unanswered and map to 0.
func parseAnswers(list string, questions []client.Question) ([]int, error) {
	answers := make([]int, len(questions))
	if strings.TrimSpace(list) == "" {
		return answers, nil
	}

	parts := strings.Split(list, ",")
	if len(parts) > len(questions) {
		return nil, fmt.Errorf("got %d answers for %d questions", len(parts), len(questions))
	}

	for i, part := range parts {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" || part == "-" {
			continue
		}

		idx := -1
		if n, err := strconv.Atoi(part); err == nil {
			idx = n - 1
		} else {
			for j, letter := range client.OptionLetters {
				if part == letter {
					idx = j
					break
				}
			}
		}

		if idx < 0 || idx >= len(questions[i].Options) {
			return nil, fmt.Errorf("invalid answer %q for question %d", part, i+1)
		}
		answers[i] = idx
	}

	return answers, nil
}

func askAnswers(ask AnswerPrompt, questions []client.Question) ([]int, error) {
	answers := make([]int, len(questions))
	for i, q := range questions {
		idx, err := ask(i, q)
		if err != nil {
			return nil, err
		}
		answers[i] = idx
	}
	return answers, nil
}

// promptAnswer shows a question as an interactive option list
func promptAnswer(index int, q client.Question) (int, error) {
	items := make([]string, len(q.Options))
	for i, opt := range q.Options {
		items[i] = fmt.Sprintf("%s. %s", client.OptionLetter(i), opt)
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("%d. [%s] %s", index+1, q.Subject, q.Text),
		Items: items,
		Size:  len(items),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("quiz cancelled: %w", err)
	}
	return i, nil
}

func printQuizResult(w io.Writer, set *client.QuizSet, res *quizResult) {
	fmt.Fprintf(w, "Score: %d/%d\n", res.Score, res.Total)

	for i, r := range res.Results {
		text := ""
		if i < len(set.Questions) {
			text = set.Questions[i].Text
		}

		if r.Correct {
			fmt.Fprintf(w, "\n%d. ✓ %s (%s)\n", i+1, text, client.OptionLetter(r.CorrectIndex))
		} else {
			picked := "?"
			if i < len(res.Answers) {
				picked = client.OptionLetter(res.Answers[i])
			}
			fmt.Fprintf(w, "\n%d. ✗ %s (answered %s, correct %s)\n", i+1, text, picked, client.OptionLetter(r.CorrectIndex))
		}

		if r.Explanation != "" {
			for _, line := range strings.Split(r.Explanation, "\n") {
				fmt.Fprintf(w, "   %s\n", line)
			}
		}
		if len(r.Concepts) > 0 {
			fmt.Fprintf(w, "   Concepts: %s\n", strings.Join(r.Concepts, ", "))
		}
	}

	fmt.Fprintf(w, "\nAsk about a question with '%s quiz explain <n> <question>'.\n", Program)
}

func newQuizExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <n> <question...>",
		Short: "Ask the tutor about question n of the last quiz",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid question number %q", args[0])
			}
			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}
			return runQuizExplain(cmd.Context(), n, strings.Join(args[1:], " "), opts...)
		},
	}
}

func runQuizExplain(ctx context.Context, n int, question string, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	set, err := rt.lastQuizSet()
	if err != nil {
		return err
	}
	if n < 1 || n > len(set.Questions) {
		return fmt.Errorf("question number must be between 1 and %d", len(set.Questions))
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("question is required")
	}

	answer, err := rt.client.Explain(ctx, set.Questions[n-1].Token, question)
	if err != nil {
		return fmt.Errorf("explain request failed: %w", explainAPIError(err))
	}

	fmt.Fprintln(rt.Out, strings.TrimSpace(answer.Answer))
	return nil
}
