package commands

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
	"github.com/reasoned-dev/reasoned/internal/cli/output"
	"github.com/reasoned-dev/reasoned/internal/cli/session"
)

// NewDashCmd creates the dash command
func NewDashCmd() *cobra.Command {
	var web bool

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard: quota, last score and whether a quiz can be started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := globalOptions()
			if err != nil {
				return err
			}
			opts = append(opts, WithOutput(cmd.OutOrStdout()), WithErrOutput(cmd.ErrOrStderr()))
			if web {
				return runDashWeb(opts...)
			}
			return runDash(cmd.Context(), opts...)
		},
	}

	cmd.Flags().BoolVar(&web, "web", false, "Open the web dashboard in a browser instead")

	return cmd
}

type dashboard struct {
	Server         string     `json:"server"`
	User           string     `json:"user"`
	Role           string     `json:"role,omitempty"`
	IsPaid         bool       `json:"is_paid"`
	AttemptsUsed   int        `json:"attempts_used"`
	FreeLimit      int        `json:"free_limit"`
	Remaining      int        `json:"remaining"`
	CanStartQuiz   bool       `json:"can_start_quiz"`
	QuotaError     string     `json:"quota_error,omitempty"`
	LastScore      string     `json:"last_score,omitempty"`
	LastScoreAt    *time.Time `json:"last_score_at,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

func runDash(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	if err := rt.session.RequireSession(); err != nil {
		return err
	}

	sess, err := rt.session.Load()
	if err != nil {
		return err
	}

	d := dashboard{Server: rt.server.URL, User: sess.Username, Role: sess.Role}
	if sess.IsPaid != nil {
		d.IsPaid = *sess.IsPaid
	}
	if exp, ok := session.TokenExpiry(sess.Token); ok {
		d.TokenExpiresAt = &exp
	}

	me, err := rt.client.FetchCurrentUser(ctx)
	switch {
	case client.IsUnauthorized(err):
		return explainAPIError(err)
	case err != nil:
		// The rest of the dashboard is still useful without the quota
		d.QuotaError = err.Error()
	default:
		d.User = me.User
		d.Role = me.Role
		d.IsPaid = me.IsPaid
		d.AttemptsUsed = me.AttemptsUsed
		d.FreeLimit = me.FreeLimit
		d.Remaining = me.Remaining()
		d.CanStartQuiz = me.CanStartQuiz()
	}

	score, err := rt.session.LastScore()
	if err != nil {
		return err
	}
	if score != nil {
		d.LastScore = score.Value
		if !score.At.IsZero() {
			at := score.At
			d.LastScoreAt = &at
		}
	}

	return output.Render(rt.Out, rt.Format, d, func(w io.Writer) error {
		return printDashboard(w, &d)
	})
}

func printDashboard(w io.Writer, d *dashboard) error {
	fmt.Fprintf(w, "Hello, %s\n", d.User)
	if d.Role == "admin" {
		fmt.Fprintln(w, "  Role: Admin")
	}
	if d.IsPaid {
		fmt.Fprintln(w, "  Plan: Paid")
	}

	if d.QuotaError != "" {
		fmt.Fprintf(w, "  Quota: %s\n", d.QuotaError)
	} else {
		fmt.Fprintf(w, "  Remaining: %d/%d\n", d.Remaining, d.FreeLimit)
	}

	if d.LastScore != "" {
		if d.LastScoreAt != nil {
			fmt.Fprintf(w, "  Last score: %s (%s)\n", d.LastScore, d.LastScoreAt.Local().Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(w, "  Last score: %s\n", d.LastScore)
		}
	} else {
		fmt.Fprintln(w, "  Last score: -")
	}

	if d.TokenExpiresAt != nil {
		fmt.Fprintf(w, "  Session expires: %s\n", d.TokenExpiresAt.Local().Format("2006-01-02 15:04"))
	}

	switch {
	case d.QuotaError != "":
	case d.CanStartQuiz:
		fmt.Fprintf(w, "\nStart a quiz with '%s quiz generate'.\n", Program)
	default:
		fmt.Fprintln(w, "\nYour free quota is used up; quiz generation is disabled.")
	}
	return nil
}

func runDashWeb(opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	dashboardURL := rt.server.URL + "/dashboard.html"

	fmt.Fprintf(rt.Out, "Opening dashboard for %s (%s)...\n", rt.server.Alias, rt.server.URL)
	fmt.Fprintf(rt.Out, "URL: %s\n", dashboardURL)

	if err := openBrowser(dashboardURL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, dashboardURL)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch goruntime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", goruntime.GOOS)
	}

	return cmd.Start()
}
