package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/term"

	"github.com/reasoned-dev/reasoned/internal/cli/client"
	"github.com/reasoned-dev/reasoned/internal/cli/config"
	"github.com/reasoned-dev/reasoned/internal/cli/output"
	"github.com/reasoned-dev/reasoned/internal/cli/serverselect"
	"github.com/reasoned-dev/reasoned/internal/cli/session"
	"github.com/reasoned-dev/reasoned/internal/cli/storage"
	"github.com/reasoned-dev/reasoned/internal/cli/userconfig"
	appconfig "github.com/reasoned-dev/reasoned/internal/config"
	"github.com/reasoned-dev/reasoned/internal/logger"
)

// Program is the binary name used in hints
const Program = "reasoned"

// GlobalOptions holds the values of the root command's persistent flags
type GlobalOptions struct {
	Server   string
	Output   string
	Settings *appconfig.Config
}

// Globals is bound to the root command's persistent flags
var Globals = &GlobalOptions{}

// Env carries everything a command needs from the outside world.
// Tests replace parts of it through Options.
type Env struct {
	Out         io.Writer
	ErrOut      io.Writer
	In          io.Reader
	Format      output.Format
	ServerAlias string
	Server      *config.Server
	Store       storage.Store
	HTTPClient  *http.Client
	Settings    *appconfig.Config
	Interactive func() bool
	Ask         AnswerPrompt
}

// Option configures the command environment
type Option func(*Env)

// WithOutput sets where command output is written
func WithOutput(w io.Writer) Option {
	return func(e *Env) { e.Out = w }
}

// WithErrOutput sets where hints and warnings are written
func WithErrOutput(w io.Writer) Option {
	return func(e *Env) { e.ErrOut = w }
}

// WithInput sets the stream interactive commands read from
func WithInput(r io.Reader) Option {
	return func(e *Env) { e.In = r }
}

// WithFormat sets the output format
func WithFormat(f output.Format) Option {
	return func(e *Env) { e.Format = f }
}

// WithServerAlias picks a server from the project config by URL or alias
func WithServerAlias(alias string) Option {
	return func(e *Env) { e.ServerAlias = alias }
}

// WithServer bypasses project config lookup
func WithServer(s *config.Server) Option {
	return func(e *Env) { e.Server = s }
}

// WithStore replaces the per-server session storage
func WithStore(s storage.Store) Option {
	return func(e *Env) { e.Store = s }
}

// WithHTTPClient replaces the HTTP client used for API calls
func WithHTTPClient(c *http.Client) Option {
	return func(e *Env) { e.HTTPClient = c }
}

// WithSettings replaces the environment-derived settings
func WithSettings(s *appconfig.Config) Option {
	return func(e *Env) { e.Settings = s }
}

// WithInteractive overrides terminal detection
func WithInteractive(interactive bool) Option {
	return func(e *Env) { e.Interactive = func() bool { return interactive } }
}

// WithAnswerPrompt replaces the interactive quiz answer prompt
func WithAnswerPrompt(ask AnswerPrompt) Option {
	return func(e *Env) { e.Ask = ask }
}

func defaultEnv() Env {
	return Env{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		In:     os.Stdin,
		Format: output.Table,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		Ask: promptAnswer,
	}
}

// globalOptions turns the persistent flags into options
func globalOptions() ([]Option, error) {
	format, err := output.ParseFormat(Globals.Output)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithFormat(format), WithServerAlias(Globals.Server)}
	if Globals.Settings != nil {
		opts = append(opts, WithSettings(Globals.Settings))
	}
	return opts, nil
}

// runtime is a resolved command environment: the selected server, its
// session storage, and an authenticated client
type runtime struct {
	Env
	server  *config.Server
	session *session.Manager
	client  *client.Client
}

func newEnv(opts ...Option) (Env, error) {
	env := defaultEnv()
	for _, opt := range opts {
		opt(&env)
	}

	if env.Settings == nil {
		settings, err := appconfig.Load()
		if err != nil {
			return env, err
		}
		env.Settings = settings
	}
	return env, nil
}

func newRuntime(opts ...Option) (*runtime, error) {
	env, err := newEnv(opts...)
	if err != nil {
		return nil, err
	}

	server := env.Server
	if server == nil {
		server, err = resolveServer(env)
		if err != nil {
			return nil, err
		}
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", config.ConfigFileName)
	}

	store := env.Store
	if store == nil {
		store = openStore(env.Settings, server.URL)
	}

	sess := session.NewManager(store, session.WriterNavigator{Out: env.ErrOut, Program: Program})

	apiClient, err := client.New(server.URL, sess,
		client.WithLogger(logger.GetLogger().With().Str("server", server.Alias).Logger()),
	)
	if err != nil {
		return nil, err
	}
	if env.HTTPClient != nil {
		apiClient.SetHTTPClient(env.HTTPClient)
	}

	return &runtime{Env: env, server: server, session: sess, client: apiClient}, nil
}

// resolveServer loads the project config and picks the server to use
func resolveServer(env Env) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun '%s init' to create a configuration file", err, Program)
	}

	selector := serverselect.New(userconfig.New(env.Settings.UserConfigPath()))
	selector.Warn = env.ErrOut
	selector.Interactive = env.Interactive

	return selector.ResolveServer(cfg, env.ServerAlias)
}

// openStore opens the per-server storage, keeping tokens in the OS
// keyring unless disabled
func openStore(settings *appconfig.Config, serverURL string) storage.Store {
	file := storage.OpenForOrigin(settings.StorageDir(), serverURL)
	if !settings.Keyring {
		return file
	}
	return storage.NewKeyring(file, storage.Namespace(serverURL), session.SecretKeys...)
}

// explainAPIError adds the follow-up a user needs for well-known failures
func explainAPIError(err error) error {
	switch {
	case client.IsUnauthorized(err):
		return fmt.Errorf("%w\nYour login is missing or expired. Run '%s login' again", err, Program)
	case client.IsQuotaExhausted(err):
		return fmt.Errorf("%w\nYour free quota is used up", err)
	case client.IsNetworkError(err):
		return fmt.Errorf("%w\nMake sure the backend is running and reachable", err)
	}
	return err
}
