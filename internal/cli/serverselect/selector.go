package serverselect

import (
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/reasoned-dev/reasoned/internal/cli/config"
	"github.com/reasoned-dev/reasoned/internal/cli/userconfig"
)

// Selector resolves which configured server a command talks to
type Selector struct {
	Users *userconfig.Store

	// Prompt asks the user to choose; defaults to an interactive promptui list
	Prompt func(*config.Config) (*config.Server, error)

	// Interactive reports whether prompting is possible
	Interactive func() bool

	// Warn receives non-fatal warnings
	Warn io.Writer
}

// New creates a selector backed by the given user config
func New(users *userconfig.Store) *Selector {
	return &Selector{
		Users:  users,
		Prompt: PromptServerSelection,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		Warn: os.Stderr,
	}
}

// ResolveServer determines which server to use based on the following priority:
// 1. If serverAlias flag is provided, use that server
// 2. If user has a selected server in their local config, use that
// 3. If only one server in project config, use that
// 4. Otherwise, prompt user to select a server interactively
// 5. Without a terminal, fall back to the first server
func (s *Selector) ResolveServer(projectConfig *config.Config, serverAlias string) (*config.Server, error) {
	// Priority 1: Use server alias if provided
	if serverAlias != "" {
		return projectConfig.GetServerByURLOrAlias(serverAlias)
	}

	// Priority 2: Use selected server from user config
	selectedURL, err := s.Users.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		server, err := projectConfig.GetServerByURL(selectedURL)
		if err != nil {
			// Selected server no longer exists in project config, clear it and continue
			_ = s.Users.SetSelectedServer("")
		} else {
			return server, nil
		}
	}

	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	// Priority 3: If only one server, use it automatically
	if len(projectConfig.Servers) == 1 {
		server := &projectConfig.Servers[0]
		s.remember(server)
		return server, nil
	}

	// Priority 5: non-interactive sessions use the first server
	if s.Interactive == nil || !s.Interactive() {
		return projectConfig.GetDefaultServer()
	}

	// Priority 4: Prompt user to select a server
	server, err := s.Prompt(projectConfig)
	if err != nil {
		return nil, err
	}

	s.remember(server)
	return server, nil
}

func (s *Selector) remember(server *config.Server) {
	if err := s.Users.SetSelectedServer(server.URL); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(s.Warn, "Warning: failed to save selected server: %v\n", err)
	}
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
