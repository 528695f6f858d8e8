package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig represents the user's local configuration stored in ~/.config/reasoned/config.json
type UserConfig struct {
	SelectedServerURL string `json:"selected_server_url"`
}

// Store reads and writes the user config file at Path
type Store struct {
	Path string
}

// New returns a store for the config file at path
func New(path string) *Store {
	return &Store{Path: path}
}

// Load reads the user configuration file
func (s *Store) Load() (*UserConfig, error) {
	// If config doesn't exist, return empty config
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func (s *Store) Save(cfg *UserConfig) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedServer updates the selected server URL and saves the config
func (s *Store) SetSelectedServer(serverURL string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	cfg.SelectedServerURL = serverURL
	return s.Save(cfg)
}

// GetSelectedServer returns the selected server URL, or empty string if not set
func (s *Store) GetSelectedServer() (string, error) {
	cfg, err := s.Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedServerURL, nil
}
