// Package settings persists the bot credentials edited from the control panel.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted document.
type Settings struct {
	BotToken     string   `yaml:"bot_token"`
	AllowedUsers []string `yaml:"allowed_users,omitempty"`
}

// Store holds settings in memory and writes them back to a YAML file.
// Safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// Open loads the settings file at path. A missing file yields empty settings.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	s.current.BotToken = strings.TrimSpace(s.current.BotToken)
	s.current.AllowedUsers = normalizeUsers(s.current.AllowedUsers)

	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Token returns the bot token, or "" when none is saved.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.BotToken
}

// AllowedUsers returns the lowercase username allowlist. An empty set allows
// everyone.
func (s *Store) AllowedUsers() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{}, len(s.current.AllowedUsers))
	for _, u := range s.current.AllowedUsers {
		set[u] = struct{}{}
	}
	return set
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		BotToken:     s.current.BotToken,
		AllowedUsers: append([]string(nil), s.current.AllowedUsers...),
	}
}

// Update replaces the settings and saves them. Users are trimmed, lowercased
// and blanks dropped.
func (s *Store) Update(token string, users []string) error {
	next := Settings{
		BotToken:     strings.TrimSpace(token),
		AllowedUsers: normalizeUsers(users),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := save(s.path, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// ParseUsers splits a comma or newline separated allowlist.
func ParseUsers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	return normalizeUsers(fields)
}

func normalizeUsers(users []string) []string {
	var out []string
	for _, u := range users {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// save writes the settings atomically: temp file, then rename.
func save(path string, s Settings) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
