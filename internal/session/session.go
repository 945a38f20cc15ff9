// Package session persists the bearer token and recently tracked analyses
// between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yildizm/ContractSum/internal/api"
)

var (
	// ErrNotLoggedIn is returned when no token is stored
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSessionExpired is returned when the stored token was rejected.
	// The token has already been removed when this is returned.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	DefaultHistoryLimit = 20
)

// Data is the on-disk session document
type Data struct {
	Token    string           `yaml:"token,omitempty"`
	Username string           `yaml:"username,omitempty"`
	BaseURL  string           `yaml:"base_url,omitempty"`
	SavedAt  time.Time        `yaml:"saved_at,omitempty"`
	Recent   []RecentAnalysis `yaml:"recent,omitempty"`
}

// RecentAnalysis is a history entry for an analysis started from this machine
type RecentAnalysis struct {
	ID        string     `yaml:"id" json:"id"`
	FileName  string     `yaml:"file_name" json:"file_name"`
	Status    api.Status `yaml:"status" json:"status"`
	UpdatedAt time.Time  `yaml:"updated_at" json:"updated_at"`
}

// UserChecker validates a token against the backend
type UserChecker interface {
	SetToken(token string)
	CurrentUser(ctx context.Context) (*api.User, error)
}

// Store reads and writes the session file. Methods are safe for concurrent use.
type Store struct {
	path    string
	baseURL string
	limit   int

	mu   sync.Mutex
	data Data
}

// NewStore creates a store bound to one backend. A session saved for a
// different base URL is treated as absent.
func NewStore(path, baseURL string, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		path:    path,
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   historyLimit,
	}
}

// Path returns the session file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the session file. A missing file yields an empty session.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 - path comes from configuration
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.data = Data{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}

	if data.BaseURL != "" && s.baseURL != "" && strings.TrimRight(data.BaseURL, "/") != s.baseURL {
		s.data = Data{}
		return nil
	}

	s.data = data
	return nil
}

// Save writes the session file with owner-only permissions
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	s.data.BaseURL = s.baseURL
	s.data.SavedAt = time.Now().UTC()

	raw, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" when logged out
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}

// Username returns the user the token belongs to
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Username
}

// SetToken stores a token and persists it
func (s *Store) SetToken(token, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	s.data.Username = username
	return s.saveLocked()
}

// Clear removes the token and persists the change. History is kept.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = ""
	s.data.Username = ""
	return s.saveLocked()
}

// Remember records an analysis at the front of the history, replacing any
// earlier entry with the same id, and persists the change.
func (s *Store) Remember(a *api.Analysis) error {
	if a == nil || a.ID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := RecentAnalysis{
		ID:        a.ID,
		FileName:  a.FileName,
		Status:    a.Status,
		UpdatedAt: a.UpdatedAt.Time,
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	recent := make([]RecentAnalysis, 0, len(s.data.Recent)+1)
	recent = append(recent, entry)
	for _, r := range s.data.Recent {
		if r.ID != a.ID {
			recent = append(recent, r)
		}
	}
	if len(recent) > s.limit {
		recent = recent[:s.limit]
	}
	s.data.Recent = recent

	return s.saveLocked()
}

// Recent returns up to n history entries, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []RecentAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.data.Recent) {
		n = len(s.data.Recent)
	}
	out := make([]RecentAnalysis, n)
	copy(out, s.data.Recent[:n])
	return out
}

// Restore validates the stored token with the backend. On success the token
// is installed on the client and the user is returned. A rejected token is
// removed from disk and ErrSessionExpired is returned.
func (s *Store) Restore(ctx context.Context, client UserChecker) (*api.User, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	client.SetToken(token)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		client.SetToken("")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if clearErr := s.Clear(); clearErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, clearErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if user.Username != "" && user.Username != s.Username() {
		s.mu.Lock()
		s.data.Username = user.Username
		saveErr := s.saveLocked()
		s.mu.Unlock()
		if saveErr != nil {
			return user, saveErr
		}
	}

	return user, nil
}
