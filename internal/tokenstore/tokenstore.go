// Package tokenstore persists OAuth token pairs between runs.
package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Tokens is a persisted credential pair.
type Tokens struct {
	Auth    string `json:"auth_token"`
	Refresh string `json:"refresh_token"`
}

// Store persists tokens under a key derived from the application and project
// version ids. Save failures are logged by implementations, not propagated.
type Store interface {
	Load(appID, projectVersionID string) (Tokens, bool)
	Save(appID, projectVersionID string, t Tokens)
}

// Key derives the storage key for an (app, project version) pair.
func Key(appID, projectVersionID string) string {
	return appID + "-" + projectVersionID
}

// DefaultPath returns the default token file location under the user config
// directory, falling back to the working directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".interactive_tokens.json"
	}
	return filepath.Join(dir, "streamspace", "interactive_tokens.json")
}

// FileStore keeps all token pairs in a single JSON file.
type FileStore struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load retrieves the token pair for the given ids.
func (s *FileStore) Load(appID, projectVersionID string) (Tokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	t, ok := all[Key(appID, projectVersionID)]
	return t, ok
}

// Save persists the token pair. Failures are logged and swallowed so a
// broken disk never interrupts the auth flow.
func (s *FileStore) Save(appID, projectVersionID string, t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	all[Key(appID, projectVersionID)] = t

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal token file")
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Failed to create token directory")
		return
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Failed to write token file")
	}
}

func (s *FileStore) read() map[string]Tokens {
	all := make(map[string]Tokens)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return all
	}
	if err := json.Unmarshal(data, &all); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Token file is corrupt, starting fresh")
		return make(map[string]Tokens)
	}
	return all
}
