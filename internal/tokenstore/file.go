// Package tokenstore persists the authenticated session under a single fixed key.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/alt-project/flixctl/internal/domain"
)

// SessionKey is the fixed key the session is stored under.
const SessionKey = "user"

// FileStore keeps the session as JSON in <dir>/user.
// Implements domain.TokenStore.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: filepath.Join(dir, SessionKey), logger: logger}
}

// Path returns the file the session is written to.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the session atomically.
func (s *FileStore) Save(_ context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".user-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting session permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Load reads the session. Missing or undecodable files read as absent.
func (s *FileStore) Load(ctx context.Context) (*domain.Session, bool) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.DebugContext(ctx, "session file unreadable", "path", s.path, "error", err)
		}
		return nil, false
	}

	return decodeSession(ctx, s.logger, data)
}

// Clear removes the session file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// decodeSession unmarshals stored bytes. A JSON null or malformed payload is absence.
func decodeSession(ctx context.Context, logger *slog.Logger, data []byte) (*domain.Session, bool) {
	var session *domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		logger.DebugContext(ctx, "discarding malformed session", "error", err)
		return nil, false
	}
	if session == nil {
		return nil, false
	}
	return session, true
}
