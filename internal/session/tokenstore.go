// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/aegis-tui/internal/util"
)

// TokenStore persists the opaque session token across restarts.
type TokenStore interface {
	// Save stores the token durably.
	Save(token string) error
	// Load returns the persisted token, or "" if none exists.
	Load() (string, error)
	// Clear removes the persisted token. Clearing an absent token is
	// not an error.
	Clear() error
}

// =============================================================================
// FILE TOKEN STORE
// =============================================================================

// FileTokenStore keeps the token in a single file with owner-only
// permissions, written atomically.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a token store at the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Save writes the token with 0600 permissions.
func (f *FileTokenStore) Save(token string) error {
	if err := util.AtomicWriteFile(f.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

// Load reads the persisted token. A missing file means no session.
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear removes the token file.
func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// =============================================================================
// MEMORY TOKEN STORE
// =============================================================================

// MemoryTokenStore holds the token in memory only. Used by tests and
// by ephemeral demo sessions that should not outlive the process.
type MemoryTokenStore struct {
	token string
}

// Save stores the token.
func (m *MemoryTokenStore) Save(token string) error {
	m.token = token
	return nil
}

// Load returns the stored token.
func (m *MemoryTokenStore) Load() (string, error) {
	return m.token, nil
}

// Clear removes the stored token.
func (m *MemoryTokenStore) Clear() error {
	m.token = ""
	return nil
}
