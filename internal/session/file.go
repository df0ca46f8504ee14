package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// fileState is what we persist between CLI invocations: the token and the
// base URL it was issued against. The browser original keeps the token in
// localStorage; a CLI needs a file for the same reason.
type fileState struct {
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
}

func defaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tache", "session.json"), nil
}

// FilePath returns the session file location, honoring TACHE_SESSION_FILE
// for tests and unusual setups.
func FilePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("TACHE_SESSION_FILE")); p != "" {
		return p, nil
	}
	return defaultFilePath()
}

// LoadFile reads the persisted session, if any. A missing file is not an
// error: it means unauthenticated.
func LoadFile() (token, baseURL string, err error) {
	path, err := FilePath()
	if err != nil {
		return "", "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", nil
		}
		return "", "", err
	}
	var st fileState
	if err := json.Unmarshal(b, &st); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(st.Token), strings.TrimSpace(st.BaseURL), nil
}

// SaveFile persists the session with credentials-only permissions.
func SaveFile(token, baseURL string) error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(fileState{Token: token, BaseURL: baseURL}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

// DeleteFile removes the persisted session. Deleting an absent file succeeds.
func DeleteFile() error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
