// Package settings stores PhraseApp access tokens for phrasepull.
//
// Tokens live in the XDG data directory:
//
//	$XDG_DATA_HOME/phrasepull/auth.json  (default: ~/.local/share/phrasepull/)
//
// The file is a JSON object keyed by project id. The "default" entry is used
// for projects without a token of their own. File permissions are 0600
// (owner read/write only).
//
// Lookup order for the access token:
//  1. --access-token flag (highest priority)
//  2. PHRASEAPP_ACCESS_TOKEN environment variable
//  3. access_token in .phrasepull.yaml
//  4. This token store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	dataDirName = "phrasepull"
	fileName    = "auth.json"

	// DefaultProject keys the token used when a project has none.
	DefaultProject = "default"
)

// Info is one stored token.
type Info struct {
	Token string `json:"token"`
	// Saved is the Unix time the token was stored.
	Saved int64 `json:"saved,omitempty"`
	// BaseURL is set for tokens of a self-hosted or regional endpoint.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds tokens keyed by project id.
type Store map[string]*Info

// Projects returns the stored keys in sorted order.
func (s Store) Projects() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the token store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the token store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// projectKey maps an empty project id to DefaultProject.
func projectKey(project string) string {
	if project == "" {
		return DefaultProject
	}
	return project
}

// Get returns the entry stored for project, or nil.
func Get(project string) *Info {
	return Load()[projectKey(project)]
}

// Set stores an entry for project (upsert). An empty project stores the
// default entry. A zero Saved time is set to now.
func Set(project string, info *Info) error {
	if info.Saved == 0 {
		info.Saved = time.Now().Unix()
	}
	store := Load()
	store[projectKey(project)] = info
	return Save(store)
}

// Token returns the token for project, falling back to the default token.
// Returns "" if neither is stored.
func Token(project string) string {
	store := Load()
	if info := store[projectKey(project)]; info != nil && info.Token != "" {
		return info.Token
	}
	if info := store[DefaultProject]; info != nil {
		return info.Token
	}
	return ""
}

// Remove deletes the token of project.
func Remove(project string) error {
	store := Load()
	key := projectKey(project)
	if _, ok := store[key]; !ok {
		return nil
	}
	delete(store, key)
	return Save(store)
}

// RemoveAll removes all stored tokens.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// MaskKey returns a masked version of a token for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
