// Package settings stores docloc user credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/docloc/auth.json  (default: ~/.local/share/docloc/auth.json)
//
// The file is a JSON object keyed by service ID:
//
//	{
//	  "deepl": {"type": "api", "key": "0f3c...:fx", "baseUrl": ""}
//	}
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for the API key (see package config):
//  1. --api-key flag (highest priority)
//  2. DOCLOC_API_KEY or DEEPL_API_KEY environment variable (also from .env)
//  3. api_key in the config file
//  4. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "docloc"
	fileName    = "auth.json"
)

// ServiceDeepL is the ID under which the DeepL key is stored.
const ServiceDeepL = "deepl"

// Info is the entry stored per service in auth.json.
type Info struct {
	// Type is "api" for API keys.
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	// BaseURL overrides the endpoint derived from the key.
	BaseURL string `json:"baseUrl,omitempty"`
}

// IsAPI returns true if this is an API key entry.
func (i *Info) IsAPI() bool {
	return i.Type == "api"
}

// Store holds all credentials, keyed by service ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the docloc data directory.
// Respects $XDG_DATA_HOME, falling back to ~/.local/share.
func DataDir() (string, error) {
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
	dir, err := DataDir()
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

// Load reads the credential store from disk.
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

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
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
// Accessors
// ---------------------------------------------------------------------------

// Get returns the entry for a service, or nil if not found.
func Get(service string) *Info {
	return Load()[service]
}

// SetAPIKey stores an API key (and optional endpoint) for a service.
func SetAPIKey(service, key, baseURL string) error {
	store := Load()
	store[service] = &Info{Type: "api", Key: key, BaseURL: baseURL}
	return Save(store)
}

// GetAPIKey returns the stored API key for a service, or "".
func GetAPIKey(service string) string {
	info := Get(service)
	if info == nil || !info.IsAPI() {
		return ""
	}
	return info.Key
}

// GetBaseURL returns the stored endpoint override for a service, or "".
func GetBaseURL(service string) string {
	info := Get(service)
	if info == nil {
		return ""
	}
	return info.BaseURL
}

// Remove deletes the credentials of a service.
func Remove(service string) error {
	store := Load()
	if _, ok := store[service]; !ok {
		return nil
	}
	delete(store, service)
	return Save(store)
}

// RemoveAll removes the credential file.
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

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
