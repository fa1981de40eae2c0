package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// hostsKey is the entry the editor tooling writes for github.com.
const hostsKey = "github.com"

// HostsFile reads and writes the editor tooling's hosts.json credential
// store. Entries for other hosts are preserved on save.
type HostsFile struct {
	Path string
}

// DefaultHostsPath returns ~/.config/github-copilot/hosts.json.
func DefaultHostsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "github-copilot", "hosts.json"), nil
}

// NewHostsFile creates a HostsFile at the default path.
func NewHostsFile() (*HostsFile, error) {
	path, err := DefaultHostsPath()
	if err != nil {
		return nil, err
	}
	return &HostsFile{Path: path}, nil
}

// Token returns the github.com oauth_token, or ErrNotFound when the file or
// the entry is missing.
func (h *HostsFile) Token(ctx context.Context) (string, error) {
	hosts, err := h.read()
	if err != nil {
		return "", err
	}
	entry, ok := hosts[hostsKey]
	if !ok {
		return "", ErrNotFound
	}
	tok, _ := entry["oauth_token"].(string)
	if tok == "" {
		return "", ErrNotFound
	}
	return tok, nil
}

// Save writes the token back under github.com, creating the file and its
// directory when needed.
func (h *HostsFile) Save(oauthToken string) error {
	hosts, err := h.read()
	if err != nil {
		return err
	}
	entry, ok := hosts[hostsKey]
	if !ok {
		entry = map[string]any{}
		hosts[hostsKey] = entry
	}
	entry["oauth_token"] = oauthToken

	data, err := json.MarshalIndent(hosts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding hosts file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o700); err != nil {
		return fmt.Errorf("creating hosts directory: %w", err)
	}
	if err := os.WriteFile(h.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing hosts file: %w", err)
	}
	return nil
}

// read loads the hosts map, treating a missing file as empty.
func (h *HostsFile) read() (map[string]map[string]any, error) {
	data, err := os.ReadFile(h.Path)
	if os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading hosts file: %w", err)
	}

	var hosts map[string]map[string]any
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("parsing hosts file: %w", err)
	}
	if hosts == nil {
		hosts = map[string]map[string]any{}
	}
	return hosts, nil
}
