package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

const (
	tokenDirName   = ".category-allocator/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

// TokenFile persists one environment's Google token under ~/.category-allocator/tokens
type TokenFile struct {
	path string
}

// NewTokenFile returns the token file for env in the user's home directory
func NewTokenFile(env string) (*TokenFile, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &TokenFile{path: filepath.Join(homeDir, tokenDirName, fmt.Sprintf("token-%s.json", env))}, nil
}

// Path returns the file location
func (f *TokenFile) Path() string {
	return f.path
}

// Load returns the saved token, or nil if nothing has been saved yet
func (f *TokenFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// Save writes the token readable by the owner only
func (f *TokenFile) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(f.path), tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(f.path, data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token; a missing file is not an error
func (f *TokenFile) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
