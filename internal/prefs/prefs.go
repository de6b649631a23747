// Package prefs persists fbconsole user preferences.
// Preferences are stored in ~/.config/filebrain/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences. The theme is the only persisted value.
type Prefs struct {
	Theme string `toml:"theme"`
}

const (
	defaultPrefsPath = "~/.config/filebrain/prefs.toml"

	// DefaultTheme is used when no preference has been saved.
	DefaultTheme = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. Any failure yields the defaults: a
// broken preferences file must never stop the console from starting.
func Load(path string) Prefs {
	prefs := Prefs{Theme: DefaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs
	}
	file, err := os.Open(resolved)
	if err != nil {
		return prefs
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs
	}
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: DefaultTheme}
	}
	prefs.Theme = strings.TrimSpace(prefs.Theme)
	if prefs.Theme == "" {
		prefs.Theme = DefaultTheme
	}
	return prefs
}

// Save writes preferences to path, creating directories as needed. The
// file is replaced atomically.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	_, werr := tmp.Write(bytes)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
