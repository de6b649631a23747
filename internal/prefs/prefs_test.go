package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Load("")
	if p.Theme != DefaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, DefaultTheme)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "filebrain")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(prefsDir, "prefs.toml"), []byte("theme = \"Slate\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if p := Load(""); p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Slate")
	}
}

func TestSave_RoundTripsAndCreatesDirs(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(prefsFile, Prefs{Theme: "Kanagawa"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if p := Load(prefsFile); p.Theme != "Kanagawa" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Kanagawa")
	}

	entries, err := os.ReadDir(filepath.Dir(prefsFile))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("prefs dir has %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestLoad_BadContentFallsBackToDefault(t *testing.T) {
	tests := map[string]string{
		"empty theme":  "theme = \"  \"\n",
		"invalid toml": "not valid toml {{{\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(prefsFile, []byte(body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if p := Load(prefsFile); p.Theme != DefaultTheme {
				t.Fatalf("Theme = %q, want %q", p.Theme, DefaultTheme)
			}
		})
	}
}
