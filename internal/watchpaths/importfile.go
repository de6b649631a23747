package watchpaths

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImportFile is the YAML document accepted by Import:
//
//	paths:
//	  - ~/Documents
//	  - /srv/share
//	include_subdirectories: true
//	enabled: true
//	is_excluded: false
type ImportFile struct {
	Paths                 []string `yaml:"paths"`
	IncludeSubdirectories *bool    `yaml:"include_subdirectories"`
	Enabled               *bool    `yaml:"enabled"`
	IsExcluded            *bool    `yaml:"is_excluded"`
}

// Options merges the file's flags over DefaultOptions.
func (f ImportFile) Options() Options {
	opts := DefaultOptions()
	if f.IncludeSubdirectories != nil {
		opts.IncludeSubdirectories = *f.IncludeSubdirectories
	}
	if f.Enabled != nil {
		opts.Enabled = *f.Enabled
	}
	if f.IsExcluded != nil {
		opts.IsExcluded = *f.IsExcluded
	}
	return opts
}

// ParseImport decodes an import document.
func ParseImport(r io.Reader) (ImportFile, error) {
	var f ImportFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return ImportFile{}, fmt.Errorf("import file is empty")
		}
		return ImportFile{}, fmt.Errorf("parse import file: %w", err)
	}
	f.Paths = normalizePaths(f.Paths)
	if len(f.Paths) == 0 {
		return ImportFile{}, fmt.Errorf("import file lists no paths")
	}
	return f, nil
}

// LoadImport reads and decodes the import document at path.
func LoadImport(path string) (ImportFile, error) {
	file, err := os.Open(expandHome(path))
	if err != nil {
		return ImportFile{}, fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ParseImport(file)
}

// Import batch-adds every path listed in the YAML file at path.
func (m *Manager) Import(ctx context.Context, path string) (BatchReport, error) {
	f, err := LoadImport(path)
	if err != nil {
		return BatchReport{}, err
	}
	return m.AddBatch(ctx, f.Paths, f.Options())
}

// normalizePaths trims, expands ~ and drops empty entries. Duplicates are
// kept so the backend reports them as skipped.
func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = expandHome(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
