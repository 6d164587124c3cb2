package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/warden/pkg/profile"
)

// Extensions are the document file extensions read from a directory.
var Extensions = []string{".yaml", ".yml", ".json"}

// LoadErrors collects per-document failures of a directory load.
type LoadErrors struct {
	Errors []error
}

// Error implements the error interface.
func (e *LoadErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d profile documents failed to load:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Unwrap returns the individual errors.
func (e *LoadErrors) Unwrap() []error {
	return e.Errors
}

// LoadDirectory parses every profile document below dir. Documents that fail
// are reported in a *LoadErrors alongside the profiles that loaded, so one bad
// file does not hide the others.
func LoadDirectory(dir string, opts profile.Options) ([]*profile.Profile, error) {
	files, err := collectFiles(dir)
	if err != nil {
		return nil, err
	}

	var (
		profiles []*profile.Profile
		failures []error
	)
	for _, path := range files {
		fileOpts := opts
		if opts.Source != "" {
			rel, _ := filepath.Rel(dir, path)
			fileOpts.Source = opts.Source + ":" + filepath.ToSlash(rel)
		}

		p, err := profile.ParseFile(path, fileOpts)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		profiles = append(profiles, p)
	}

	if len(failures) > 0 {
		return profiles, &LoadErrors{Errors: failures}
	}
	return profiles, nil
}

// collectFiles lists document files below dir in lexical order, skipping
// hidden files and directories.
func collectFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("profile path %q is not a directory", dir)
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && hasExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk profile directory %q: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
