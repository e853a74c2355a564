// Package fileutil provides utility functions for locating workflow files.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var log = logger.New("fileutil:fileutil")

// StdinPath is the path argument that selects standard input.
const StdinPath = "-"

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsYAMLFile reports whether path has a .yml or .yaml extension.
func IsYAMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// ExpandPaths resolves command line arguments into the files to validate.
// Directories are searched recursively for YAML files, arguments containing
// glob metacharacters are expanded with doublestar, and StdinPath is passed
// through. Results keep argument order and are de-duplicated.
func ExpandPaths(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		switch {
		case arg == StdinPath:
			add(arg)
		case DirExists(arg):
			found, err := yamlFilesUnder(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		case FileExists(arg):
			add(arg)
		case hasMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern '%s': %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match '%s'", arg)
			}
			slices.Sort(matches)
			for _, m := range matches {
				add(m)
			}
		default:
			return nil, fmt.Errorf("file not found: %s", arg)
		}
	}
	log.Printf("Expanded %d arguments to %d files", len(args), len(files))
	return files, nil
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// yamlFilesUnder walks dir and returns its YAML files in lexical order.
func yamlFilesUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") && d.Name() != ".github" {
				return filepath.SkipDir
			}
			return nil
		}
		if IsYAMLFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory '%s': %w", dir, err)
	}
	log.Printf("Found %d YAML files under %s", len(files), dir)
	return files, nil
}
