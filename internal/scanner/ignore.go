package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName is the workspace-level ignore file, one pattern per line,
// git-ignore style (names, prefixes, ** globs, # comments).
const IgnoreFileName = ".codelensignore"

// defaultIgnores are written into a fresh ignore file and always include the
// index's own storage directory.
var defaultIgnores = []string{
	ArtifactDirName,
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"target",
	"__pycache__",
	".idea",
	".vscode",
	"dist",
	"build",
}

// IgnoreSet evaluates ignore patterns against workspace-relative paths.
type IgnoreSet struct {
	patterns []string
}

// LoadIgnore reads the ignore file under root, creating it with defaults if
// absent, and merges any extra patterns from configuration.
func LoadIgnore(root string, extra []string) (*IgnoreSet, error) {
	path := filepath.Join(root, IgnoreFileName)

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open ignore file: %w", err)
		}
		return &IgnoreSet{patterns: append(defaultIgnores, extra...)}, nil
	}
	defer f.Close()

	patterns := make([]string, 0, len(defaultIgnores))
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}

	// The storage artifact is excluded even when the user's file omits it.
	if !contains(patterns, ArtifactDirName) {
		patterns = append(patterns, ArtifactDirName)
	}
	return &IgnoreSet{patterns: append(patterns, extra...)}, nil
}

// Match reports whether a directory or file should be skipped. name is the
// base name, relPath the slash-separated path relative to the root.
func (s *IgnoreSet) Match(name, relPath string) bool {
	for _, p := range s.patterns {
		if name == p {
			return true
		}
		if strings.HasPrefix(relPath, p+"/") || relPath == p {
			return true
		}
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// EnsureIgnoreFile guarantees that the ignore file under root exists and
// excludes the index's own storage directory. It is idempotent and runs on
// every workspace open, in both roles.
func EnsureIgnoreFile(root string) error {
	path := filepath.Join(root, IgnoreFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read ignore file: %w", err)
		}
		var b strings.Builder
		b.WriteString("# Paths excluded from indexing, one pattern per line.\n")
		b.WriteString("# Supports exact names, path prefixes, and ** globs.\n\n")
		for _, p := range defaultIgnores {
			b.WriteString(p)
			b.WriteByte('\n')
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("create ignore file: %w", err)
		}
		return nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == ArtifactDirName {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append to ignore file: %w", err)
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && data[len(data)-1] != '\n' {
		prefix = "\n"
	}
	if _, err := fmt.Fprintf(f, "%s%s\n", prefix, ArtifactDirName); err != nil {
		return fmt.Errorf("append to ignore file: %w", err)
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
