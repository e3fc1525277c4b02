// Package discovery picks the project file a request most likely targets.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// #region config
// Config controls which files are considered.
type Config struct {
	Extensions []string `koanf:"extensions" validate:"required,min=1"`
	SkipDirs   []string `koanf:"skip_dirs"`
	// DefaultDir is where a new component goes when the project has no candidates.
	DefaultDir string `koanf:"default_dir"`
}

// DefaultConfig scans .js and .jsx outside dependency and build directories.
func DefaultConfig() Config {
	return Config{
		Extensions: []string{".js", ".jsx"},
		SkipDirs:   []string{"node_modules", ".git", ".next", "dist", "build"},
		DefaultDir: "components",
	}
}
// #endregion config

// #region types
// Result is the chosen target file.
type Result struct {
	Path    string
	Content string
	Score   int
	// Exists is false when no candidate was found and Path is a new file.
	Exists bool
}
// #endregion types

// #region find
// Find walks root for candidate files and scores each by the request keywords
// found in its path and content. Path matches weigh double. With no keyword
// match the first candidate in walk order wins; with no candidates a new
// component path is derived from the task.
func Find(root, task string, cfg Config) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("stat project: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("project %s is not a directory", root)
	}

	keywords := tokenize(task)
	var best Result
	found := false

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && cfg.skip(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !cfg.matches(path) {
			return nil
		}
		content, err := ReadFile(path)
		if err != nil {
			// unreadable candidates are skipped, not fatal
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		score := 2*sharedKeywords(keywords, tokenize(rel)) + sharedKeywords(keywords, tokenize(content))
		if !found || score > best.Score {
			best = Result{Path: path, Content: content, Score: score, Exists: true}
			found = true
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("walk project: %w", err)
	}
	if found {
		return best, nil
	}

	name := componentName(keywords)
	return Result{Path: filepath.Join(root, cfg.DefaultDir, name+cfg.Extensions[0])}, nil
}
// #endregion find

// #region read
// ReadFile returns the file as UTF-8, converting from a detected legacy
// encoding when the bytes are not valid UTF-8.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	enc, name, _ := charset.DetermineEncoding(raw, "text/plain")
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s as %s: %w", path, name, err)
	}
	return string(decoded), nil
}
// #endregion read

func (c Config) skip(name string) bool {
	for _, s := range c.SkipDirs {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// componentName builds a PascalCase name from the first two keywords.
func componentName(keywords []string) string {
	if len(keywords) == 0 {
		return "NewComponent"
	}
	if len(keywords) > 2 {
		keywords = keywords[:2]
	}
	var b strings.Builder
	for _, k := range keywords {
		r, size := utf8.DecodeRuneInString(k)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(k[size:])
	}
	return b.String()
}
