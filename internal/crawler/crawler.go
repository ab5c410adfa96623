package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"codegenome/internal/config"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileDesc describes one candidate source file yielded by a scan.
type FileDesc struct {
	Path    string // root-relative, forward slashes
	AbsPath string
	Size    int64
	Ext     string // lower-cased, includes the dot
}

// Crawler walks a root directory applying the exclusion configuration.
// A Crawler is cold and restartable: each Scan call starts fresh and
// resets the recorded warnings.
type Crawler struct {
	excludeDirs map[string]bool
	includeExts map[string]bool
	maxFileSize int64
	warnings    []string
}

func New(cfg *config.ScanConfig) *Crawler {
	c := &Crawler{
		excludeDirs: make(map[string]bool, len(cfg.ExcludeDirs)),
		includeExts: make(map[string]bool, len(cfg.IncludeExts)),
		maxFileSize: cfg.MaxFileSize,
	}
	for _, d := range cfg.ExcludeDirs {
		c.excludeDirs[d] = true
	}
	for _, e := range cfg.IncludeExts {
		c.includeExts[strings.ToLower(e)] = true
	}
	return c
}

// Scan walks root and streams matching files to onFile. Denylisted
// directories are pruned at the directory level, never re-checked per
// file. Unreadable entries below the root are recorded as warnings and
// skipped; only an unreadable root is fatal.
func (c *Crawler) Scan(root string, onFile func(FileDesc)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("project root unreadable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project root is not a directory: %s", absRoot)
	}

	c.warnings = nil
	matcher := loadIgnoreFile(absRoot)

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return fmt.Errorf("project root unreadable: %w", err)
			}
			c.warn("unreadable entry skipped: %s", path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := relSlash(absRoot, path)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if c.excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are never followed: a link pointing outside the root
		// would defeat the cycle/explosion guard, and WalkDir does not
		// descend into linked directories either way.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !c.includeExts[ext] {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			c.warn("unreadable file skipped: %s", rel)
			return nil
		}
		if c.maxFileSize > 0 && fi.Size() > c.maxFileSize {
			c.warn("oversized file skipped (%d bytes): %s", fi.Size(), rel)
			return nil
		}

		onFile(FileDesc{Path: rel, AbsPath: path, Size: fi.Size(), Ext: ext})
		return nil
	})
}

// Warnings returns the partial-scan warnings recorded by the last Scan.
func (c *Crawler) Warnings() []string {
	return c.warnings
}

func (c *Crawler) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func loadIgnoreFile(absRoot string) *ignore.GitIgnore {
	path := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return matcher
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
