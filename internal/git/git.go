package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Scope names where a change set came from, in detection order.
type Scope string

const (
	ScopeStaged     Scope = "staged"
	ScopeUnstaged   Scope = "unstaged"
	ScopeLastCommit Scope = "last-commit"
	ScopeNone       Scope = "none"
)

// ChangedFile is one modified file with the line numbers its hunks touch
// on the new side. ChangedLines is empty when only names were available.
type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// ChangeSet is what change detection produced for a project root.
type ChangeSet struct {
	Scope Scope
	Files []ChangedFile
	Notes []string
}

// Paths returns the changed file paths in detection order.
func (c *ChangeSet) Paths() []string {
	out := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		out = append(out, f.Path)
	}
	return out
}

// DetectChanges finds the most relevant pending change set: staged
// changes first, then unstaged, then the last commit. Outside a git
// work tree it degrades to an empty set with an explanatory note rather
// than failing the caller.
func DetectChanges(root string) *ChangeSet {
	if !insideWorkTree(root) {
		return &ChangeSet{Scope: ScopeNone, Notes: []string{"no version control context; pass changed files explicitly"}}
	}

	if files, err := diffFiles(root, "diff", "--cached"); err == nil && len(files) > 0 {
		return &ChangeSet{Scope: ScopeStaged, Files: files}
	}
	if files, err := diffFiles(root, "diff"); err == nil && len(files) > 0 {
		return &ChangeSet{Scope: ScopeUnstaged, Files: files}
	}

	if files, err := diffFiles(root, "diff", "HEAD~1..HEAD"); err == nil && len(files) > 0 {
		return &ChangeSet{Scope: ScopeLastCommit, Files: files}
	}
	// A root commit has no HEAD~1; fall back to names only.
	if files, err := lastCommitNames(root); err == nil && len(files) > 0 {
		return &ChangeSet{
			Scope: ScopeLastCommit,
			Files: files,
			Notes: []string{"line detail unavailable for the initial commit; file names only"},
		}
	}

	return &ChangeSet{Scope: ScopeNone, Notes: []string{"working tree is clean and no prior commit was found"}}
}

func insideWorkTree(root string) bool {
	out, err := runGit(root, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func diffFiles(root string, args ...string) ([]ChangedFile, error) {
	out, err := runGit(root, args...)
	if err != nil {
		return nil, err
	}
	return ParseUnifiedDiff(out)
}

func lastCommitNames(root string) ([]ChangedFile, error) {
	out, err := runGit(root, "diff-tree", "--no-commit-id", "--name-only", "-r", "--root", "HEAD")
	if err != nil {
		return nil, err
	}
	var files []ChangedFile
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, ChangedFile{Path: line})
		}
	}
	return files, nil
}

// ParseUnifiedDiff extracts changed files and their new-side line numbers
// from raw `git diff` output.
func ParseUnifiedDiff(raw []byte) ([]ChangedFile, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	fds, err := diff.ParseMultiFileDiff(raw)
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	var files []ChangedFile
	for _, fd := range fds {
		name := strings.TrimPrefix(fd.NewName, "b/")
		if name == "/dev/null" { // deletion; the old path is the seed
			name = strings.TrimPrefix(fd.OrigName, "a/")
		}
		cf := ChangedFile{Path: name}
		for _, h := range fd.Hunks {
			for i := int32(0); i < h.NewLines; i++ {
				cf.ChangedLines = append(cf.ChangedLines, int(h.NewStartLine+i))
			}
		}
		files = append(files, cf)
	}
	return files, nil
}

func runGit(root string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return out, nil
}
