package graph

import (
	"path"
	"sort"
	"strings"

	"codegenome/internal/signal"
)

// resolveExts is the candidate-extension order used when a reference
// omits its extension.
var resolveExts = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".json"}

// FileInput is the per-file metadata the builder needs from the scan.
type FileInput struct {
	Path     string
	Category signal.FileCategory
	Lines    int
	Barrel   bool
}

type aliasRule struct {
	prefix string
	target string
}

// Builder resolves raw reference strings to canonical module identities
// and assembles the immutable Graph for a run.
//
// Resolution order: exact relative path, configured alias prefix, then a
// best-effort same-directory fallback. References that look internal but
// match no known file are counted as unresolved and dropped, never
// guessed. External package references are not part of the tree and are
// skipped without counting.
type Builder struct {
	files     map[string]bool
	topLevels map[string]bool
	aliases   []aliasRule
	inputs    []FileInput
}

func NewBuilder(files []FileInput, aliases map[string]string) *Builder {
	b := &Builder{
		files:     make(map[string]bool, len(files)),
		topLevels: make(map[string]bool),
		inputs:    append([]FileInput(nil), files...),
	}
	sort.Slice(b.inputs, func(i, j int) bool { return b.inputs[i].Path < b.inputs[j].Path })
	for _, f := range b.inputs {
		b.files[f.Path] = true
		b.topLevels[strings.SplitN(f.Path, "/", 2)[0]] = true
	}
	for prefix, target := range aliases {
		if prefix == "" {
			continue
		}
		if target != "" && !strings.HasSuffix(target, "/") {
			target += "/"
		}
		b.aliases = append(b.aliases, aliasRule{prefix: prefix, target: target})
	}
	// Longest prefix wins; tie broken lexically for reproducibility.
	sort.Slice(b.aliases, func(i, j int) bool {
		if len(b.aliases[i].prefix) != len(b.aliases[j].prefix) {
			return len(b.aliases[i].prefix) > len(b.aliases[j].prefix)
		}
		return b.aliases[i].prefix < b.aliases[j].prefix
	})
	return b
}

// ModuleID maps a file path to its canonical module identity. Top-level
// files collapse into the synthetic root node.
func ModuleID(relPath string) string {
	if !strings.Contains(relPath, "/") {
		return RootModuleID
	}
	return relPath
}

// Build consumes extracted references and returns the Graph. Inputs are
// sorted before resolution so the result is deterministic regardless of
// the order files were scanned in.
func (b *Builder) Build(refs []signal.Reference) *Graph {
	g := NewGraph()

	for _, f := range b.inputs {
		id := ModuleID(f.Path)
		if id == RootModuleID {
			g.AddModule(&Module{Path: RootModuleID, Name: RootModuleID, Category: signal.CategoryOther, Lines: f.Lines})
			continue
		}
		g.AddModule(&Module{
			Path:     f.Path,
			Name:     fileStem(f.Path),
			Category: f.Category,
			Lines:    f.Lines,
			Barrel:   f.Barrel,
		})
	}

	sorted := append([]signal.Reference(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FromFile != sorted[j].FromFile {
			return sorted[i].FromFile < sorted[j].FromFile
		}
		return sorted[i].Target < sorted[j].Target
	})

	for _, ref := range sorted {
		resolved, via, status := b.resolve(ref.FromFile, ref.Target)
		switch status {
		case refResolved:
			kind := EdgeReference
			if ref.Kind == signal.RefReexport {
				kind = EdgeReexport
			}
			g.AddEdge(Edge{From: ModuleID(ref.FromFile), To: ModuleID(resolved), Kind: kind, Via: via})
		case refUnresolved:
			g.Unresolved++
		}
	}
	return g
}

type refStatus int

const (
	refResolved refStatus = iota
	refUnresolved
	refExternal
)

func (b *Builder) resolve(fromFile, target string) (string, Resolution, refStatus) {
	target = strings.TrimSpace(target)
	if target == "" || strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "node:") {
		return "", "", refExternal
	}

	if strings.HasSuffix(fromFile, ".py") {
		return b.resolvePython(fromFile, target)
	}

	// 1. Exact relative resolution.
	if strings.HasPrefix(target, ".") {
		base := path.Join(path.Dir(fromFile), target)
		if hit := b.chooseExisting(base); hit != "" {
			return hit, ResolvedRelative, refResolved
		}
		return "", "", refUnresolved
	}
	if strings.HasPrefix(target, "/") {
		if hit := b.chooseExisting(strings.TrimPrefix(target, "/")); hit != "" {
			return hit, ResolvedRelative, refResolved
		}
		return "", "", refUnresolved
	}

	// 2. Configured alias prefixes.
	for _, rule := range b.aliases {
		if !strings.HasPrefix(target, rule.prefix) {
			continue
		}
		base := rule.target + strings.TrimPrefix(target, rule.prefix)
		if hit := b.chooseExisting(base); hit != "" {
			return hit, ResolvedAlias, refResolved
		}
		return "", "", refUnresolved
	}

	// References into a known top-level directory are internal even
	// without a ./ prefix; anything else is an external package.
	if first := strings.SplitN(target, "/", 2)[0]; strings.Contains(target, "/") && b.topLevels[first] {
		if hit := b.chooseExisting(target); hit != "" {
			return hit, ResolvedRelative, refResolved
		}
		return "", "", refUnresolved
	}

	// 3. Same-directory fallback for bare names that match a sibling.
	base := path.Join(path.Dir(fromFile), path.Base(target))
	if hit := b.chooseExisting(base); hit != "" {
		return hit, ResolvedFallback, refResolved
	}
	return "", "", refExternal
}

func (b *Builder) resolvePython(fromFile, target string) (string, Resolution, refStatus) {
	if strings.HasPrefix(target, ".") {
		level := 0
		for level < len(target) && target[level] == '.' {
			level++
		}
		suffix := target[level:]
		base := path.Dir(fromFile)
		for i := 0; i < level-1; i++ {
			base = path.Dir(base)
		}
		candidates := []string{}
		if suffix != "" {
			joined := path.Join(base, strings.ReplaceAll(suffix, ".", "/"))
			candidates = append(candidates, joined+".py", joined+"/__init__.py")
		} else {
			candidates = append(candidates, path.Join(base, "__init__.py"))
		}
		for _, c := range candidates {
			if b.files[c] {
				return c, ResolvedRelative, refResolved
			}
		}
		return "", "", refUnresolved
	}

	joined := strings.ReplaceAll(target, ".", "/")
	for _, c := range []string{joined + ".py", joined + "/__init__.py"} {
		if b.files[c] {
			return c, ResolvedRelative, refResolved
		}
	}
	// Dotted names rooted in a known top-level directory are internal
	// misses; everything else is stdlib or a third-party package.
	if b.topLevels[strings.SplitN(joined, "/", 2)[0]] && strings.Contains(joined, "/") {
		return "", "", refUnresolved
	}
	return "", "", refExternal
}

// chooseExisting expands a base path to its candidate files (exact path,
// known extensions, index files) and returns the first known match.
func (b *Builder) chooseExisting(base string) string {
	base = path.Clean(base)
	if base == "." || base == "" || strings.HasPrefix(base, "..") {
		return ""
	}
	if path.Ext(base) != "" && b.files[base] {
		return base
	}
	for _, ext := range resolveExts {
		if b.files[base+ext] {
			return base + ext
		}
	}
	for _, ext := range resolveExts {
		if c := base + "/index" + ext; b.files[c] {
			return c
		}
	}
	return ""
}

func fileStem(p string) string {
	base := path.Base(p)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
