package signal

import (
	"regexp"
	"strings"
)

// RefKind distinguishes ordinary references from re-exports.
type RefKind string

const (
	RefReference RefKind = "reference"
	RefReexport  RefKind = "reexport"
)

// Reference is a raw, unresolved dependency statement found in a file.
// Resolution to canonical module identities happens in the graph builder.
type Reference struct {
	FromFile string
	Target   string
	Kind     RefKind
}

// RouteMarker records one route-registration call.
type RouteMarker struct {
	Method string
	Path   string
	File   string
}

// ModelMarker records one schema/model definition.
type ModelMarker struct {
	Name string
	Type string // mongoose, sequelize, typeorm, unknown
	File string
}

// FileResult carries everything extracted from a single file.
type FileResult struct {
	References []Reference
	Stack      []Match
	Routes     []RouteMarker
	Models     []ModelMarker
	Barrel     bool
	Lines      int
}

// Match is one observed (category, value) signal with its source file.
type Match struct {
	Category string
	Value    string
	File     string
}

var (
	jsImportFrom  = regexp.MustCompile(`(?m)^\s*import\s+.+?\s+from\s+['"]([^'"]+)['"]`)
	jsImportSide  = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	jsRequire     = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsExportFrom  = regexp.MustCompile(`(?m)^\s*export\s+(?:\*|\{[^}]*\})\s+from\s+['"]([^'"]+)['"]`)
	pyImport      = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*)`)
	pyFromImport  = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*|\.+[\w.]*)\s+import\s+`)
	routeCall     = regexp.MustCompile("\\b(?:router|app)\\.(get|post|put|delete|patch|options|head|all)\\s*\\(\\s*['\"`]([^'\"`]+)['\"`]")
	mongooseModel = regexp.MustCompile(`mongoose\.model\(\s*['"]([A-Za-z_]\w*)['"]`)
	sequelizeDef  = regexp.MustCompile(`sequelize\.define\(\s*['"]([A-Za-z_]\w*)['"]`)
	classModel    = regexp.MustCompile(`class\s+([A-Za-z_]\w*)\s+extends\s+Model\b`)
)

var jsExts = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".mjs": true, ".cjs": true, ".vue": true,
}

// Extractor applies the declarative pattern tables to file contents.
// It is stateless; one instance serves a whole run.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile runs every applicable pattern group against content.
// All matches per group category are reported, not just the first.
func (e *Extractor) ExtractFile(relPath, ext, content string) *FileResult {
	res := &FileResult{Lines: countLines(content)}
	cat := CategorizeFile(relPath)

	res.References = extractReferences(relPath, ext, content)

	for i := range StackGroups {
		g := &StackGroups[i]
		if !g.appliesTo(cat) {
			continue
		}
		for _, p := range g.Patterns {
			if p.MatchString(content) {
				res.Stack = append(res.Stack, Match{Category: g.Category, Value: g.Value, File: relPath})
				break
			}
		}
	}

	if cat == CategoryBackend || cat == CategoryScript {
		for _, m := range routeCall.FindAllStringSubmatch(content, -1) {
			res.Routes = append(res.Routes, RouteMarker{
				Method: strings.ToUpper(m[1]),
				Path:   m[2],
				File:   relPath,
			})
		}
	}

	res.Models = extractModels(relPath, content)
	res.Barrel = isBarrel(relPath, ext, content)
	return res
}

func extractReferences(relPath, ext, content string) []Reference {
	var refs []Reference
	add := func(kind RefKind, targets [][]string) {
		for _, m := range targets {
			t := strings.TrimSpace(m[1])
			if t == "" {
				continue
			}
			refs = append(refs, Reference{FromFile: relPath, Target: t, Kind: kind})
		}
	}

	if jsExts[ext] {
		add(RefReexport, jsExportFrom.FindAllStringSubmatch(content, -1))
		add(RefReference, jsImportFrom.FindAllStringSubmatch(content, -1))
		add(RefReference, jsImportSide.FindAllStringSubmatch(content, -1))
		add(RefReference, jsRequire.FindAllStringSubmatch(content, -1))
	} else if ext == ".py" {
		add(RefReference, pyImport.FindAllStringSubmatch(content, -1))
		add(RefReference, pyFromImport.FindAllStringSubmatch(content, -1))
	}
	return refs
}

func extractModels(relPath, content string) []ModelMarker {
	lower := strings.ToLower(relPath)
	hinted := strings.Contains(lower, "/models/") || strings.Contains(stem(lower), "model")

	var models []ModelMarker
	for _, m := range mongooseModel.FindAllStringSubmatch(content, -1) {
		models = append(models, ModelMarker{Name: m[1], Type: "mongoose", File: relPath})
	}
	for _, m := range sequelizeDef.FindAllStringSubmatch(content, -1) {
		models = append(models, ModelMarker{Name: m[1], Type: "sequelize", File: relPath})
	}
	for _, m := range classModel.FindAllStringSubmatch(content, -1) {
		models = append(models, ModelMarker{Name: m[1], Type: "typeorm", File: relPath})
	}
	if len(models) == 0 && hinted && strings.Contains(content, "Schema") {
		models = append(models, ModelMarker{Name: stem(relPath), Type: "unknown", File: relPath})
	}
	return models
}

// isBarrel reports whether a file only re-exports other modules. Barrel
// files stay in the graph (removing them would break real edges) but are
// excluded from key-file listings downstream.
func isBarrel(relPath, ext, content string) bool {
	if jsExts[ext] {
		significant := 0
		for _, line := range strings.Split(content, "\n") {
			t := strings.TrimSpace(line)
			if t == "" || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*") {
				continue
			}
			significant++
			if !strings.HasPrefix(t, "export ") {
				return false
			}
			if !strings.Contains(t, " from ") && !strings.HasPrefix(t, "export {") {
				return false
			}
		}
		return significant > 0
	}
	if ext == ".py" && strings.HasSuffix(relPath, "__init__.py") {
		significant := 0
		for _, line := range strings.Split(content, "\n") {
			t := strings.TrimSpace(line)
			if t == "" || strings.HasPrefix(t, "#") {
				continue
			}
			significant++
			if !strings.HasPrefix(t, "from ") && !strings.HasPrefix(t, "import ") {
				return false
			}
		}
		return significant > 0
	}
	return false
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

func stem(p string) string {
	base := p
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
