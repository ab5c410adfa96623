package signal

import (
	"path"
	"regexp"
	"strings"
)

// FileCategory tags a file with the architectural layer its extension
// implies. Pattern groups are gated on these tags so that, for example, a
// frontend state-management token inside a backend-only tree is never
// reported as a frontend signal.
type FileCategory string

const (
	CategoryFrontend FileCategory = "frontend"
	CategoryScript   FileCategory = "script" // plain JS/TS, could serve either side
	CategoryBackend  FileCategory = "backend"
	CategoryStyle    FileCategory = "style"
	CategoryConfig   FileCategory = "config"
	CategoryDoc      FileCategory = "doc"
	CategoryOther    FileCategory = "other"
)

var categoryByExt = map[string]FileCategory{
	".jsx": CategoryFrontend, ".tsx": CategoryFrontend, ".vue": CategoryFrontend,
	".html": CategoryFrontend,
	".js":   CategoryScript, ".ts": CategoryScript, ".mjs": CategoryScript, ".cjs": CategoryScript,
	".py": CategoryBackend, ".go": CategoryBackend, ".rb": CategoryBackend,
	".php": CategoryBackend, ".java": CategoryBackend, ".kt": CategoryBackend,
	".rs": CategoryBackend, ".c": CategoryBackend, ".cpp": CategoryBackend,
	".h": CategoryBackend, ".cs": CategoryBackend,
	".css": CategoryStyle, ".scss": CategoryStyle, ".sass": CategoryStyle, ".less": CategoryStyle,
	".json": CategoryConfig, ".yaml": CategoryConfig, ".yml": CategoryConfig, ".toml": CategoryConfig,
	".md": CategoryDoc,
}

// CategorizeFile maps a path to its file category by extension.
func CategorizeFile(p string) FileCategory {
	ext := strings.ToLower(path.Ext(p))
	if cat, ok := categoryByExt[ext]; ok {
		return cat
	}
	return CategoryOther
}

// SourceCategories are the categories counted as "recognized source" when
// ranking directories by code density.
var SourceCategories = map[FileCategory]bool{
	CategoryFrontend: true,
	CategoryScript:   true,
	CategoryBackend:  true,
}

// PatternGroup declares one detectable technology value within a signal
// category. Every group that matches reports its value: detection is
// set-valued per category, never winner-take-all, because mixed-stack
// repositories legitimately carry more than one idiom per category.
type PatternGroup struct {
	Category  string
	Value     string
	AppliesTo []FileCategory
	Patterns  []*regexp.Regexp
}

func (g *PatternGroup) appliesTo(cat FileCategory) bool {
	for _, c := range g.AppliesTo {
		if c == cat {
			return true
		}
	}
	return false
}

func rx(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

var (
	frontendOnly = []FileCategory{CategoryFrontend}
	frontendJS   = []FileCategory{CategoryFrontend, CategoryScript}
	backendJS    = []FileCategory{CategoryBackend, CategoryScript}
	backendOnly  = []FileCategory{CategoryBackend}
)

// StackGroups is the ordered declarative table behind stack detection.
var StackGroups = []PatternGroup{
	// State management lives in the frontend layer.
	{Category: "state", Value: "redux", AppliesTo: frontendJS,
		Patterns: rx(`@reduxjs/toolkit`, `\bcreateSlice\s*\(`, `\bconfigureStore\s*\(`, `\buseSelector\s*\(`)},
	{Category: "state", Value: "zustand", AppliesTo: frontendJS,
		Patterns: rx(`['"]zustand['"]`, `\bcreate\(\(set\b`)},
	{Category: "state", Value: "pinia", AppliesTo: frontendJS,
		Patterns: rx(`['"]pinia['"]`, `\bdefineStore\s*\(`)},
	{Category: "state", Value: "react-hooks", AppliesTo: frontendOnly,
		Patterns: rx(`\buseReducer\s*\(`, `\buseState\s*\(`)},

	// Data access can legitimately be plural; every matching idiom is kept.
	{Category: "data-access", Value: "mongoose", AppliesTo: backendJS,
		Patterns: rx(`['"]mongoose['"]`, `\bnew\s+Schema\s*\(`, `mongoose\.model\s*\(`)},
	{Category: "data-access", Value: "prisma", AppliesTo: backendJS,
		Patterns: rx(`\bprisma\.\w+\.(findMany|findUnique|create|update|delete)\b`, `@prisma/client`)},
	{Category: "data-access", Value: "sequelize", AppliesTo: backendJS,
		Patterns: rx(`['"]sequelize['"]`, `\bDataTypes\.`, `sequelize\.define\s*\(`)},
	{Category: "data-access", Value: "typeorm", AppliesTo: backendJS,
		Patterns: rx(`['"]typeorm['"]`, `@Entity\s*\(`, `\bRepository<`)},
	{Category: "data-access", Value: "raw-sql", AppliesTo: backendJS,
		Patterns: rx(`\bSELECT\s+.+\s+FROM\s+`, `\bINSERT\s+INTO\s+`, `\bDELETE\s+FROM\s+`)},
	{Category: "data-access", Value: "database/sql", AppliesTo: backendOnly,
		Patterns: rx(`"database/sql"`, `\bsql\.Open\s*\(`)},

	{Category: "routing", Value: "express", AppliesTo: backendJS,
		Patterns: rx(`express\.Router\s*\(`, `\bapp\.use\s*\(`, `['"]express['"]`)},
	{Category: "routing", Value: "react-router", AppliesTo: frontendJS,
		Patterns: rx(`react-router`, `\bBrowserRouter\b`, `\bcreateBrowserRouter\s*\(`)},
	{Category: "routing", Value: "nextjs", AppliesTo: frontendJS,
		Patterns: rx(`next/navigation`, `next/router`)},
	{Category: "routing", Value: "flask", AppliesTo: backendOnly,
		Patterns: rx(`@app\.route\s*\(`, `\bFlask\s*\(__name__\)`)},
	{Category: "routing", Value: "fastapi", AppliesTo: backendOnly,
		Patterns: rx(`\bFastAPI\s*\(`, `@(?:app|router)\.(?:get|post|put|delete)\s*\(`)},
	{Category: "routing", Value: "net/http", AppliesTo: backendOnly,
		Patterns: rx(`"net/http"`, `http\.HandleFunc\s*\(`)},

	{Category: "auth", Value: "jwt", AppliesTo: backendJS,
		Patterns: rx(`jsonwebtoken`, `\bjwt\.(sign|verify)\b`)},
	{Category: "auth", Value: "session", AppliesTo: backendJS,
		Patterns: rx(`express-session`, `\breq\.session\b`)},
	{Category: "auth", Value: "oauth", AppliesTo: backendJS,
		Patterns: rx(`['"]passport['"]`, `\boauth2?\b`)},

	{Category: "data-fetch", Value: "axios", AppliesTo: frontendJS,
		Patterns: rx(`['"]axios['"]`, `\baxios\.(get|post|put|delete)\b`)},
	{Category: "data-fetch", Value: "react-query", AppliesTo: frontendJS,
		Patterns: rx(`@tanstack/react-query`, `\buseQuery\s*\(`, `\buseMutation\s*\(`)},
	{Category: "data-fetch", Value: "swr", AppliesTo: frontendJS,
		Patterns: rx(`\buseSWR\s*\(`, `from\s+['"]swr['"]`)},
}
