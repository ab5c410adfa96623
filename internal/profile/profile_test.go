package profile

import (
	"testing"
	"time"

	"codegenome/internal/analysis"
	"codegenome/internal/graph"
	"codegenome/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureInput(t *testing.T) *Input {
	t.Helper()
	g := graph.NewGraph()
	for _, m := range []*graph.Module{
		{Path: "src/app.js", Name: "app", Category: signal.CategoryScript, Lines: 120},
		{Path: "src/api.js", Name: "api", Category: signal.CategoryScript, Lines: 80},
		{Path: "src/index.js", Name: "index", Category: signal.CategoryScript, Lines: 4, Barrel: true},
		{Path: "src/theme.css", Name: "theme", Category: signal.CategoryStyle, Lines: 50},
		{Path: "server/routes.js", Name: "routes", Category: signal.CategoryScript, Lines: 200},
	} {
		g.AddModule(m)
	}
	require.True(t, g.AddEdge(graph.Edge{From: "src/app.js", To: "src/api.js", Kind: graph.EdgeReference, Via: graph.ResolvedRelative}))
	require.True(t, g.AddEdge(graph.Edge{From: "server/routes.js", To: "src/api.js", Kind: graph.EdgeReference, Via: graph.ResolvedAlias}))

	sig := signal.NewStackSignals()
	sig.Add("routing", "express", "server/routes.js")
	sig.Add("data-fetch", "axios", "src/api.js")

	return &Input{
		ProjectName:    "demo",
		TotalFiles:     5,
		TotalLines:     454,
		DirFiles:       map[string]int{"src": 4, "server": 1},
		DirSourceFiles: map[string]int{"src": 3, "server": 1},
		Graph:          g,
		Signals:        sig,
		Routes: []signal.RouteMarker{
			{Method: "GET", Path: "/users", File: "server/routes.js"},
			{Method: "POST", Path: "/users", File: "server/routes.js"},
		},
		Models:      []signal.ModelMarker{{Name: "User", Type: "mongoose", File: "server/models/user.js"}},
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeSections(t *testing.T) {
	s := &Summarizer{MaxModuleMaps: 3}
	out := s.Summarize(fixtureInput(t))

	assert.Contains(t, out, "# Project Genome: demo")
	assert.Contains(t, out, "## Snapshot")
	assert.Contains(t, out, "- Files scanned: 5")
	assert.Contains(t, out, "## Tech Stack")
	assert.Contains(t, out, "- **routing**: express")
	assert.Contains(t, out, "## Directory Map")
	assert.Contains(t, out, "## Key Data Models")
	assert.Contains(t, out, "**User** (mongoose)")
	assert.Contains(t, out, "## API Surface")
	assert.Contains(t, out, "- GET /users")
	assert.Contains(t, out, "## Module Dependencies")
	assert.Contains(t, out, "`src/api.js` ← 2 dependent(s)")
	assert.Contains(t, out, "## Circular Dependencies")
	assert.Contains(t, out, "None detected.")
	assert.Contains(t, out, "## Generation Notes")
}

func TestSummarizeIsDeterministic(t *testing.T) {
	s := &Summarizer{MaxModuleMaps: 3}
	first := s.Summarize(fixtureInput(t))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Summarize(fixtureInput(t)))
	}
}

func TestSummarizeTruncation(t *testing.T) {
	in := fixtureInput(t)
	for i := 0; i < 30; i++ {
		in.Models = append(in.Models, signal.ModelMarker{
			Name: "Model" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Type: "sequelize",
			File: "server/models/gen.js",
		})
	}

	s := &Summarizer{MaxModuleMaps: 3}
	out := s.Summarize(in)
	assert.Contains(t, out, "(showing 20 of 31 models)")
}

func TestSummarizeBudgetDropsSections(t *testing.T) {
	s := &Summarizer{Budget: 300, MaxModuleMaps: 3}
	out := s.Summarize(fixtureInput(t))

	// Header and snapshot fit in 300 characters; later sections go.
	assert.Contains(t, out, "## Snapshot")
	assert.Contains(t, out, "section(s) omitted to stay within the output budget")
	assert.NotContains(t, out, "## API Surface")
	assert.Less(t, len(out), 600)
}

func TestSummarizeReportsCycles(t *testing.T) {
	in := fixtureInput(t)
	in.Cycles = []analysis.Cycle{
		{Modules: []string{"src/a.js", "src/b.js"}, Length: 2, Class: analysis.CycleDirect},
	}
	s := &Summarizer{MaxModuleMaps: 3}
	out := s.Summarize(in)
	assert.Contains(t, out, "- [direct] src/a.js <-> src/b.js")
	assert.NotContains(t, out, "None detected.")
}

func TestModuleMaps(t *testing.T) {
	in := fixtureInput(t)
	s := &Summarizer{MaxModuleMaps: 3}
	maps := s.ModuleMaps(in)

	// Only src has three or more recognized source files.
	require.Len(t, maps, 1)
	content, ok := maps["src"]
	require.True(t, ok)

	assert.Contains(t, content, "# Module Map: src/")
	assert.Contains(t, content, "## Imports From")
	assert.Contains(t, content, "## Imported By")
	assert.Contains(t, content, "- `server/`")
	assert.Contains(t, content, "## Key Files")
	assert.Contains(t, content, "`src/api.js`")
	assert.NotContains(t, content, "src/index.js", "barrel files never occupy key-file slots")
	assert.NotContains(t, content, "src/theme.css", "style files never occupy key-file slots")
}

func TestModuleMapsRespectsCap(t *testing.T) {
	in := fixtureInput(t)
	in.DirFiles["lib"] = 5
	in.DirSourceFiles["lib"] = 5
	in.DirFiles["pkg"] = 5
	in.DirSourceFiles["pkg"] = 5

	s := &Summarizer{MaxModuleMaps: 2}
	assert.Len(t, s.ModuleMaps(in), 2)
}

func TestDirectoryRanking(t *testing.T) {
	in := fixtureInput(t)
	// server is all source (1/1), src is 3/4; server must rank first.
	dirs := rankedDirs(in)
	assert.Equal(t, []string{"server", "src"}, dirs)
}
