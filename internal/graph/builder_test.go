package graph

import (
	"testing"

	"codegenome/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputs(paths ...string) []FileInput {
	out := make([]FileInput, 0, len(paths))
	for _, p := range paths {
		out = append(out, FileInput{Path: p, Category: signal.CategorizeFile(p), Lines: 10})
	}
	return out
}

func ref(from, target string) signal.Reference {
	return signal.Reference{FromFile: from, Target: target, Kind: signal.RefReference}
}

func TestResolveRelative(t *testing.T) {
	b := NewBuilder(inputs("src/app.js", "src/utils/helper.js", "src/components/index.ts"), nil)

	t.Run("extension expansion", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/app.js", "./utils/helper")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "src/utils/helper.js", g.Edges[0].To)
		assert.Equal(t, ResolvedRelative, g.Edges[0].Via)
	})

	t.Run("index expansion", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/app.js", "./components")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "src/components/index.ts", g.Edges[0].To)
	})

	t.Run("exact path with extension", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/app.js", "./utils/helper.js")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "src/utils/helper.js", g.Edges[0].To)
	})
}

func TestResolveAlias(t *testing.T) {
	aliases := map[string]string{"@/": "src/"}
	b := NewBuilder(inputs("src/lib/api.ts", "app/page.tsx"), aliases)

	g := b.Build([]signal.Reference{ref("app/page.tsx", "@/lib/api")})
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "src/lib/api.ts", g.Edges[0].To)
	assert.Equal(t, ResolvedAlias, g.Edges[0].Via)
}

func TestResolvePython(t *testing.T) {
	b := NewBuilder(inputs("app/views.py", "app/models.py", "app/core/__init__.py", "lib/util.py"), nil)

	t.Run("relative module", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("app/views.py", ".models")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "app/models.py", g.Edges[0].To)
	})

	t.Run("package init", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("app/views.py", ".core")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "app/core/__init__.py", g.Edges[0].To)
	})

	t.Run("root based dotted path", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("app/views.py", "lib.util")})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, "lib/util.py", g.Edges[0].To)
	})

	t.Run("stdlib import is not unresolved", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("app/views.py", "os")})
		assert.Empty(t, g.Edges)
		assert.Zero(t, g.Unresolved)
	})
}

func TestUnresolvedCounting(t *testing.T) {
	b := NewBuilder(inputs("src/app.js"), nil)

	t.Run("broken relative reference counts", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/app.js", "./missing")})
		assert.Empty(t, g.Edges)
		assert.Equal(t, 1, g.Unresolved)
	})

	t.Run("external package does not count", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/app.js", "react")})
		assert.Empty(t, g.Edges)
		assert.Zero(t, g.Unresolved)
	})
}

func TestGraphInvariants(t *testing.T) {
	b := NewBuilder(inputs("src/a.js", "src/b.js"), nil)

	t.Run("duplicate references produce one edge", func(t *testing.T) {
		g := b.Build([]signal.Reference{
			ref("src/a.js", "./b"),
			ref("src/a.js", "./b.js"),
		})
		assert.Len(t, g.Edges, 1)
	})

	t.Run("self references are dropped", func(t *testing.T) {
		g := b.Build([]signal.Reference{ref("src/a.js", "./a")})
		assert.Empty(t, g.Edges)
	})
}

func TestRootGrouping(t *testing.T) {
	b := NewBuilder(inputs("index.js", "setup.js", "src/app.js"), nil)
	g := b.Build([]signal.Reference{ref("src/app.js", "./missing-nothing")})

	root, ok := g.Modules[RootModuleID]
	require.True(t, ok)
	assert.Equal(t, 20, root.Lines, "root node accumulates all top-level files")

	// Edges between two top-level files collapse to a self-edge on the
	// root node and must disappear.
	g2 := NewBuilder(inputs("index.js", "setup.js"), nil).Build([]signal.Reference{ref("index.js", "./setup")})
	assert.Empty(t, g2.Edges)
}

func TestDependentsAndDependencies(t *testing.T) {
	b := NewBuilder(inputs("src/a.js", "src/b.js", "src/c.js"), nil)
	g := b.Build([]signal.Reference{
		ref("src/a.js", "./b"),
		ref("src/c.js", "./b"),
	})

	assert.Equal(t, []string{"src/a.js", "src/c.js"}, g.Dependents("src/b.js"))
	assert.Equal(t, []string{"src/b.js"}, g.Dependencies("src/a.js"))
	assert.Empty(t, g.Dependents("src/a.js"))
}
