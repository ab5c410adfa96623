package analysis

import (
	"testing"

	"codegenome/internal/config"
	"codegenome/internal/graph"
	"codegenome/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGraph wires a graph from an adjacency list of "from depends on to"
// pairs. Module identities are used as given.
func buildGraph(t *testing.T, edges map[string][]string, extra ...string) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			g.AddModule(&graph.Module{Path: id, Name: stemOf(id), Category: signal.CategorizeFile(id), Lines: 1})
		}
	}
	for from, tos := range edges {
		add(from)
		for _, to := range tos {
			add(to)
		}
	}
	for _, id := range extra {
		add(id)
	}
	for from, tos := range edges {
		for _, to := range tos {
			require.True(t, g.AddEdge(graph.Edge{From: from, To: to, Kind: graph.EdgeReference, Via: graph.ResolvedRelative}))
		}
	}
	return g
}

func stemOf(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			id = id[i+1:]
			break
		}
	}
	for i := len(id) - 1; i > 0; i-- {
		if id[i] == '.' {
			return id[:i]
		}
	}
	return id
}

func impactCfg() *config.ImpactConfig {
	return &config.ImpactConfig{
		MaxDepth:            config.DefaultImpactMaxDepth,
		EscalationThreshold: config.DefaultEscalationThreshold,
		DirectCycleMaxLen:   config.DefaultDirectCycleMaxLen,
	}
}

func TestBlastRadiusDirectAndIndirect(t *testing.T) {
	// c -> b -> a: changing a reaches b directly and c indirectly.
	g := buildGraph(t, map[string][]string{
		"src/b.js": {"src/a.js"},
		"src/c.js": {"src/b.js"},
	})

	rep := BlastRadius(g, []string{"src/a.js"}, impactCfg())

	assert.Equal(t, []string{"src/a.js", "src/b.js", "src/c.js"}, rep.Affected)
	assert.Equal(t, 2, rep.Size, "seeds are excluded from the size")
	assert.Equal(t, []string{"src/b.js"}, rep.DirectDependents)
	assert.Equal(t, []string{"src/c.js"}, rep.IndirectDependents)
}

func TestBlastRadiusIsUnionOfSeeds(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"src/x.js": {"src/a.js"},
		"src/y.js": {"src/b.js"},
	})

	a := BlastRadius(g, []string{"src/a.js"}, impactCfg())
	b := BlastRadius(g, []string{"src/b.js"}, impactCfg())
	both := BlastRadius(g, []string{"src/a.js", "src/b.js"}, impactCfg())

	union := map[string]bool{}
	for _, id := range append(a.Affected, b.Affected...) {
		union[id] = true
	}
	assert.Len(t, both.Affected, len(union))
	for _, id := range both.Affected {
		assert.True(t, union[id])
	}
}

func TestBlastRadiusRespectsMaxDepth(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"src/b.js": {"src/a.js"},
		"src/c.js": {"src/b.js"},
		"src/d.js": {"src/c.js"},
	})

	cfg := impactCfg()
	cfg.MaxDepth = 1
	rep := BlastRadius(g, []string{"src/a.js"}, impactCfg())
	bounded := BlastRadius(g, []string{"src/a.js"}, cfg)

	assert.Len(t, rep.Affected, 4)
	assert.Equal(t, []string{"src/a.js", "src/b.js"}, bounded.Affected)
}

func TestBlastRadiusThroughCycle(t *testing.T) {
	// a -> b -> c -> a. Reverse edges also form the cycle, so one seed
	// reaches everything.
	g := buildGraph(t, map[string][]string{
		"src/a.js": {"src/b.js"},
		"src/b.js": {"src/c.js"},
		"src/c.js": {"src/a.js"},
	})

	rep := BlastRadius(g, []string{"src/a.js"}, impactCfg())
	assert.Equal(t, []string{"src/a.js", "src/b.js", "src/c.js"}, rep.Affected)
	assert.Equal(t, 2, rep.Size)
	require.Len(t, rep.Cycles, 1)
	assert.Equal(t, CycleDirect, rep.Cycles[0].Class)
}

func TestBlastRadiusUnknownSeedWarns(t *testing.T) {
	g := buildGraph(t, nil, "src/a.js")
	rep := BlastRadius(g, []string{"src/ghost.js"}, impactCfg())

	assert.Empty(t, rep.Affected)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "src/ghost.js")
}

func TestClassifyLevel(t *testing.T) {
	t.Run("direct dependent counts", func(t *testing.T) {
		cases := []struct {
			direct int
			want   Level
		}{
			{0, LevelLow},
			{1, LevelLow},
			{2, LevelMedium},
			{4, LevelMedium},
			{5, LevelHigh},
			{10, LevelHigh},
			{11, LevelCritical},
		}
		for _, c := range cases {
			edges := map[string][]string{}
			for i := 0; i < c.direct; i++ {
				edges[depName(i)] = []string{"src/target.js"}
			}
			g := buildGraph(t, edges, "src/target.js")
			rep := BlastRadius(g, []string{"src/target.js"}, impactCfg())
			assert.Equal(t, c.want, rep.Level, "direct=%d", c.direct)
		}
	})

	t.Run("entry point seed is critical", func(t *testing.T) {
		g := buildGraph(t, nil, "src/index.js")
		rep := BlastRadius(g, []string{"src/index.js"}, impactCfg())
		assert.Equal(t, LevelCritical, rep.Level)
	})

	t.Run("config seed is critical", func(t *testing.T) {
		g := buildGraph(t, nil, "conf/settings.json")
		rep := BlastRadius(g, []string{"conf/settings.json"}, impactCfg())
		assert.Equal(t, LevelCritical, rep.Level)
	})
}

func depName(i int) string {
	return "src/dep" + string(rune('a'+i)) + ".js"
}

func TestEscalation(t *testing.T) {
	edges := map[string][]string{}
	for i := 0; i < 5; i++ {
		edges[depName(i)] = []string{"src/core.js"}
	}
	g := buildGraph(t, edges, "src/core.js")

	cfg := impactCfg()
	cfg.EscalationThreshold = 3
	rep := BlastRadius(g, []string{"src/core.js"}, cfg)
	assert.True(t, rep.Escalate)

	cfg.EscalationThreshold = 5
	rep = BlastRadius(g, []string{"src/core.js"}, cfg)
	assert.False(t, rep.Escalate, "size equal to the threshold does not escalate")
}

func TestAffectedTestSelection(t *testing.T) {
	g := buildGraph(t, map[string][]string{
		"src/user.test.js":     {"src/user.js"},
		"tests/test_api.py":    {"src/user.js"},
		"src/profile.js":       {"src/user.js"},
		"src/other.spec.ts":    {"src/profile.js"},
		"src/unrelated.test.js": {},
	}, "src/unrelated2.test.js")

	rep := BlastRadius(g, []string{"src/user.js"}, impactCfg())
	assert.Equal(t, []string{"src/other.spec.ts", "src/user.test.js", "tests/test_api.py"}, rep.AffectedTests)
}

func TestRecommendationsCapped(t *testing.T) {
	edges := map[string][]string{}
	for i := 0; i < 12; i++ {
		edges[depName(i)] = []string{"src/hub.js"}
	}
	// Add a cycle and a test file for extra recommendation triggers.
	edges["src/hub.js"] = []string{depName(0)}
	edges["src/hub.test.js"] = []string{"src/hub.js"}
	g := buildGraph(t, edges)

	cfg := impactCfg()
	cfg.EscalationThreshold = 2
	rep := BlastRadius(g, []string{"src/hub.js"}, cfg)

	assert.NotEmpty(t, rep.Recommendations)
	assert.LessOrEqual(t, len(rep.Recommendations), 6)
}
