package analysis

import (
	"testing"

	"codegenome/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCycles(t *testing.T) {
	t.Run("acyclic graph has none", func(t *testing.T) {
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js"},
			"src/b.js": {"src/c.js"},
		})
		assert.Empty(t, FindCycles(g, config.DefaultDirectCycleMaxLen))
	})

	t.Run("three cycle is direct", func(t *testing.T) {
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js"},
			"src/b.js": {"src/c.js"},
			"src/c.js": {"src/a.js"},
		})
		cycles := FindCycles(g, config.DefaultDirectCycleMaxLen)
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"src/a.js", "src/b.js", "src/c.js"}, cycles[0].Modules)
		assert.Equal(t, 3, cycles[0].Length)
		assert.Equal(t, CycleDirect, cycles[0].Class)
	})

	t.Run("four cycle is indirect", func(t *testing.T) {
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js"},
			"src/b.js": {"src/c.js"},
			"src/c.js": {"src/d.js"},
			"src/d.js": {"src/a.js"},
		})
		cycles := FindCycles(g, config.DefaultDirectCycleMaxLen)
		require.Len(t, cycles, 1)
		assert.Equal(t, CycleIndirect, cycles[0].Class)
	})

	t.Run("one cycle per component", func(t *testing.T) {
		// Two distinct walks through the same strongly connected set must
		// not produce two reports.
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js", "src/c.js"},
			"src/b.js": {"src/a.js"},
			"src/c.js": {"src/a.js"},
		})
		cycles := FindCycles(g, config.DefaultDirectCycleMaxLen)
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"src/a.js", "src/b.js", "src/c.js"}, cycles[0].Modules)
	})

	t.Run("separate components report separately", func(t *testing.T) {
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js"},
			"src/b.js": {"src/a.js"},
			"lib/x.js": {"lib/y.js"},
			"lib/y.js": {"lib/x.js"},
		})
		cycles := FindCycles(g, config.DefaultDirectCycleMaxLen)
		require.Len(t, cycles, 2)
		assert.Equal(t, []string{"lib/x.js", "lib/y.js"}, cycles[0].Modules)
		assert.Equal(t, []string{"src/a.js", "src/b.js"}, cycles[1].Modules)
	})

	t.Run("deterministic output", func(t *testing.T) {
		g := buildGraph(t, map[string][]string{
			"src/a.js": {"src/b.js"},
			"src/b.js": {"src/a.js"},
			"lib/x.js": {"lib/y.js"},
			"lib/y.js": {"lib/x.js"},
		})
		first := FindCycles(g, config.DefaultDirectCycleMaxLen)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, FindCycles(g, config.DefaultDirectCycleMaxLen))
		}
	})
}
