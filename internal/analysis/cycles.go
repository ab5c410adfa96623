package analysis

import (
	"sort"

	"codegenome/internal/graph"
)

// CycleClass separates short cycles, which usually mean two modules that
// should be one, from long ones, which usually mean a layering problem.
type CycleClass string

const (
	CycleDirect   CycleClass = "direct"
	CycleIndirect CycleClass = "indirect"
)

// Cycle is one strongly connected component of the module graph, reported
// once regardless of how many distinct walks traverse it.
type Cycle struct {
	Modules []string   `json:"modules"` // sorted member set
	Length  int        `json:"length"`
	Class   CycleClass `json:"class"`
}

// FindCycles runs Tarjan's algorithm over the graph and returns one Cycle
// per non-trivial strongly connected component, plus self-loops. Output
// order is deterministic: cycles sort by their first member.
func FindCycles(g *graph.Graph, directMaxLen int) []Cycle {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, id := range g.ModuleIDs() {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}

	// Single-node components are trivial: the graph never stores
	// self-edges, so only multi-node components are real cycles.
	var cycles []Cycle
	for _, comp := range t.components {
		if len(comp) == 1 {
			continue
		}
		sort.Strings(comp)
		class := CycleIndirect
		if len(comp) <= directMaxLen {
			class = CycleDirect
		}
		cycles = append(cycles, Cycle{Modules: comp, Length: len(comp), Class: class})
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Modules[0] < cycles[j].Modules[0] })
	return cycles
}

// tarjan holds the per-run state for Tarjan's SCC algorithm. The walk is
// iterative; deep dependency chains must not blow the goroutine stack.
type tarjan struct {
	g          *graph.Graph
	counter    int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	components [][]string
}

type tarjanFrame struct {
	node  string
	deps  []string
	next  int
	child string // dep whose lowlink is pending
}

func (t *tarjan) strongConnect(start string) {
	frames := []tarjanFrame{{node: start, deps: t.g.Dependencies(start)}}
	t.visit(start)

	for len(frames) > 0 {
		f := &frames[len(frames)-1]

		if f.child != "" {
			if t.lowlink[f.child] < t.lowlink[f.node] {
				t.lowlink[f.node] = t.lowlink[f.child]
			}
			f.child = ""
		}

		advanced := false
		for f.next < len(f.deps) {
			dep := f.deps[f.next]
			f.next++
			if _, seen := t.index[dep]; !seen {
				t.visit(dep)
				f.child = dep
				frames = append(frames, tarjanFrame{node: dep, deps: t.g.Dependencies(dep)})
				advanced = true
				break
			}
			if t.onStack[dep] && t.index[dep] < t.lowlink[f.node] {
				t.lowlink[f.node] = t.index[dep]
			}
		}
		if advanced {
			continue
		}

		if t.lowlink[f.node] == t.index[f.node] {
			var comp []string
			for {
				top := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[top] = false
				comp = append(comp, top)
				if top == f.node {
					break
				}
			}
			t.components = append(t.components, comp)
		}
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			frames[len(frames)-1].child = f.node
		}
	}
}

func (t *tarjan) visit(id string) {
	t.index[id] = t.counter
	t.lowlink[id] = t.counter
	t.counter++
	t.stack = append(t.stack, id)
	t.onStack[id] = true
}
