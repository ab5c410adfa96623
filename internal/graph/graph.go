package graph

import (
	"sort"

	"codegenome/internal/signal"
)

// RootModuleID is the synthetic identity that groups all top-level files.
// Many small unrelated root files would otherwise add graph noise; this
// grouping is a design choice, not a byproduct of resolution.
const RootModuleID = "(root)"

// EdgeKind distinguishes ordinary references from re-exports.
type EdgeKind string

const (
	EdgeReference EdgeKind = "reference"
	EdgeReexport  EdgeKind = "reexport"
)

// Resolution records how an edge's target was resolved.
type Resolution string

const (
	ResolvedRelative Resolution = "relative"
	ResolvedAlias    Resolution = "alias"
	ResolvedFallback Resolution = "same-dir"
)

// Module is the canonical identity for one source file (or the synthetic
// root group). Immutable for the duration of a run.
type Module struct {
	Path     string              `json:"path"`
	Name     string              `json:"name"`
	Category signal.FileCategory `json:"category"`
	Lines    int                 `json:"lines"`
	Barrel   bool                `json:"barrel,omitempty"`
}

// Edge is a directed "from depends on to" relation between two modules.
type Edge struct {
	From string     `json:"from"`
	To   string     `json:"to"`
	Kind EdgeKind   `json:"kind"`
	Via  Resolution `json:"via"`
}

type edgeKey struct {
	from, to string
}

// Graph holds the module set and edges for one run. Invariants: no
// self-edges, no duplicate (from,to) pairs, and every edge endpoint
// exists in Modules. Unresolvable references are counted, never stored
// as dangling edges.
type Graph struct {
	Modules    map[string]*Module
	Edges      []Edge
	Unresolved int

	edgeSet map[edgeKey]bool
	forward map[string][]string
	reverse map[string][]string
}

func NewGraph() *Graph {
	return &Graph{
		Modules: make(map[string]*Module),
		edgeSet: make(map[edgeKey]bool),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
}

func (g *Graph) AddModule(m *Module) {
	if m == nil || m.Path == "" {
		return
	}
	if existing, ok := g.Modules[m.Path]; ok {
		// Root grouping folds several files into one node; accumulate size.
		existing.Lines += m.Lines
		return
	}
	g.Modules[m.Path] = m
}

// AddEdge inserts an edge unless it is a self-edge, a duplicate, or has a
// missing endpoint. It reports whether the edge was kept.
func (g *Graph) AddEdge(e Edge) bool {
	if e.From == e.To {
		return false
	}
	if _, ok := g.Modules[e.From]; !ok {
		return false
	}
	if _, ok := g.Modules[e.To]; !ok {
		return false
	}
	key := edgeKey{from: e.From, to: e.To}
	if g.edgeSet[key] {
		return false
	}
	g.edgeSet[key] = true
	g.Edges = append(g.Edges, e)
	g.forward[e.From] = append(g.forward[e.From], e.To)
	g.reverse[e.To] = append(g.reverse[e.To], e.From)
	return true
}

// Dependencies returns the modules id depends on, sorted.
func (g *Graph) Dependencies(id string) []string {
	return sortedCopy(g.forward[id])
}

// Dependents returns the modules that depend on id, sorted.
func (g *Graph) Dependents(id string) []string {
	return sortedCopy(g.reverse[id])
}

// ModuleIDs returns all module identities, sorted.
func (g *Graph) ModuleIDs() []string {
	out := make([]string, 0, len(g.Modules))
	for id := range g.Modules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
