package analysis

import (
	"fmt"
	"sort"
	"strings"

	"codegenome/internal/config"
	"codegenome/internal/graph"
	"codegenome/internal/signal"
)

// Level grades the blast radius of a change set.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

const maxRecommendations = 6

// Report is the outcome of one impact analysis.
type Report struct {
	Seeds              []string `json:"seeds"`
	Affected           []string `json:"affected"` // sorted, includes seeds
	Size               int      `json:"size"`     // affected modules excluding seeds
	Level              Level    `json:"level"`
	Escalate           bool     `json:"escalate"`
	DirectDependents   []string `json:"direct_dependents"`
	IndirectDependents []string `json:"indirect_dependents"`
	Cycles             []Cycle  `json:"cycles,omitempty"` // cycles touching affected modules
	AffectedTests      []string `json:"affected_tests,omitempty"`
	Recommendations    []string `json:"recommendations"`
	Warnings           []string `json:"warnings,omitempty"`
}

// BlastRadius walks reverse dependency edges from each seed and reports
// every module that could observe the change. Each seed gets its own
// traversal with its own visited set, so the result for a set of seeds is
// exactly the union of the single-seed results. Depth 1 dependents are
// direct, deeper ones indirect. maxDepth 0 means unbounded.
func BlastRadius(g *graph.Graph, seeds []string, cfg *config.ImpactConfig) *Report {
	rep := &Report{Seeds: uniqueSorted(seeds)}

	seedSet := make(map[string]bool, len(rep.Seeds))
	var missing []string
	for _, s := range rep.Seeds {
		if _, ok := g.Modules[s]; !ok {
			missing = append(missing, s)
			continue
		}
		seedSet[s] = true
	}
	for _, m := range missing {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("changed module not in graph: %s", m))
	}

	affected := make(map[string]bool)
	direct := make(map[string]bool)
	indirect := make(map[string]bool)

	for s := range seedSet {
		visited := map[string]bool{s: true}
		affected[s] = true
		frontier := []string{s}
		depth := 0
		for len(frontier) > 0 {
			depth++
			if cfg.MaxDepth > 0 && depth > cfg.MaxDepth {
				break
			}
			var next []string
			for _, id := range frontier {
				for _, dep := range g.Dependents(id) {
					if visited[dep] {
						continue
					}
					visited[dep] = true
					affected[dep] = true
					if depth == 1 {
						direct[dep] = true
					} else {
						indirect[dep] = true
					}
					next = append(next, dep)
				}
			}
			frontier = next
		}
	}

	// A module directly downstream of one seed may be indirectly
	// downstream of another; the direct classification wins.
	for id := range direct {
		delete(indirect, id)
	}

	rep.Affected = setToSorted(affected)
	rep.DirectDependents = setToSorted(direct)
	rep.IndirectDependents = setToSorted(indirect)
	for _, id := range rep.Affected {
		if !seedSet[id] {
			rep.Size++
		}
	}

	rep.Cycles = cyclesTouching(g, cfg, affected)
	rep.AffectedTests = selectTests(rep.Affected)
	rep.Level = classifyLevel(g, seedSet, len(rep.DirectDependents))
	rep.Escalate = rep.Size > cfg.EscalationThreshold
	rep.Recommendations = recommend(rep)
	return rep
}

func cyclesTouching(g *graph.Graph, cfg *config.ImpactConfig, affected map[string]bool) []Cycle {
	var out []Cycle
	for _, c := range FindCycles(g, cfg.DirectCycleMaxLen) {
		for _, m := range c.Modules {
			if affected[m] {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// classifyLevel grades a change by how exposed its seeds are. Entry
// points and config modules are critical regardless of fan-in since they
// gate process startup.
func classifyLevel(g *graph.Graph, seeds map[string]bool, directCount int) Level {
	for s := range seeds {
		if m, ok := g.Modules[s]; ok && isEntryOrConfig(m) {
			return LevelCritical
		}
	}
	switch {
	case directCount > 10:
		return LevelCritical
	case directCount >= 5:
		return LevelHigh
	case directCount >= 2:
		return LevelMedium
	default:
		return LevelLow
	}
}

var entryStems = map[string]bool{
	"index": true, "main": true, "app": true, "server": true,
}

func isEntryOrConfig(m *graph.Module) bool {
	if m.Category == signal.CategoryConfig {
		return true
	}
	return entryStems[strings.ToLower(m.Name)]
}

func selectTests(affected []string) []string {
	var tests []string
	for _, id := range affected {
		if isTestModule(id) {
			tests = append(tests, id)
		}
	}
	return tests
}

func isTestModule(p string) bool {
	lower := strings.ToLower(p)
	base := lower
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, "/__tests__/") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(base, "_test.")
}

func recommend(rep *Report) []string {
	var recs []string
	switch rep.Level {
	case LevelCritical:
		recs = append(recs, "critical blast radius: review every direct dependent before merging")
	case LevelHigh:
		recs = append(recs, "high blast radius: stage this change behind a focused review")
	case LevelLow:
		recs = append(recs, "low blast radius: standard review is sufficient")
	}
	if rep.Escalate {
		recs = append(recs, fmt.Sprintf("affected set (%d modules) exceeds the escalation threshold; split the change if possible", rep.Size))
	}
	if n := len(rep.DirectDependents); n > 0 {
		recs = append(recs, fmt.Sprintf("verify the %d direct dependent(s) against the new behavior", n))
	}
	if len(rep.Cycles) > 0 {
		recs = append(recs, fmt.Sprintf("%d dependency cycle(s) touch the affected set; changes may feed back into the seeds", len(rep.Cycles)))
	}
	if n := len(rep.AffectedTests); n > 0 {
		recs = append(recs, fmt.Sprintf("run the %d affected test module(s) before anything else", n))
	} else {
		recs = append(recs, "no test modules found in the affected set; add coverage near the seeds")
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func uniqueSorted(in []string) []string {
	set := make(map[string]bool, len(in))
	for _, s := range in {
		if s != "" {
			set[s] = true
		}
	}
	return setToSorted(set)
}

func setToSorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
