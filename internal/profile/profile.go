package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"codegenome/internal/analysis"
	"codegenome/internal/graph"
	"codegenome/internal/signal"
)

// Slot caps per section. The profile is a fixed-shape briefing, not a
// dump; anything beyond a slot cap is summarized as a count.
const (
	maxDirEntries    = 12
	maxModels        = 20
	maxRouteFiles    = 6
	maxRoutesPerFile = 5
	maxCycles        = 5
	maxDepModules    = 10
	maxKeyFiles      = 10
)

// Input carries everything the summarizer reads. It never re-scans.
type Input struct {
	ProjectName    string
	TotalFiles     int
	TotalLines     int
	DirFiles       map[string]int
	DirSourceFiles map[string]int
	Graph          *graph.Graph
	Signals        *signal.StackSignals
	Routes         []signal.RouteMarker
	Models         []signal.ModelMarker
	Cycles         []analysis.Cycle
	Warnings       []string
	GeneratedAt    time.Time
}

// Summarizer renders the project profile within a character budget.
type Summarizer struct {
	Budget        int // max output size in characters; 0 = unlimited
	MaxModuleMaps int
}

type section struct {
	lines []string
}

func (s *section) size() int {
	n := 0
	for _, l := range s.lines {
		n += len(l) + 1
	}
	return n
}

func (s *section) addf(format string, args ...any) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

func (s *section) blank() { s.lines = append(s.lines, "") }

// Summarize renders the main profile document. Sections are emitted in
// fixed priority order; when the budget runs out, later sections are
// dropped whole and the generation notes say so.
func (s *Summarizer) Summarize(in *Input) string {
	sections := []section{
		s.header(in),
		s.snapshot(in),
		s.techStack(in),
		s.directoryMap(in),
		s.dataModels(in),
		s.apiSurface(in),
		s.moduleDependencies(in),
		s.circularDependencies(in),
	}

	var out []string
	var dropped int
	used := 0
	// Reserve room for the generation notes so they always fit.
	notesReserve := 120
	for _, w := range in.Warnings {
		notesReserve += len(w) + 3
	}
	for i, sec := range sections {
		cost := sec.size()
		if s.Budget > 0 && i > 0 && used+cost+notesReserve > s.Budget {
			dropped++
			continue
		}
		out = append(out, sec.lines...)
		used += cost
	}

	notes := s.generationNotes(in, dropped)
	out = append(out, notes.lines...)
	return strings.Join(out, "\n") + "\n"
}

func (s *Summarizer) header(in *Input) section {
	var sec section
	sec.addf("# Project Genome: %s", in.ProjectName)
	sec.blank()
	sec.addf("Generated: %s", in.GeneratedAt.UTC().Format(time.RFC3339))
	sec.blank()
	return sec
}

func (s *Summarizer) snapshot(in *Input) section {
	var sec section
	sec.addf("## Snapshot")
	sec.blank()
	sec.addf("- Files scanned: %d", in.TotalFiles)
	sec.addf("- Lines of code: %d", in.TotalLines)
	sec.addf("- Modules: %d", len(in.Graph.Modules))
	sec.addf("- Dependency edges: %d", len(in.Graph.Edges))
	if in.Graph.Unresolved > 0 {
		sec.addf("- Unresolved internal references: %d", in.Graph.Unresolved)
	}
	sec.blank()
	return sec
}

func (s *Summarizer) techStack(in *Input) section {
	var sec section
	sec.addf("## Tech Stack")
	sec.blank()
	cats := in.Signals.Categories()
	if len(cats) == 0 {
		sec.addf("No stack signals detected.")
		sec.blank()
		return sec
	}
	for _, cat := range cats {
		sec.addf("- **%s**: %s", cat, strings.Join(in.Signals.Values(cat), ", "))
	}
	sec.blank()
	return sec
}

// directoryMap ranks top-level directories by how much recognized source
// they hold, not by raw file count, so asset dumps sink to the bottom.
func (s *Summarizer) directoryMap(in *Input) section {
	var sec section
	sec.addf("## Directory Map")
	sec.blank()

	dirs := rankedDirs(in)
	shown := dirs
	if len(shown) > maxDirEntries {
		shown = shown[:maxDirEntries]
	}
	for _, d := range shown {
		sec.addf("- `%s/` — %d files, %d source", d, in.DirFiles[d], in.DirSourceFiles[d])
	}
	if len(dirs) > len(shown) {
		sec.addf("(showing %d of %d directories)", len(shown), len(dirs))
	}
	sec.blank()
	return sec
}

func (s *Summarizer) dataModels(in *Input) section {
	var sec section
	sec.addf("## Key Data Models")
	sec.blank()
	if len(in.Models) == 0 {
		sec.addf("No data models detected.")
		sec.blank()
		return sec
	}
	models := append([]signal.ModelMarker(nil), in.Models...)
	sort.Slice(models, func(i, j int) bool {
		if models[i].Name != models[j].Name {
			return models[i].Name < models[j].Name
		}
		return models[i].File < models[j].File
	})
	shown := models
	if len(shown) > maxModels {
		shown = shown[:maxModels]
	}
	for _, m := range shown {
		sec.addf("- **%s** (%s) — `%s`", m.Name, m.Type, m.File)
	}
	if len(models) > len(shown) {
		sec.addf("(showing %d of %d models)", len(shown), len(models))
	}
	sec.blank()
	return sec
}

func (s *Summarizer) apiSurface(in *Input) section {
	var sec section
	sec.addf("## API Surface")
	sec.blank()
	if len(in.Routes) == 0 {
		sec.addf("No route registrations detected.")
		sec.blank()
		return sec
	}

	byFile := make(map[string][]signal.RouteMarker)
	for _, r := range in.Routes {
		byFile[r.File] = append(byFile[r.File], r)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	// Files registering the most routes lead.
	sort.Slice(files, func(i, j int) bool {
		if len(byFile[files[i]]) != len(byFile[files[j]]) {
			return len(byFile[files[i]]) > len(byFile[files[j]])
		}
		return files[i] < files[j]
	})

	shownFiles := files
	if len(shownFiles) > maxRouteFiles {
		shownFiles = shownFiles[:maxRouteFiles]
	}
	for _, f := range shownFiles {
		routes := byFile[f]
		sec.addf("### `%s`", f)
		shown := routes
		if len(shown) > maxRoutesPerFile {
			shown = shown[:maxRoutesPerFile]
		}
		for _, r := range shown {
			sec.addf("- %s %s", r.Method, r.Path)
		}
		if len(routes) > len(shown) {
			sec.addf("(showing %d of %d routes)", len(shown), len(routes))
		}
		sec.blank()
	}
	if len(files) > len(shownFiles) {
		sec.addf("(showing %d of %d route files)", len(shownFiles), len(files))
		sec.blank()
	}
	return sec
}

func (s *Summarizer) moduleDependencies(in *Input) section {
	var sec section
	sec.addf("## Module Dependencies")
	sec.blank()

	type fanIn struct {
		id string
		n  int
	}
	var ranked []fanIn
	for _, id := range in.Graph.ModuleIDs() {
		if n := len(in.Graph.Dependents(id)); n > 0 {
			ranked = append(ranked, fanIn{id: id, n: n})
		}
	}
	if len(ranked) == 0 {
		sec.addf("No internal dependencies detected.")
		sec.blank()
		return sec
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].id < ranked[j].id
	})

	shown := ranked
	if len(shown) > maxDepModules {
		shown = shown[:maxDepModules]
	}
	for _, f := range shown {
		sec.addf("- `%s` ← %d dependent(s)", f.id, f.n)
	}
	if len(ranked) > len(shown) {
		sec.addf("(showing %d of %d modules with dependents)", len(shown), len(ranked))
	}
	sec.blank()
	return sec
}

func (s *Summarizer) circularDependencies(in *Input) section {
	var sec section
	sec.addf("## Circular Dependencies")
	sec.blank()
	if len(in.Cycles) == 0 {
		sec.addf("None detected.")
		sec.blank()
		return sec
	}
	shown := in.Cycles
	if len(shown) > maxCycles {
		shown = shown[:maxCycles]
	}
	for _, c := range shown {
		sec.addf("- [%s] %s", c.Class, strings.Join(c.Modules, " <-> "))
	}
	if len(in.Cycles) > len(shown) {
		sec.addf("(showing %d of %d cycles)", len(shown), len(in.Cycles))
	}
	sec.blank()
	return sec
}

func (s *Summarizer) generationNotes(in *Input, droppedSections int) section {
	var sec section
	sec.addf("## Generation Notes")
	sec.blank()
	if droppedSections > 0 {
		sec.addf("- %d section(s) omitted to stay within the output budget", droppedSections)
	}
	for _, w := range in.Warnings {
		sec.addf("- %s", w)
	}
	if droppedSections == 0 && len(in.Warnings) == 0 {
		sec.addf("- Clean run: no warnings.")
	}
	return sec
}

// ModuleMaps renders one focused markdown document per significant
// top-level directory (at least three recognized source files), capped at
// MaxModuleMaps. The map key is the directory name.
func (s *Summarizer) ModuleMaps(in *Input) map[string]string {
	dirs := rankedDirs(in)
	maps := make(map[string]string)
	for _, d := range dirs {
		if len(maps) >= s.MaxModuleMaps {
			break
		}
		if d == graph.RootModuleID || in.DirSourceFiles[d] < 3 {
			continue
		}
		maps[d] = s.moduleMap(in, d)
	}
	return maps
}

func (s *Summarizer) moduleMap(in *Input, dir string) string {
	prefix := dir + "/"

	var members []string
	importsFrom := make(map[string]bool)
	importedBy := make(map[string]bool)
	for _, id := range in.Graph.ModuleIDs() {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		members = append(members, id)
		for _, dep := range in.Graph.Dependencies(id) {
			if !strings.HasPrefix(dep, prefix) {
				importsFrom[topOf(dep)] = true
			}
		}
		for _, dep := range in.Graph.Dependents(id) {
			if !strings.HasPrefix(dep, prefix) {
				importedBy[topOf(dep)] = true
			}
		}
	}

	var sec section
	sec.addf("# Module Map: %s/", dir)
	sec.blank()

	sec.addf("## Imports From")
	sec.blank()
	writeSet(&sec, importsFrom)
	sec.blank()

	sec.addf("## Imported By")
	sec.blank()
	writeSet(&sec, importedBy)
	sec.blank()

	sec.addf("## Key Files")
	sec.blank()
	keys := keyFiles(in.Graph, members)
	if len(keys) == 0 {
		sec.addf("- (none)")
	}
	for _, k := range keys {
		m := in.Graph.Modules[k]
		sec.addf("- `%s` (%d lines, %d dependent(s))", k, m.Lines, len(in.Graph.Dependents(k)))
	}
	return strings.Join(sec.lines, "\n") + "\n"
}

// keyFiles ranks a directory's modules by fan-in then size. Barrel and
// style files never occupy key-file slots; they carry no behavior worth
// pointing a reader at.
func keyFiles(g *graph.Graph, members []string) []string {
	var ranked []string
	for _, id := range members {
		m := g.Modules[id]
		if m.Barrel || m.Category == signal.CategoryStyle {
			continue
		}
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		di, dj := len(g.Dependents(ranked[i])), len(g.Dependents(ranked[j]))
		if di != dj {
			return di > dj
		}
		if g.Modules[ranked[i]].Lines != g.Modules[ranked[j]].Lines {
			return g.Modules[ranked[i]].Lines > g.Modules[ranked[j]].Lines
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > maxKeyFiles {
		ranked = ranked[:maxKeyFiles]
	}
	return ranked
}

func writeSet(sec *section, set map[string]bool) {
	if len(set) == 0 {
		sec.addf("- (none)")
		return
	}
	items := make([]string, 0, len(set))
	for s := range set {
		items = append(items, s)
	}
	sort.Strings(items)
	for _, it := range items {
		sec.addf("- `%s`", it)
	}
}

func topOf(id string) string {
	if idx := strings.Index(id, "/"); idx >= 0 {
		return id[:idx] + "/"
	}
	return id
}

// rankedDirs orders top-level directories by source density, then
// alphabetically for stable output.
func rankedDirs(in *Input) []string {
	dirs := make([]string, 0, len(in.DirFiles))
	for d := range in.DirFiles {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		ri := ratio(in.DirSourceFiles[dirs[i]], in.DirFiles[dirs[i]])
		rj := ratio(in.DirSourceFiles[dirs[j]], in.DirFiles[dirs[j]])
		if ri != rj {
			return ri > rj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}

func ratio(source, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(source) / float64(total)
}
