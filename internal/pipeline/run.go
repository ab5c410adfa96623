package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"codegenome/internal/config"
	"codegenome/internal/crawler"
	"codegenome/internal/graph"
	"codegenome/internal/signal"
)

// Result is the full output of one scan: the module graph plus every
// signal the extractor produced along the way.
type Result struct {
	Graph          *graph.Graph
	Signals        *signal.StackSignals
	Routes         []signal.RouteMarker
	Models         []signal.ModelMarker
	TotalFiles     int
	TotalLines     int
	DirFiles       map[string]int // top-level dir -> file count
	DirSourceFiles map[string]int // top-level dir -> recognized source files
	Warnings       []string
}

// Runner wires the crawler, the extractor and the graph builder into one
// scan pass.
type Runner struct {
	Cfg *config.Config
}

// Scan walks root, extracts signals from every matching file and builds
// the module graph. Files are processed in sorted path order so two scans
// of the same tree produce identical results.
func (r *Runner) Scan(root string) (*Result, error) {
	c := crawler.New(&r.Cfg.Scan)

	var descs []crawler.FileDesc
	if err := c.Scan(root, func(fd crawler.FileDesc) {
		descs = append(descs, fd)
	}); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Path < descs[j].Path })

	res := &Result{
		Signals:        signal.NewStackSignals(),
		DirFiles:       make(map[string]int),
		DirSourceFiles: make(map[string]int),
		Warnings:       append([]string(nil), c.Warnings()...),
	}

	ext := signal.NewExtractor()
	var inputs []graph.FileInput
	var refs []signal.Reference

	for _, fd := range descs {
		content, err := os.ReadFile(fd.AbsPath)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unreadable file skipped: %s", fd.Path))
			continue
		}

		fr := ext.ExtractFile(fd.Path, fd.Ext, string(content))

		res.TotalFiles++
		res.TotalLines += fr.Lines
		dir := topDir(fd.Path)
		res.DirFiles[dir]++
		if signal.SourceCategories[signal.CategorizeFile(fd.Path)] {
			res.DirSourceFiles[dir]++
		}

		inputs = append(inputs, graph.FileInput{
			Path:     fd.Path,
			Category: signal.CategorizeFile(fd.Path),
			Lines:    fr.Lines,
			Barrel:   fr.Barrel,
		})
		refs = append(refs, fr.References...)
		for _, m := range fr.Stack {
			res.Signals.AddMatch(m)
		}
		res.Routes = append(res.Routes, fr.Routes...)
		res.Models = append(res.Models, fr.Models...)
	}

	res.Graph = graph.NewBuilder(inputs, r.Cfg.Scan.Aliases).Build(refs)
	return res, nil
}

func topDir(relPath string) string {
	if idx := strings.Index(relPath, "/"); idx >= 0 {
		return relPath[:idx]
	}
	return graph.RootModuleID
}
