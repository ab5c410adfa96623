package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"codegenome/internal/analysis"
	"codegenome/internal/config"
	"codegenome/internal/graph"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ExportModule is one module entry in the exported document.
type ExportModule struct {
	Path         string   `json:"path"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Lines        int      `json:"lines"`
	Barrel       bool     `json:"barrel,omitempty"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// ExportSignal is one (category, value) signal with its witness files.
type ExportSignal struct {
	Category string   `json:"category"`
	Value    string   `json:"value"`
	Files    []string `json:"files"`
}

// ExportDoc is the machine-readable analysis document written next to the
// human profile. It is schema-validated before it leaves the process.
type ExportDoc struct {
	GeneratedAt string `json:"generated_at"`
	Stats       struct {
		Modules    int `json:"modules"`
		Edges      int `json:"edges"`
		Files      int `json:"files"`
		Lines      int `json:"lines"`
		Unresolved int `json:"unresolved"`
	} `json:"stats"`
	Modules  []ExportModule   `json:"modules"`
	Edges    []graph.Edge     `json:"edges"`
	Signals  []ExportSignal   `json:"signals"`
	Cycles   []analysis.Cycle `json:"cycles"`
	Warnings []string         `json:"warnings,omitempty"`
}

const exportSchemaURL = "https://codegenome.dev/schemas/graph.json"

const exportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["generated_at", "stats", "modules", "edges", "signals", "cycles"],
  "properties": {
    "generated_at": {"type": "string"},
    "stats": {
      "type": "object",
      "required": ["modules", "edges", "files", "lines", "unresolved"],
      "properties": {
        "modules": {"type": "integer", "minimum": 0},
        "edges": {"type": "integer", "minimum": 0},
        "files": {"type": "integer", "minimum": 0},
        "lines": {"type": "integer", "minimum": 0},
        "unresolved": {"type": "integer", "minimum": 0}
      }
    },
    "modules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "name", "category", "lines", "dependencies", "dependents"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "category": {"type": "string"},
          "lines": {"type": "integer", "minimum": 0},
          "barrel": {"type": "boolean"},
          "dependencies": {"type": "array", "items": {"type": "string"}},
          "dependents": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to", "kind", "via"],
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1},
          "kind": {"enum": ["reference", "reexport"]},
          "via": {"enum": ["relative", "alias", "same-dir"]}
        }
      }
    },
    "signals": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "value", "files"],
        "properties": {
          "category": {"type": "string"},
          "value": {"type": "string"},
          "files": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "cycles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["modules", "length", "class"],
        "properties": {
          "modules": {"type": "array", "items": {"type": "string"}, "minItems": 1},
          "length": {"type": "integer", "minimum": 1},
          "class": {"enum": ["direct", "indirect"]}
        }
      }
    },
    "warnings": {"type": "array", "items": {"type": "string"}}
  }
}`

var compiledExportSchema = jsonschema.MustCompileString(exportSchemaURL, exportSchema)

// BuildExport assembles the export document from a scan result.
func BuildExport(res *Result, cfg *config.ImpactConfig, now time.Time) *ExportDoc {
	doc := &ExportDoc{GeneratedAt: now.UTC().Format(time.RFC3339)}
	doc.Stats.Modules = len(res.Graph.Modules)
	doc.Stats.Edges = len(res.Graph.Edges)
	doc.Stats.Files = res.TotalFiles
	doc.Stats.Lines = res.TotalLines
	doc.Stats.Unresolved = res.Graph.Unresolved

	for _, id := range res.Graph.ModuleIDs() {
		m := res.Graph.Modules[id]
		doc.Modules = append(doc.Modules, ExportModule{
			Path:         m.Path,
			Name:         m.Name,
			Category:     string(m.Category),
			Lines:        m.Lines,
			Barrel:       m.Barrel,
			Dependencies: res.Graph.Dependencies(id),
			Dependents:   res.Graph.Dependents(id),
		})
	}

	doc.Edges = append(doc.Edges, res.Graph.Edges...)

	for _, cat := range res.Signals.Categories() {
		for _, val := range res.Signals.Values(cat) {
			doc.Signals = append(doc.Signals, ExportSignal{
				Category: cat,
				Value:    val,
				Files:    res.Signals.Files(cat, val),
			})
		}
	}

	doc.Cycles = analysis.FindCycles(res.Graph, cfg.DirectCycleMaxLen)
	if doc.Cycles == nil {
		doc.Cycles = []analysis.Cycle{}
	}
	if doc.Signals == nil {
		doc.Signals = []ExportSignal{}
	}
	if doc.Modules == nil {
		doc.Modules = []ExportModule{}
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}
	doc.Warnings = res.Warnings
	return doc
}

// MarshalExport validates the document against its schema and returns the
// indented JSON. Shipping an invalid document would break every consumer
// that trusts the schema, so validation failure is an error, not a log line.
func MarshalExport(doc *ExportDoc) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if err := compiledExportSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("export document failed schema validation: %w", err)
	}
	return data, nil
}
