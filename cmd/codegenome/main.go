package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"codegenome/internal/analysis"
	"codegenome/internal/config"
	"codegenome/internal/gate"
	"codegenome/internal/git"
	"codegenome/internal/graph"
	"codegenome/internal/pipeline"
	"codegenome/internal/profile"
	"codegenome/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "codegenome",
		Short: "Static change-impact and project-profile engine",
	}
	cfgPath  string
	dbPath   string
	rootPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "codegenome.db", "Path to the local analysis database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "Project root (overrides configuration)")

	gateCmd.Flags().BoolVar(&gateBypass, "bypass", false, "Run checks even when the gate is halted (recorded as a distinct outcome)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(profileCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if rootPath != "" {
		cfg.Scan.Root = rootPath
	}
	return cfg
}

func initStore() *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return store
}

func runScan(cfg *config.Config) *pipeline.Result {
	fmt.Printf("📂 Scanning directory: %s\n", cfg.Scan.Root)
	start := time.Now()

	runner := &pipeline.Runner{Cfg: cfg}
	res, err := runner.Scan(cfg.Scan.Root)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("✅ Scanned %d files (%d modules, %d edges) in %v\n",
		res.TotalFiles, len(res.Graph.Modules), len(res.Graph.Edges), time.Since(start).Round(time.Millisecond))
	for _, w := range res.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	return res
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the project, persist the module graph and export graph.json",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		res := runScan(cfg)

		store := initStore()
		defer store.Close()

		ctx := context.Background()
		if err := store.SaveAnalysis(ctx, res.Graph, res.Signals); err != nil {
			log.Fatalf("Failed to persist analysis: %v", err)
		}

		doc := pipeline.BuildExport(res, &cfg.Impact, time.Now())
		data, err := pipeline.MarshalExport(doc)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}

		outPath := filepath.Join(cfg.Scan.Root, ".codegenome", "graph.json")
		if err := writeFile(outPath, data); err != nil {
			log.Fatalf("Failed to write %s: %v", outPath, err)
		}
		fmt.Printf("💾 Graph exported to %s\n", outPath)
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact [files...]",
	Short: "Predict the blast radius of changed files",
	Long: `Predict which modules are affected by a change. With no arguments the
changed files are detected from version control (staged changes first,
then unstaged, then the last commit).`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		seeds := args
		if len(seeds) == 0 {
			cs := git.DetectChanges(cfg.Scan.Root)
			for _, n := range cs.Notes {
				fmt.Printf("⚠️  %s\n", n)
			}
			if cs.Scope == git.ScopeNone || len(cs.Files) == 0 {
				fmt.Println("No changed files detected; nothing to analyze.")
				return
			}
			fmt.Printf("🔎 Using %s changes (%d files)\n", cs.Scope, len(cs.Files))
			seeds = cs.Paths()
		}
		for i, s := range seeds {
			seeds[i] = graph.ModuleID(filepath.ToSlash(s))
		}

		g := loadOrBuildGraph(cfg)
		rep := analysis.BlastRadius(g, seeds, &cfg.Impact)

		printJSON(rep)
		if rep.Escalate {
			fmt.Printf("🚨 Escalation: %d affected modules exceed the threshold of %d\n",
				rep.Size, cfg.Impact.EscalationThreshold)
		}
	},
}

var gateBypass bool

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run quality checks behind the consecutive-failure gate",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		runner := &gate.Runner{
			Store:     gate.NewRecordStore(cfg.Scan.Root),
			Threshold: cfg.Gate.Threshold,
			Timeout:   time.Duration(cfg.Gate.CheckTimeoutSeconds) * time.Second,
		}
		checks := gate.DetectChecks(cfg.Scan.Root)
		if len(checks) == 0 {
			fmt.Println("⚠️  No checks detected; the gate passes vacuously.")
		} else {
			fmt.Printf("🧪 Running %d check(s)...\n", len(checks))
		}

		d, err := runner.Run(context.Background(), checks, gateBypass)
		if err != nil {
			log.Fatalf("Failed to persist gate state: %v", err)
		}

		printJSON(d)
		switch d.Outcome {
		case gate.OutcomeHalted:
			fmt.Printf("🛑 Gate halted: %s\n", d.Reason)
			os.Exit(2)
		case gate.OutcomeFailed:
			fmt.Printf("❌ Gate failed (streak %d/%d)\n", d.Counter, d.Threshold)
			os.Exit(1)
		case gate.OutcomeBypassed:
			fmt.Printf("⚠️  Gate bypassed (streak %d/%d)\n", d.Counter, d.Threshold)
		default:
			fmt.Println("✅ Gate passed")
		}
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Generate the project genome and per-directory module maps",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		res := runScan(cfg)

		store := initStore()
		defer store.Close()
		if err := store.SaveAnalysis(context.Background(), res.Graph, res.Signals); err != nil {
			log.Fatalf("Failed to persist analysis: %v", err)
		}

		in := &profile.Input{
			ProjectName:    projectName(cfg.Scan.Root),
			TotalFiles:     res.TotalFiles,
			TotalLines:     res.TotalLines,
			DirFiles:       res.DirFiles,
			DirSourceFiles: res.DirSourceFiles,
			Graph:          res.Graph,
			Signals:        res.Signals,
			Routes:         res.Routes,
			Models:         res.Models,
			Cycles:         analysis.FindCycles(res.Graph, cfg.Impact.DirectCycleMaxLen),
			Warnings:       res.Warnings,
			GeneratedAt:    time.Now(),
		}
		s := &profile.Summarizer{Budget: cfg.Profile.Budget, MaxModuleMaps: cfg.Profile.MaxModuleMaps}

		outDir := filepath.Join(cfg.Scan.Root, ".codegenome", "context")
		genomePath := filepath.Join(outDir, "genome.md")
		if err := writeFile(genomePath, []byte(s.Summarize(in))); err != nil {
			log.Fatalf("Failed to write %s: %v", genomePath, err)
		}
		fmt.Printf("🧬 Genome written to %s\n", genomePath)

		for dir, content := range s.ModuleMaps(in) {
			mapPath := filepath.Join(outDir, "modules", dir+".md")
			if err := writeFile(mapPath, []byte(content)); err != nil {
				log.Fatalf("Failed to write %s: %v", mapPath, err)
			}
			fmt.Printf("🗺️  Module map written to %s\n", mapPath)
		}
	},
}

// loadOrBuildGraph prefers the persisted graph and falls back to a fresh
// scan when the database is empty.
func loadOrBuildGraph(cfg *config.Config) *graph.Graph {
	store := initStore()
	defer store.Close()

	g, err := store.LoadGraph(context.Background())
	if err == nil {
		return g
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("Failed to load persisted graph: %v", err)
	}

	fmt.Println("ℹ️  No persisted graph found; scanning first.")
	res := runScan(cfg)
	if err := store.SaveAnalysis(context.Background(), res.Graph, res.Signals); err != nil {
		log.Fatalf("Failed to persist analysis: %v", err)
	}
	return res.Graph
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func projectName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return filepath.Base(abs)
}
