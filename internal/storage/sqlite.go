package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"codegenome/internal/graph"
	"codegenome/internal/signal"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the last analysis so impact and profile runs can
// reuse a graph without rescanning the tree.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			path TEXT PRIMARY KEY,
			name TEXT,
			category TEXT,
			lines INTEGER,
			barrel INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			from_path TEXT,
			to_path TEXT,
			kind TEXT,
			via TEXT,
			PRIMARY KEY (from_path, to_path)
		);`,
		`CREATE TABLE IF NOT EXISTS signals (
			category TEXT,
			value TEXT,
			file TEXT,
			PRIMARY KEY (category, value, file)
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis replaces the persisted graph and signals with the given
// run's output. Each save is a full snapshot; partial merges across runs
// would leave stale edges behind.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, g *graph.Graph, sig *signal.StackSignals) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"modules", "edges", "signals"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	modStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO modules (path, name, category, lines, barrel) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer modStmt.Close()

	for _, id := range g.ModuleIDs() {
		m := g.Modules[id]
		if _, err := modStmt.Exec(m.Path, m.Name, string(m.Category), m.Lines, boolInt(m.Barrel)); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (from_path, to_path, kind, via) VALUES (?, ?, ?, ?)
		ON CONFLICT(from_path, to_path) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges {
		if _, err := edgeStmt.Exec(e.From, e.To, string(e.Kind), string(e.Via)); err != nil {
			return err
		}
	}

	if sig != nil {
		sigStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO signals (category, value, file) VALUES (?, ?, ?)
			ON CONFLICT(category, value, file) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer sigStmt.Close()

		for _, cat := range sig.Categories() {
			for _, val := range sig.Values(cat) {
				files := sig.Files(cat, val)
				if len(files) == 0 {
					files = []string{""}
				}
				for _, f := range files {
					if _, err := sigStmt.Exec(cat, val, f); err != nil {
						return err
					}
				}
			}
		}
	}

	meta := map[string]string{
		"unresolved": strconv.Itoa(g.Unresolved),
		"scanned_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`)
	if err != nil {
		return err
	}
	defer metaStmt.Close()
	for k, v := range meta {
		if _, err := metaStmt.Exec(k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadGraph rebuilds the last saved graph. Returns sql.ErrNoRows when no
// analysis has been saved yet.
func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	g := graph.NewGraph()

	rows, err := s.db.QueryContext(ctx, `SELECT path, name, category, lines, barrel FROM modules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var m graph.Module
		var cat string
		var barrel int
		if err := rows.Scan(&m.Path, &m.Name, &cat, &m.Lines, &barrel); err != nil {
			return nil, err
		}
		m.Category = signal.FileCategory(cat)
		m.Barrel = barrel != 0
		g.AddModule(&m)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, sql.ErrNoRows
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT from_path, to_path, kind, via FROM edges`)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e graph.Edge
		var kind, via string
		if err := edgeRows.Scan(&e.From, &e.To, &kind, &via); err != nil {
			return nil, err
		}
		e.Kind = graph.EdgeKind(kind)
		e.Via = graph.Resolution(via)
		g.AddEdge(e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	var unresolved string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'unresolved'`).Scan(&unresolved)
	if err == nil {
		if n, convErr := strconv.Atoi(unresolved); convErr == nil {
			g.Unresolved = n
		}
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	return g, nil
}

// LoadSignals rebuilds the last saved stack signals.
func (s *SQLiteStore) LoadSignals(ctx context.Context) (*signal.StackSignals, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, value, file FROM signals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sig := signal.NewStackSignals()
	for rows.Next() {
		var cat, val, file string
		if err := rows.Scan(&cat, &val, &file); err != nil {
			return nil, err
		}
		sig.Add(cat, val, file)
	}
	return sig, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
