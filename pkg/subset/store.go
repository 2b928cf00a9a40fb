package subset

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// ErrNotFound is returned when a named subset does not exist.
var ErrNotFound = errors.New("subset not found")

// Store provides SQLite persistence for subsets.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and migrates) a subset store at the given database
// path. Use ":memory:" for an in-memory store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("subset: open database: %w", err)
	}

	// Foreign keys for cascade deletes, WAL for concurrent readers.
	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("subset: configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("subset: migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subsets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subset_nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subset_id TEXT NOT NULL REFERENCES subsets(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		node_json TEXT NOT NULL,
		UNIQUE(subset_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_subset_nodes_subset_id ON subset_nodes(subset_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a subset under its name. Duplicate paths in the
// collection are a hard conflict: nothing is written and a
// DuplicatePathError is returned. An existing subset with the same
// name is replaced atomically.
func (s *Store) Save(sub *Subset) error {
	if err := CheckDuplicates(sub.Nodes); err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("subset: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM subsets WHERE name = ?`, sub.Name); err != nil {
		return fmt.Errorf("subset: replace %q: %w", sub.Name, err)
	}
	_, err = tx.Exec(`
		INSERT INTO subsets (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Description, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("subset: insert %q: %w", sub.Name, err)
	}

	for i, node := range sub.Nodes {
		nodeJSON, err := json.Marshal(node)
		if err != nil {
			return fmt.Errorf("subset: encode node %s: %w", node.Path, err)
		}
		_, err = tx.Exec(`
			INSERT INTO subset_nodes (subset_id, position, path, node_json)
			VALUES (?, ?, ?, ?)
		`, sub.ID, i, node.Path, string(nodeJSON))
		if err != nil {
			return fmt.Errorf("subset: insert node %s: %w", node.Path, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a subset by name, nodes in saved order.
func (s *Store) Get(name string) (*Subset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sub Subset
	err := s.db.QueryRow(`
		SELECT id, name, description, created_at FROM subsets WHERE name = ?
	`, name).Scan(&sub.ID, &sub.Name, &sub.Description, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("subset: query %q: %w", name, err)
	}

	rows, err := s.db.Query(`
		SELECT node_json FROM subset_nodes WHERE subset_id = ? ORDER BY position
	`, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("subset: query nodes of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeJSON string
		if err := rows.Scan(&nodeJSON); err != nil {
			return nil, fmt.Errorf("subset: scan node: %w", err)
		}
		var node model.Node
		if err := json.Unmarshal([]byte(nodeJSON), &node); err != nil {
			return nil, fmt.Errorf("subset: decode node: %w", err)
		}
		sub.Nodes = append(sub.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subset: iterate nodes of %q: %w", name, err)
	}
	return &sub, nil
}

// List returns the stored subsets without their nodes, newest first.
func (s *Store) List() ([]Subset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, description, created_at
		FROM subsets ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("subset: list: %w", err)
	}
	defer rows.Close()

	var subsets []Subset
	for rows.Next() {
		var sub Subset
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("subset: scan: %w", err)
		}
		subsets = append(subsets, sub)
	}
	return subsets, rows.Err()
}

// Delete removes a subset by name. Deleting a missing subset returns
// ErrNotFound.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM subsets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("subset: delete %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("subset: delete %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
