// Package subset persists curated node collections ("subsets"): named
// snapshots of an intended specification, stored as YAML documents or
// in a SQLite store.
//
// Unlike the comparison engine, which silently collapses duplicate
// paths last-write-wins, persisting a subset hard-rejects duplicates:
// a saved subset is a specification of record, and a duplicate path in
// it is a conflict the caller must resolve, not a value to overwrite.
package subset

import (
	"fmt"
	"time"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Subset is a curated, persisted collection of nodes.
type Subset struct {
	// ID is the stable snapshot identifier.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// Name is the caller-chosen subset name, unique within a store.
	Name string `yaml:"name" json:"name"`

	// Description is a human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// CreatedAt is when the subset was first saved.
	CreatedAt time.Time `yaml:"createdAt,omitempty" json:"createdAt,omitempty"`

	// Nodes is the node collection.
	Nodes []model.Node `yaml:"nodes" json:"nodes"`
}

// DuplicatePathError reports a duplicate path conflict detected while
// persisting a subset.
type DuplicatePathError struct {
	// Path is the conflicting path.
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("subset: duplicate path %q", e.Path)
}

// CheckDuplicates returns a DuplicatePathError for the first duplicate
// path in the collection, or nil.
func CheckDuplicates(nodes []model.Node) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.Path] {
			return &DuplicatePathError{Path: n.Path}
		}
		seen[n.Path] = true
	}
	return nil
}
