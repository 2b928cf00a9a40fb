// Package catalog ships baseline TR-181 subsets embedded in the
// binary. They serve as ready-made comparison references for devices
// that implement the standard objects.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tr181-conform/tr181-go/pkg/subset"
)

//go:embed subsets/*.yaml
var subsetFS embed.FS

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*subset.Subset)
)

// Load returns the embedded baseline subset with the given name
// (e.g. "deviceinfo").
func Load(name string) (*subset.Subset, error) {
	cacheMu.RLock()
	if s, ok := cache[name]; ok {
		cacheMu.RUnlock()
		return s, nil
	}
	cacheMu.RUnlock()

	data, err := subsetFS.ReadFile("subsets/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("baseline subset %q not found: %w", name, err)
	}

	var s subset.Subset
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing baseline subset %q: %w", name, err)
	}
	if err := subset.CheckDuplicates(s.Nodes); err != nil {
		return nil, fmt.Errorf("baseline subset %q: %w", name, err)
	}

	cacheMu.Lock()
	cache[name] = &s
	cacheMu.Unlock()

	return &s, nil
}

// Available returns the names of all embedded baseline subsets.
func Available() ([]string, error) {
	entries, err := subsetFS.ReadDir("subsets")
	if err != nil {
		return nil, fmt.Errorf("reading subsets directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
