package subset

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Encode writes the subset as a YAML document. Duplicate paths are a
// hard conflict and abort the write.
func Encode(w io.Writer, s *Subset) error {
	if err := CheckDuplicates(s.Nodes); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("subset: YAML encode: %w", err)
	}
	return enc.Close()
}

// Decode reads a subset from a YAML document. Duplicate paths in the
// document are rejected: a stored subset must be conflict-free.
func Decode(r io.Reader) (*Subset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("subset: read: %w", err)
	}

	var s Subset
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("subset: YAML parse: %w", err)
	}
	if err := CheckDuplicates(s.Nodes); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteFile saves the subset to a YAML file.
func WriteFile(path string, s *Subset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("subset: create %s: %w", path, err)
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a subset from a YAML file.
func ReadFile(path string) (*Subset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("subset: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
