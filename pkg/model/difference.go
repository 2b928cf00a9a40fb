package model

import "fmt"

// Severity represents the severity level of a detected difference or
// validation finding.
type Severity int

const (
	// SeverityError indicates a conformance-breaking mismatch.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be addressed.
	SeverityWarning
	// SeverityInfo indicates an informational note.
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Property identifies which node field a Difference refers to.
type Property string

// Fixed property vocabulary for differences.
const (
	PropertyDataType   Property = "dataType"
	PropertyAccess     Property = "access"
	PropertyValue      Property = "value"
	PropertyDescr      Property = "description"
	PropertyIsObject   Property = "isObject"
	PropertyIsCustom   Property = "isCustom"
	PropertyValueRange Property = "valueRange"
	PropertyChildren   Property = "children"
	PropertyEvents     Property = "events"
	PropertyFunctions  Property = "functions"
)

// Difference is one detected mismatch between two nodes sharing a path.
// For events and functions the source values are counts, not the lists
// themselves.
type Difference struct {
	// Path is the node path the difference was found at.
	Path string `json:"path"`

	// Property names the differing field.
	Property Property `json:"property"`

	// Source1Value is the property's value in the first source.
	Source1Value any `json:"source1Value"`

	// Source2Value is the property's value in the second source.
	Source2Value any `json:"source2Value"`

	// Severity is fixed per property and never configurable.
	Severity Severity `json:"severity"`
}

func (d Difference) String() string {
	return fmt.Sprintf("[%s] %s: %s %v != %v", d.Severity, d.Path, d.Property, d.Source1Value, d.Source2Value)
}

// ComparisonSummary holds counts describing a comparison.
// Total counts are raw input lengths: if a caller passes duplicate
// paths the totals still report the raw count even though the engine's
// path maps silently collapse them.
type ComparisonSummary struct {
	// TotalNodesSource1 is the length of the first input collection.
	TotalNodesSource1 int `json:"totalNodesSource1"`

	// TotalNodesSource2 is the length of the second input collection.
	TotalNodesSource2 int `json:"totalNodesSource2"`

	// CommonNodes is the size of the path intersection.
	CommonNodes int `json:"commonNodes"`

	// DifferenceCount is the total number of differences, not the
	// number of distinct differing paths.
	DifferenceCount int `json:"differenceCount"`
}

// ComparisonResult is the complete classification of every parameter
// path across two sources.
type ComparisonResult struct {
	// OnlyInSource1 holds nodes whose path appears only in the first source.
	OnlyInSource1 []Node `json:"onlyInSource1"`

	// OnlyInSource2 holds nodes whose path appears only in the second source.
	OnlyInSource2 []Node `json:"onlyInSource2"`

	// Differences holds every per-property mismatch on common paths.
	Differences []Difference `json:"differences"`

	// Summary holds the comparison counts.
	Summary ComparisonSummary `json:"summary"`
}

// DifferencesAt returns the differences recorded for one path.
func (r *ComparisonResult) DifferencesAt(path string) []Difference {
	var out []Difference
	for _, d := range r.Differences {
		if d.Path == path {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors returns true if any difference has severity error.
func (r *ComparisonResult) HasErrors() bool {
	for _, d := range r.Differences {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
