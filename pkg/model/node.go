package model

import "strings"

// PathRoot is the mandatory first segment of every parameter path.
const PathRoot = "Device."

// DataType is the declared TR-181 type of a parameter value.
type DataType string

// TR-181 data type vocabulary.
const (
	DataTypeString       DataType = "string"
	DataTypeInt          DataType = "int"
	DataTypeUnsignedInt  DataType = "unsignedInt"
	DataTypeLong         DataType = "long"
	DataTypeUnsignedLong DataType = "unsignedLong"
	DataTypeFloat        DataType = "float"
	DataTypeDouble       DataType = "double"
	DataTypeBoolean      DataType = "boolean"
	DataTypeDateTime     DataType = "dateTime"
	DataTypeBase64       DataType = "base64"
	DataTypeHexBinary    DataType = "hexBinary"
	DataTypeObject       DataType = "object"
)

// KnownDataTypes lists every data type in the fixed vocabulary.
// Unknown tokens are tolerated by the validator (flagged as warnings),
// so membership here is advisory, not enforced at construction.
var KnownDataTypes = []DataType{
	DataTypeString, DataTypeInt, DataTypeUnsignedInt, DataTypeLong,
	DataTypeUnsignedLong, DataTypeFloat, DataTypeDouble, DataTypeBoolean,
	DataTypeDateTime, DataTypeBase64, DataTypeHexBinary, DataTypeObject,
}

// Known returns true if the data type is part of the fixed vocabulary.
// Comparison is case-insensitive, matching how device implementations
// report types (e.g. "unsignedint" vs "unsignedInt").
func (d DataType) Known() bool {
	for _, k := range KnownDataTypes {
		if strings.EqualFold(string(d), string(k)) {
			return true
		}
	}
	return false
}

// Normalized returns the canonical spelling for known types and the
// original token unchanged for unknown ones.
func (d DataType) Normalized() DataType {
	for _, k := range KnownDataTypes {
		if strings.EqualFold(string(d), string(k)) {
			return k
		}
	}
	return d
}

// Access is the declared access level of a parameter.
type Access string

// Access levels.
const (
	AccessReadOnly  Access = "read-only"
	AccessReadWrite Access = "read-write"
	AccessWriteOnly Access = "write-only"
)

// CanRead returns true if the parameter value can be read.
func (a Access) CanRead() bool { return a == AccessReadOnly || a == AccessReadWrite }

// CanWrite returns true if the parameter value can be written.
func (a Access) CanWrite() bool { return a == AccessReadWrite || a == AccessWriteOnly }

// ValueRange is an optional constraint descriptor attached to a node.
// If AllowedValues is set it takes precedence over every other check.
// A range specification can itself be invalid (Min > Max, malformed
// Pattern, non-positive MaxLength); that is checked independently of
// any value.
type ValueRange struct {
	// Min is the minimum allowed numeric value.
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`

	// Max is the maximum allowed numeric value.
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// AllowedValues is a closed enumeration of permitted values.
	AllowedValues []string `yaml:"allowedValues,omitempty" json:"allowedValues,omitempty"`

	// MaxLength is the string length ceiling. Must be positive when set.
	MaxLength *int `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`

	// Pattern is a regular expression the string value must match.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Equal reports whether two range descriptors are identical.
// A nil receiver or argument is distinct from any non-nil one.
func (r *ValueRange) Equal(other *ValueRange) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !floatPtrEqual(r.Min, other.Min) || !floatPtrEqual(r.Max, other.Max) {
		return false
	}
	if !intPtrEqual(r.MaxLength, other.MaxLength) {
		return false
	}
	if r.Pattern != other.Pattern {
		return false
	}
	if len(r.AllowedValues) != len(other.AllowedValues) {
		return false
	}
	for i, v := range r.AllowedValues {
		if other.AllowedValues[i] != v {
			return false
		}
	}
	return true
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Event is a declared notification contract on a node.
type Event struct {
	// Name is the event name.
	Name string `yaml:"name" json:"name"`

	// Path is the event's own parameter path used for subscription.
	Path string `yaml:"path" json:"path"`

	// Parameters lists parameter paths expected to exist on the device.
	Parameters []string `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Description is a human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Function is a declared callable contract on a node.
type Function struct {
	// Name is the function name.
	Name string `yaml:"name" json:"name"`

	// Path is the function's invocation path.
	Path string `yaml:"path" json:"path"`

	// InputParameters lists parameter paths consumed by the function.
	InputParameters []string `yaml:"inputParameters,omitempty" json:"inputParameters,omitempty"`

	// OutputParameters lists parameter paths produced by the function.
	OutputParameters []string `yaml:"outputParameters,omitempty" json:"outputParameters,omitempty"`

	// Description is a human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Node identifies one parameter or object in the hierarchical device
// data model. Path is the unique identity of a node within one
// collection; two nodes with equal paths and differing other fields are
// the same node with different properties for comparison purposes.
type Node struct {
	// Path is the dotted hierarchical identifier, rooted at "Device.".
	Path string `yaml:"path" json:"path"`

	// Name is the leaf segment of the path.
	Name string `yaml:"name" json:"name"`

	// Type is the declared data type.
	Type DataType `yaml:"dataType" json:"dataType"`

	// Access is the declared access level.
	Access Access `yaml:"access" json:"access"`

	// Value is the current or default value, if any. Its dynamic type
	// is expected to match Type; the validator checks this.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Description is a human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// IsObject is true for interior (object) nodes.
	IsObject bool `yaml:"isObject,omitempty" json:"isObject,omitempty"`

	// IsCustom is true for vendor-added nodes outside the standard model.
	IsCustom bool `yaml:"isCustom,omitempty" json:"isCustom,omitempty"`

	// Children holds declared child paths. Order is irrelevant; only
	// populated for object nodes.
	Children []string `yaml:"children,omitempty" json:"children,omitempty"`

	// Range is the optional value constraint descriptor.
	Range *ValueRange `yaml:"valueRange,omitempty" json:"valueRange,omitempty"`

	// Events lists declared notification contracts.
	Events []Event `yaml:"events,omitempty" json:"events,omitempty"`

	// Functions lists declared callable contracts.
	Functions []Function `yaml:"functions,omitempty" json:"functions,omitempty"`
}

// LeafName returns the last dot-separated segment of a path.
func LeafName(path string) string {
	trimmed := strings.TrimSuffix(path, ".")
	if i := strings.LastIndex(trimmed, "."); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
