// Package validate implements the stateless per-node rule engine.
//
// Validation never raises and never stops on the first finding: every
// applicable rule runs and accumulates into a ValidationResult. Errors
// mark the node invalid; warnings flag conventions worth reviewing
// without breaking conformance.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// nameRe is the TR-181 naming convention for leaf names.
var nameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// componentRe matches a well-formed non-numeric path component.
var componentRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// numericRe matches instance-number path components (e.g. "1" in
// "Device.WiFi.Radio.1.Channel").
var numericRe = regexp.MustCompile(`^[0-9]+$`)

// ValidateNode validates a node against TR-181 conventions using the
// node's own value for type/format/range checks. If the node carries no
// value, value checks are skipped entirely.
func ValidateNode(node model.Node) *model.ValidationResult {
	return validate(node, node.Value)
}

// ValidateNodeValue validates a node using an externally supplied
// actual value (typically read from a live device) in place of the
// node's own value. A nil actual value falls back to the node's value.
func ValidateNodeValue(node model.Node, actual any) *model.ValidationResult {
	if actual == nil {
		actual = node.Value
	}
	return validate(node, actual)
}

func validate(node model.Node, value any) *model.ValidationResult {
	result := model.NewValidationResult()

	checkStructure(node, result)
	checkPath(node.Path, result)

	if node.Type != "" && !node.Type.Known() {
		// Unknown types are tolerated for forward compatibility.
		result.AddWarning(fmt.Sprintf("unknown data type %q", node.Type))
	}

	if value != nil {
		checkTypedValue(node.Type, value, result)
	}

	if node.Range != nil {
		checkRangeSpec(node.Range, result)
		if value != nil {
			checkRangeValue(node.Range, value, result)
		}
	}

	return result
}

// checkStructure verifies the mandatory fields and naming convention.
func checkStructure(node model.Node, result *model.ValidationResult) {
	if node.Path == "" {
		result.AddError("node has no path")
	}
	if node.Name == "" {
		result.AddError("node has no name")
	}
	if node.Type == "" {
		result.AddError("node has no data type")
	}
	if node.Name != "" && !nameRe.MatchString(node.Name) && !numericRe.MatchString(node.Name) {
		result.AddWarning(fmt.Sprintf("name %q does not follow the UpperCamelCase convention", node.Name))
	}
}

// checkPath verifies the path format: rooted at Device., every
// component non-empty, non-numeric components upper-case alphanumeric.
func checkPath(path string, result *model.ValidationResult) {
	if path == "" {
		return
	}
	if !strings.HasPrefix(path, model.PathRoot) {
		result.AddError(fmt.Sprintf("path %q is not rooted at %q", path, model.PathRoot))
		return
	}

	components := strings.Split(strings.TrimSuffix(path, "."), ".")
	for i, c := range components[1:] {
		if c == "" {
			result.AddError(fmt.Sprintf("path %q has an empty component at position %d", path, i+1))
			continue
		}
		if numericRe.MatchString(c) {
			continue
		}
		if !componentRe.MatchString(c) {
			result.AddWarning(fmt.Sprintf("path component %q should be upper-case alphanumeric", c))
		}
	}
}

// NodeValidation pairs a node path with its validation result.
type NodeValidation struct {
	// Path is the validated node's path.
	Path string `json:"path"`

	// Result holds the accumulated findings.
	Result *model.ValidationResult `json:"result"`
}

// ValidateNodes validates each node independently, in input order.
func ValidateNodes(nodes []model.Node) []NodeValidation {
	results := make([]NodeValidation, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, NodeValidation{
			Path:   n.Path,
			Result: ValidateNode(n),
		})
	}
	return results
}

// Summarize aggregates multi-node validation results.
// The validation rate is 0.0 for empty input.
func Summarize(results []NodeValidation) model.ValidationSummary {
	summary := model.ValidationSummary{TotalNodes: len(results)}
	for _, r := range results {
		if r.Result.Valid {
			summary.ValidNodes++
		} else {
			summary.InvalidNodes++
		}
		summary.TotalErrors += len(r.Result.Errors)
		summary.TotalWarnings += len(r.Result.Warnings)
	}
	if summary.TotalNodes > 0 {
		summary.ValidationRate = float64(summary.ValidNodes) / float64(summary.TotalNodes)
	}
	return summary
}
