// Package conformance composes the comparison engine, validator, and
// prober into one combined report with a derived compliance score. It
// is the only component with knowledge of all three.
package conformance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tr181-conform/tr181-go/pkg/compare"
	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/model"
	"github.com/tr181-conform/tr181-go/pkg/probe"
	"github.com/tr181-conform/tr181-go/pkg/validate"
)

// Report is the merged outcome of an orchestrated comparison.
type Report struct {
	// Comparison is the structural diff of spec versus device.
	Comparison model.ComparisonResult `json:"comparison"`

	// Validations holds one merged validation result per common path.
	Validations []validate.NodeValidation `json:"validations"`

	// EventResults holds probe outcomes for every event declared in
	// the spec collection. Empty without a capability.
	EventResults []model.EventTestResult `json:"eventResults,omitempty"`

	// FunctionResults holds probe outcomes for every declared function.
	FunctionResults []model.FunctionTestResult `json:"functionResults,omitempty"`

	// Summary aggregates everything above.
	Summary Summary `json:"summary"`
}

// Summary aggregates the orchestrated run.
type Summary struct {
	Comparison model.ComparisonSummary `json:"comparison"`
	Validation model.ValidationSummary `json:"validation"`
	Probes     model.ProbeSummary      `json:"probes"`

	// ChecksPassed and ChecksTotal count validation, event, and
	// function checks combined.
	ChecksPassed int `json:"checksPassed"`
	ChecksTotal  int `json:"checksTotal"`

	// ComplianceScore is ChecksPassed/ChecksTotal, 1.0 when no checks
	// were performed.
	ComplianceScore float64 `json:"complianceScore"`
}

// Engine runs orchestrated comparisons.
type Engine struct {
	capability device.Capability
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapability supplies a live device capability. Without one, event
// and function result lists stay empty.
func WithCapability(capability device.Capability) Option {
	return func(e *Engine) { e.capability = capability }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an orchestration engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run compares the spec collection against the device collection,
// validates every common node, and — when a capability is present —
// probes every event and function the spec declares.
func (e *Engine) Run(ctx context.Context, specNodes, deviceNodes []model.Node) *Report {
	report := &Report{
		Comparison: compare.Compare(specNodes, deviceNodes),
	}

	deviceByPath := make(map[string]model.Node, len(deviceNodes))
	for _, n := range deviceNodes {
		deviceByPath[n.Path] = n
	}

	for _, specNode := range dedupe(specNodes) {
		deviceNode, ok := deviceByPath[specNode.Path]
		if !ok {
			continue
		}
		report.Validations = append(report.Validations, validate.NodeValidation{
			Path:   specNode.Path,
			Result: e.checkNodePair(specNode, deviceNode),
		})
	}

	if e.capability != nil {
		events, functions := declaredContracts(specNodes)
		prober := probe.New(e.capability, probe.WithLogger(e.logger))
		report.EventResults = prober.TestEvents(ctx, events, nil)
		report.FunctionResults = prober.TestFunctions(ctx, functions, nil)
	}

	report.Summary = e.summarize(report)
	e.logger.Info("orchestrated comparison complete",
		zap.Int("commonNodes", report.Summary.Comparison.CommonNodes),
		zap.Int("checksTotal", report.Summary.ChecksTotal),
		zap.Float64("complianceScore", report.Summary.ComplianceScore))
	return report
}

// checkNodePair merges every per-path check: declared type and access
// against the spec, the device's actual value against the spec's
// constraints, the device node's own consistency, and child sets for
// object nodes.
func (e *Engine) checkNodePair(specNode, deviceNode model.Node) *model.ValidationResult {
	result := model.NewValidationResult()

	if specNode.Type != deviceNode.Type {
		result.AddError(fmt.Sprintf("declared type mismatch: specification %s, device %s",
			specNode.Type, deviceNode.Type))
	}
	if specNode.Access != deviceNode.Access {
		result.AddWarning(fmt.Sprintf("access level mismatch: specification %s, device %s",
			specNode.Access, deviceNode.Access))
	}

	// Device's actual value against the specification's type and range.
	result.Merge(validate.ValidateNodeValue(specNode, deviceNode.Value))

	// Device node's own declared type/value consistency.
	result.Merge(validate.ValidateNode(deviceNode))

	if specNode.IsObject {
		deviceChildren := make(map[string]bool, len(deviceNode.Children))
		for _, c := range deviceNode.Children {
			deviceChildren[c] = true
		}
		specChildren := make(map[string]bool, len(specNode.Children))
		for _, c := range specNode.Children {
			specChildren[c] = true
			if !deviceChildren[c] {
				result.AddError(fmt.Sprintf("declared child %s is missing on the device", c))
			}
		}
		for _, c := range deviceNode.Children {
			if !specChildren[c] {
				result.AddWarning(fmt.Sprintf("device declares extra child %s", c))
			}
		}
	}

	return result
}

func (e *Engine) summarize(report *Report) Summary {
	summary := Summary{
		Comparison: report.Comparison.Summary,
		Validation: validate.Summarize(report.Validations),
		Probes:     probe.Summarize(report.EventResults, report.FunctionResults),
	}

	for _, v := range report.Validations {
		summary.ChecksTotal++
		if v.Result.Valid {
			summary.ChecksPassed++
		}
	}
	for _, r := range report.EventResults {
		summary.ChecksTotal++
		if r.Status == model.StatusPassed {
			summary.ChecksPassed++
		}
	}
	for _, r := range report.FunctionResults {
		summary.ChecksTotal++
		if r.Status == model.StatusPassed {
			summary.ChecksPassed++
		}
	}

	if summary.ChecksTotal == 0 {
		summary.ComplianceScore = 1.0
	} else {
		summary.ComplianceScore = float64(summary.ChecksPassed) / float64(summary.ChecksTotal)
	}
	return summary
}

// dedupe keeps the last node per path, preserving first-seen order, so
// orchestration matches the comparison engine's last-write-wins maps.
func dedupe(nodes []model.Node) []model.Node {
	index := make(map[string]int, len(nodes))
	var out []model.Node
	for _, n := range nodes {
		if i, seen := index[n.Path]; seen {
			out[i] = n
			continue
		}
		index[n.Path] = len(out)
		out = append(out, n)
	}
	return out
}

// declaredContracts collects every event and function declared across a
// node collection, in declaration order.
func declaredContracts(nodes []model.Node) ([]model.Event, []model.Function) {
	var events []model.Event
	var functions []model.Function
	for _, n := range nodes {
		events = append(events, n.Events...)
		functions = append(functions, n.Functions...)
	}
	return events, functions
}
