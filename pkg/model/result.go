package model

import "time"

// ValidationResult accumulates findings for one validation pass.
// Valid starts true and becomes false the moment any error is added.
// The zero value is not ready for use; construct with NewValidationResult.
type ValidationResult struct {
	// Valid is true while no error has been recorded.
	Valid bool `json:"valid"`

	// Errors contains conformance-breaking findings, in detection order.
	Errors []string `json:"errors,omitempty"`

	// Warnings contains non-fatal findings, in detection order.
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError records an error and marks the result invalid.
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning records a warning. Warnings never affect validity.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Merge folds another result into this one. Validity is the AND of
// both; error and warning lists are concatenated in order.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Valid = r.Valid && other.Valid
}

// Status is the outcome classification of one probe.
type Status string

const (
	// StatusPassed indicates the probe met its contract.
	StatusPassed Status = "passed"
	// StatusFailed indicates a contract violation.
	StatusFailed Status = "failed"
	// StatusSkipped indicates the probe was not executed.
	StatusSkipped Status = "skipped"
	// StatusError indicates the transport raised during the probe.
	StatusError Status = "error"
)

// EventTestResult is the outcome of probing one declared event.
type EventTestResult struct {
	// EventName is the declared event name.
	EventName string `json:"eventName"`

	// EventPath is the path the subscription was attempted on.
	EventPath string `json:"eventPath"`

	// Status is the derived outcome.
	Status Status `json:"status"`

	// Message summarizes the outcome.
	Message string `json:"message,omitempty"`

	// Parameters holds the parameter-existence validation findings.
	Parameters *ValidationResult `json:"parameters,omitempty"`

	// SubscriptionOK is the boolean live-probe outcome.
	SubscriptionOK bool `json:"subscriptionOk"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration"`

	// Details carries free-form diagnostic data, including the
	// original transport error message on status error.
	Details map[string]any `json:"details,omitempty"`
}

// FunctionTestResult is the outcome of probing one declared function.
type FunctionTestResult struct {
	// FunctionName is the declared function name.
	FunctionName string `json:"functionName"`

	// FunctionPath is the path the call was attempted on.
	FunctionPath string `json:"functionPath"`

	// Status is the derived outcome.
	Status Status `json:"status"`

	// Message summarizes the outcome.
	Message string `json:"message,omitempty"`

	// Inputs holds validation findings for input parameters.
	Inputs *ValidationResult `json:"inputs,omitempty"`

	// Outputs holds validation findings for output parameters.
	Outputs *ValidationResult `json:"outputs,omitempty"`

	// ExecutionOK is true when the live call returned a non-empty
	// structured result without raising.
	ExecutionOK bool `json:"executionOk"`

	// Duration is how long the probe took.
	Duration time.Duration `json:"duration"`

	// Details carries free-form diagnostic data.
	Details map[string]any `json:"details,omitempty"`
}

// ValidationSummary aggregates multi-node validation results.
type ValidationSummary struct {
	TotalNodes    int `json:"totalNodes"`
	ValidNodes    int `json:"validNodes"`
	InvalidNodes  int `json:"invalidNodes"`
	TotalErrors   int `json:"totalErrors"`
	TotalWarnings int `json:"totalWarnings"`

	// ValidationRate is ValidNodes/TotalNodes, 0.0 for empty input.
	ValidationRate float64 `json:"validationRate"`
}

// ProbeSummary aggregates event and function probe outcomes.
type ProbeSummary struct {
	TotalEvents    int `json:"totalEvents"`
	TotalFunctions int `json:"totalFunctions"`

	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`

	// SubscriptionsOK counts events whose live subscribe succeeded.
	SubscriptionsOK int `json:"subscriptionsOk"`

	// ExecutionsOK counts functions whose live call succeeded.
	ExecutionsOK int `json:"executionsOk"`

	// MeanDuration is the mean probe duration, 0 for empty input.
	MeanDuration time.Duration `json:"meanDuration"`

	// SuccessRate is passed probes over total probes, 0.0 for empty input.
	SuccessRate float64 `json:"successRate"`
}
