// Package probe exercises declared events and functions against a live
// device capability.
//
// Parameter presence and access checks are weighted above the live
// probe outcome: a subscription or call that cleanly fails (without a
// transport error) still passes when the declared parameters check out.
// Transport failures never escape as errors; they become error-status
// results carrying the original message.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/model"
)

// batchWorkers bounds concurrent probes within one batch.
const batchWorkers = 4

// Prober runs event and function probes against one capability.
// The device node collection is fetched lazily and cached per prober
// instance: populated at most once on success (write-once, read-many),
// left untouched when the fetch fails so a later probe can retry.
type Prober struct {
	capability device.Capability
	logger     *zap.Logger

	mu    sync.RWMutex
	nodes map[string]model.Node
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the prober's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a prober driving the given capability.
func New(capability device.Capability, opts ...Option) *Prober {
	p := &Prober{
		capability: capability,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TestEvent probes one declared event. If deviceNodes is nil the
// prober's cached device node set is used (fetching it if needed).
func (p *Prober) TestEvent(ctx context.Context, ev model.Event, deviceNodes []model.Node) model.EventTestResult {
	start := time.Now()
	nodeSet, err := p.nodeSet(ctx, deviceNodes)
	if err != nil {
		return errorEventResult(ev, time.Since(start), err)
	}
	return p.testEvent(ctx, ev, nodeSet)
}

// TestFunction probes one declared function. If deviceNodes is nil the
// prober's cached device node set is used (fetching it if needed).
func (p *Prober) TestFunction(ctx context.Context, fn model.Function, deviceNodes []model.Node) model.FunctionTestResult {
	start := time.Now()
	nodeSet, err := p.nodeSet(ctx, deviceNodes)
	if err != nil {
		return errorFunctionResult(fn, time.Since(start), err)
	}
	return p.testFunction(ctx, fn, nodeSet)
}

// TestEvents probes a batch of events. The device node set is resolved
// exactly once for the whole batch; probes then fan out concurrently.
func (p *Prober) TestEvents(ctx context.Context, events []model.Event, deviceNodes []model.Node) []model.EventTestResult {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	results := make([]model.EventTestResult, len(events))

	nodeSet, err := p.nodeSet(ctx, deviceNodes)
	if err != nil {
		elapsed := time.Since(start)
		for i, ev := range events {
			results[i] = errorEventResult(ev, elapsed, err)
		}
		return results
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, ev := range events {
		i, ev := i, ev
		g.Go(func() error {
			results[i] = p.testEvent(ctx, ev, nodeSet)
			return nil
		})
	}
	_ = g.Wait() // probe failures are results, never errors
	return results
}

// TestFunctions probes a batch of functions, resolving the device node
// set once and fanning out like TestEvents.
func (p *Prober) TestFunctions(ctx context.Context, functions []model.Function, deviceNodes []model.Node) []model.FunctionTestResult {
	if len(functions) == 0 {
		return nil
	}
	start := time.Now()
	results := make([]model.FunctionTestResult, len(functions))

	nodeSet, err := p.nodeSet(ctx, deviceNodes)
	if err != nil {
		elapsed := time.Since(start)
		for i, fn := range functions {
			results[i] = errorFunctionResult(fn, elapsed, err)
		}
		return results
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, fn := range functions {
		i, fn := i, fn
		g.Go(func() error {
			results[i] = p.testFunction(ctx, fn, nodeSet)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// TestNode probes every event and function declared on one node.
func (p *Prober) TestNode(ctx context.Context, node model.Node) ([]model.EventTestResult, []model.FunctionTestResult) {
	return p.TestEvents(ctx, node.Events, nil), p.TestFunctions(ctx, node.Functions, nil)
}

func (p *Prober) testEvent(ctx context.Context, ev model.Event, nodeSet map[string]model.Node) model.EventTestResult {
	start := time.Now()
	result := model.EventTestResult{
		EventName: ev.Name,
		EventPath: ev.Path,
	}

	params := model.NewValidationResult()
	for _, path := range ev.Parameters {
		n, ok := nodeSet[path]
		switch {
		case !ok:
			params.AddError(fmt.Sprintf("parameter %s does not exist on the device", path))
		case n.Access == model.AccessWriteOnly:
			params.AddWarning(fmt.Sprintf("parameter %s is write-only, a poor fit for notification", path))
		}
	}
	result.Parameters = params

	accepted, err := p.capability.SubscribeToEvent(ctx, ev.Path)
	result.SubscriptionOK = err == nil && accepted

	switch {
	case !params.Valid:
		result.Status = model.StatusFailed
		result.Message = "event parameter validation failed"
	case err != nil:
		result.Status = model.StatusError
		result.Message = "subscription raised a transport failure"
		result.Details = map[string]any{"error": err.Error()}
	case len(params.Warnings) > 0 && !result.SubscriptionOK:
		result.Status = model.StatusFailed
		result.Message = "subscription failed and parameters carry warnings"
	default:
		// Parameter correctness outweighs the live outcome: a clean
		// subscribe refusal with valid parameters still passes.
		result.Status = model.StatusPassed
		result.Message = "event contract verified"
	}

	result.Duration = time.Since(start)
	p.logger.Debug("probed event",
		zap.String("event", ev.Name),
		zap.String("path", ev.Path),
		zap.String("status", string(result.Status)),
		zap.Bool("subscribed", result.SubscriptionOK))
	return result
}

func (p *Prober) testFunction(ctx context.Context, fn model.Function, nodeSet map[string]model.Node) model.FunctionTestResult {
	start := time.Now()
	result := model.FunctionTestResult{
		FunctionName: fn.Name,
		FunctionPath: fn.Path,
	}

	inputs := model.NewValidationResult()
	for _, path := range fn.InputParameters {
		n, ok := nodeSet[path]
		switch {
		case !ok:
			inputs.AddError(fmt.Sprintf("input parameter %s does not exist on the device", path))
		case n.Access == model.AccessReadOnly:
			inputs.AddWarning(fmt.Sprintf("input parameter %s is read-only on the device", path))
		}
	}
	outputs := model.NewValidationResult()
	for _, path := range fn.OutputParameters {
		n, ok := nodeSet[path]
		switch {
		case !ok:
			outputs.AddError(fmt.Sprintf("output parameter %s does not exist on the device", path))
		case n.Access == model.AccessWriteOnly:
			outputs.AddWarning(fmt.Sprintf("output parameter %s is write-only on the device", path))
		}
	}
	result.Inputs = inputs
	result.Outputs = outputs

	// Empty-string placeholders: the probe checks callability, not
	// behavior with real arguments.
	input := make(map[string]string, len(fn.InputParameters))
	for _, path := range fn.InputParameters {
		input[path] = ""
	}

	resp, err := p.capability.CallFunction(ctx, fn.Path, input)
	result.ExecutionOK = err == nil && len(resp) > 0

	switch {
	case !inputs.Valid || !outputs.Valid:
		result.Status = model.StatusFailed
		result.Message = "function parameter validation failed"
	case err != nil:
		result.Status = model.StatusError
		result.Message = "function call raised a transport failure"
		result.Details = map[string]any{"error": err.Error()}
	default:
		result.Status = model.StatusPassed
		result.Message = "function contract verified"
	}

	result.Duration = time.Since(start)
	p.logger.Debug("probed function",
		zap.String("function", fn.Name),
		zap.String("path", fn.Path),
		zap.String("status", string(result.Status)),
		zap.Bool("executed", result.ExecutionOK))
	return result
}

// nodeSet returns the node index for a probe: the supplied collection
// when given, the per-prober cache otherwise.
func (p *Prober) nodeSet(ctx context.Context, deviceNodes []model.Node) (map[string]model.Node, error) {
	if deviceNodes != nil {
		return indexNodes(deviceNodes), nil
	}
	return p.resolveNodes(ctx)
}

// resolveNodes fetches the device node collection on first use. A
// failed fetch leaves the cache untouched so a later probe retries.
func (p *Prober) resolveNodes(ctx context.Context) (map[string]model.Node, error) {
	p.mu.RLock()
	cached := p.nodes
	p.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nodes != nil {
		return p.nodes, nil
	}

	nodes, err := device.FetchNodes(ctx, p.capability, model.PathRoot)
	if err != nil {
		return nil, err
	}
	p.nodes = indexNodes(nodes)
	p.logger.Debug("cached device nodes", zap.Int("count", len(p.nodes)))
	return p.nodes, nil
}

func indexNodes(nodes []model.Node) map[string]model.Node {
	m := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		m[n.Path] = n
	}
	return m
}

func errorEventResult(ev model.Event, d time.Duration, err error) model.EventTestResult {
	return model.EventTestResult{
		EventName:  ev.Name,
		EventPath:  ev.Path,
		Status:     model.StatusError,
		Message:    "device node resolution failed",
		Parameters: model.NewValidationResult(),
		Duration:   d,
		Details:    map[string]any{"error": err.Error()},
	}
}

func errorFunctionResult(fn model.Function, d time.Duration, err error) model.FunctionTestResult {
	return model.FunctionTestResult{
		FunctionName: fn.Name,
		FunctionPath: fn.Path,
		Status:       model.StatusError,
		Message:      "device node resolution failed",
		Inputs:       model.NewValidationResult(),
		Outputs:      model.NewValidationResult(),
		Duration:     d,
		Details:      map[string]any{"error": err.Error()},
	}
}

// Summarize aggregates probe outcomes across events and functions.
// Mean duration and success rate are 0 for empty input.
func Summarize(events []model.EventTestResult, functions []model.FunctionTestResult) model.ProbeSummary {
	summary := model.ProbeSummary{
		TotalEvents:    len(events),
		TotalFunctions: len(functions),
	}

	var total time.Duration
	count := func(status model.Status) {
		switch status {
		case model.StatusPassed:
			summary.Passed++
		case model.StatusFailed:
			summary.Failed++
		case model.StatusSkipped:
			summary.Skipped++
		case model.StatusError:
			summary.Errored++
		}
	}

	for _, r := range events {
		count(r.Status)
		total += r.Duration
		if r.SubscriptionOK {
			summary.SubscriptionsOK++
		}
	}
	for _, r := range functions {
		count(r.Status)
		total += r.Duration
		if r.ExecutionOK {
			summary.ExecutionsOK++
		}
	}

	if n := len(events) + len(functions); n > 0 {
		summary.MeanDuration = total / time.Duration(n)
		summary.SuccessRate = float64(summary.Passed) / float64(n)
	}
	return summary
}
