// Package console provides the interactive device console for
// tr181-conform.
package console

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/tr181-conform/tr181-go/internal/config"
	"github.com/tr181-conform/tr181-go/pkg/compare"
	"github.com/tr181-conform/tr181-go/pkg/conformance"
	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/model"
	"github.com/tr181-conform/tr181-go/pkg/probe"
	"github.com/tr181-conform/tr181-go/pkg/subset"
	"github.com/tr181-conform/tr181-go/pkg/validate"
)

// Console handles the interactive command loop.
type Console struct {
	cfg      *config.Config
	registry *device.Registry
	logger   *zap.Logger
	rl       *readline.Instance

	capability device.Capability
	nodes      []model.Node
}

// New creates a console. The device is not connected until the user
// runs the connect command.
func New(cfg *config.Config, registry *device.Registry, logger *zap.Logger) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tr181> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		rl:       rl,
	}, nil
}

// Run starts the interactive command loop. It returns when the user
// exits or the context is cancelled.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()
	defer func() {
		if c.capability != nil {
			_ = c.capability.Disconnect(ctx)
		}
	}()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect":
			c.cmdConnect(ctx, args)

		case "disconnect":
			c.cmdDisconnect(ctx)

		case "status":
			c.cmdStatus()

		case "nodes", "fetch":
			c.cmdNodes(ctx, args)

		case "read", "r":
			c.cmdRead(ctx, args)

		case "write", "w":
			c.cmdWrite(ctx, args)

		case "subscribe", "sub":
			c.cmdSubscribe(ctx, args)

		case "call":
			c.cmdCall(ctx, args)

		case "probe":
			c.cmdProbe(ctx, args)

		case "compare":
			c.cmdCompare(ctx, args)

		case "validate":
			c.cmdValidate(args)

		case "run":
			c.cmdRun(ctx, args)

		case "subsets":
			c.cmdSubsets()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
tr181-conform console commands:
  Connection:
    connect [endpoint]          - Connect to the device
    disconnect                  - Close the device session
    status                      - Show connection state

  Device:
    nodes [prefix]              - Fetch and list parameters
    read <path> [path...]       - Read parameter values
    write <path> <value>        - Write a parameter value
    subscribe <event-path>      - Try an event subscription
    call <func-path> [k=v ...]  - Invoke a function
    probe <path>                - Live-test a fetched node's contracts

  Conformance:
    compare <subset>            - Diff a subset against the device
    validate <subset>           - Validate a subset's nodes
    run <subset>                - Full conformance run
    subsets                     - List saved subsets

  quit, exit, q                 - Leave the console`)
}

func (c *Console) cmdConnect(ctx context.Context, args []string) {
	if c.capability != nil {
		fmt.Fprintln(c.rl.Stdout(), "Already connected (disconnect first)")
		return
	}

	devCfg := device.Config{
		Endpoint: c.cfg.Device.Endpoint,
		Username: c.cfg.Device.Username,
		Password: c.cfg.Device.Password,
		Timeout:  c.cfg.Device.Timeout,
	}
	if len(args) > 0 {
		devCfg.Endpoint = args[0]
	}

	capability, err := c.registry.New(c.cfg.Device.Kind, c.logger)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := capability.Connect(ctx, devCfg); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	c.capability = capability
	fmt.Fprintf(c.rl.Stdout(), "Connected (%s) to %s\n", c.cfg.Device.Kind, devCfg.Endpoint)
}

func (c *Console) cmdDisconnect(ctx context.Context) {
	if c.capability == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return
	}
	if err := c.capability.Disconnect(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	}
	c.capability = nil
	c.nodes = nil
	fmt.Fprintln(c.rl.Stdout(), "Disconnected")
}

func (c *Console) cmdStatus() {
	if c.capability == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Connected (%s), %d nodes fetched\n",
		c.cfg.Device.Kind, len(c.nodes))
}

func (c *Console) connected() bool {
	if c.capability == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect')")
		return false
	}
	return true
}

func (c *Console) cmdNodes(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	prefix := model.PathRoot
	if len(args) > 0 {
		prefix = args[0]
	}

	nodes, err := device.FetchNodes(ctx, c.capability, prefix)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Fetch failed: %v\n", err)
		return
	}
	c.nodes = nodes

	for _, n := range nodes {
		fmt.Fprintf(c.rl.Stdout(), "  %-50s %-12s %s\n", n.Path, n.Type, n.Access)
	}
	fmt.Fprintf(c.rl.Stdout(), "%d nodes\n", len(nodes))
}

func (c *Console) cmdRead(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: read <path> [path...]")
		return
	}
	values, err := c.capability.ReadParameterValues(ctx, args)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	for _, p := range args {
		if v, ok := values[p]; ok {
			fmt.Fprintf(c.rl.Stdout(), "  %s = %v\n", p, v)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "  %s: no value\n", p)
		}
	}
}

func (c *Console) cmdWrite(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: write <path> <value>")
		return
	}
	if err := c.capability.WriteParameterValues(ctx, map[string]any{args[0]: args[1]}); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Write failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

func (c *Console) cmdSubscribe(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: subscribe <event-path>")
		return
	}
	accepted, err := c.capability.SubscribeToEvent(ctx, args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Subscribe failed: %v\n", err)
		return
	}
	if accepted {
		fmt.Fprintln(c.rl.Stdout(), "Subscription accepted")
	} else {
		fmt.Fprintln(c.rl.Stdout(), "Subscription refused by device")
	}
}

func (c *Console) cmdCall(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: call <func-path> [key=value ...]")
		return
	}
	input := make(map[string]string)
	for _, kv := range args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(c.rl.Stdout(), "Bad parameter %q (want key=value)\n", kv)
			return
		}
		input[key] = value
	}
	result, err := c.capability.CallFunction(ctx, args[0], input)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Call failed: %v\n", err)
		return
	}
	if len(result) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Empty result")
		return
	}
	for k, v := range result {
		fmt.Fprintf(c.rl.Stdout(), "  %s = %v\n", k, v)
	}
}

// loadSubset resolves the argument as a YAML file first, then as a
// saved subset name.
func (c *Console) loadSubset(arg string) (*subset.Subset, error) {
	if _, err := os.Stat(arg); err == nil {
		return subset.ReadFile(arg)
	}
	store, err := subset.NewStore(c.cfg.StorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Get(arg)
}

func (c *Console) cmdCompare(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: compare <subset>")
		return
	}
	sub, err := c.loadSubset(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if c.nodes == nil {
		nodes, err := device.FetchNodes(ctx, c.capability, model.PathRoot)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Fetch failed: %v\n", err)
			return
		}
		c.nodes = nodes
	}

	result := compare.Compare(sub.Nodes, c.nodes)
	for _, n := range result.OnlyInSource1 {
		fmt.Fprintf(c.rl.Stdout(), "  missing on device: %s\n", n.Path)
	}
	for _, n := range result.OnlyInSource2 {
		fmt.Fprintf(c.rl.Stdout(), "  extra on device:   %s\n", n.Path)
	}
	for _, d := range result.Differences {
		fmt.Fprintf(c.rl.Stdout(), "  [%s] %s %s: %v != %v\n",
			d.Severity, d.Path, d.Property, d.Source1Value, d.Source2Value)
	}
	s := result.Summary
	fmt.Fprintf(c.rl.Stdout(), "%d common nodes, %d differences\n",
		s.CommonNodes, s.DifferenceCount)
}

func (c *Console) cmdValidate(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: validate <subset>")
		return
	}
	sub, err := c.loadSubset(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	results := validate.ValidateNodes(sub.Nodes)
	for _, nv := range results {
		for _, msg := range nv.Result.Errors {
			fmt.Fprintf(c.rl.Stdout(), "  error   %s: %s\n", nv.Path, msg)
		}
		for _, msg := range nv.Result.Warnings {
			fmt.Fprintf(c.rl.Stdout(), "  warning %s: %s\n", nv.Path, msg)
		}
	}
	summary := validate.Summarize(results)
	fmt.Fprintf(c.rl.Stdout(), "%d/%d nodes valid, %d errors, %d warnings\n",
		summary.ValidNodes, summary.TotalNodes,
		summary.TotalErrors, summary.TotalWarnings)
}

func (c *Console) cmdRun(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: run <subset>")
		return
	}
	sub, err := c.loadSubset(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	deviceNodes, err := device.FetchNodes(ctx, c.capability, model.PathRoot)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Fetch failed: %v\n", err)
		return
	}
	c.nodes = deviceNodes

	engine := conformance.New(
		conformance.WithCapability(c.capability),
		conformance.WithLogger(c.logger),
	)
	rep := engine.Run(ctx, sub.Nodes, deviceNodes)

	s := rep.Summary
	fmt.Fprintf(c.rl.Stdout(), "comparison: %d common, %d differences\n",
		s.Comparison.CommonNodes, s.Comparison.DifferenceCount)
	fmt.Fprintf(c.rl.Stdout(), "validation: %d/%d valid\n",
		s.Validation.ValidNodes, s.Validation.TotalNodes)
	fmt.Fprintf(c.rl.Stdout(), "probes:     %d passed, %d failed, %d errored\n",
		s.Probes.Passed, s.Probes.Failed, s.Probes.Errored)
	fmt.Fprintf(c.rl.Stdout(), "compliance score: %.3f (%d/%d checks)\n",
		s.ComplianceScore, s.ChecksPassed, s.ChecksTotal)
}

// cmdProbe live-tests the events and functions one fetched node
// declares.
func (c *Console) cmdProbe(ctx context.Context, args []string) {
	if !c.connected() {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: probe <path>")
		return
	}

	var node *model.Node
	for i := range c.nodes {
		if c.nodes[i].Path == args[0] {
			node = &c.nodes[i]
			break
		}
	}
	if node == nil {
		fmt.Fprintf(c.rl.Stdout(), "Unknown node %s (run 'nodes' first)\n", args[0])
		return
	}
	if len(node.Events) == 0 && len(node.Functions) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Node declares no events or functions")
		return
	}

	prober := probe.New(c.capability, probe.WithLogger(c.logger))
	eventResults, functionResults := prober.TestNode(ctx, *node)
	for _, r := range eventResults {
		fmt.Fprintf(c.rl.Stdout(), "  event    %-8s %s (%s)\n", r.Status, r.EventPath, r.Duration)
	}
	for _, r := range functionResults {
		fmt.Fprintf(c.rl.Stdout(), "  function %-8s %s (%s)\n", r.Status, r.FunctionPath, r.Duration)
	}
}

func (c *Console) cmdSubsets() {
	store, err := subset.NewStore(c.cfg.StorePath)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	defer store.Close()

	subsets, err := store.List()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if len(subsets) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No saved subsets")
		return
	}
	for _, s := range subsets {
		fmt.Fprintf(c.rl.Stdout(), "  %-30s %s  %s\n",
			s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.Description)
	}
}
