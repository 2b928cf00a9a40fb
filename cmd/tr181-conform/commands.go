package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/tr181-conform/tr181-go/cmd/tr181-conform/console"
	"github.com/tr181-conform/tr181-go/internal/config"
	"github.com/tr181-conform/tr181-go/pkg/catalog"
	"github.com/tr181-conform/tr181-go/pkg/compare"
	"github.com/tr181-conform/tr181-go/pkg/conformance"
	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/device/devicemock"
	"github.com/tr181-conform/tr181-go/pkg/device/wsrpc"
	"github.com/tr181-conform/tr181-go/pkg/model"
	"github.com/tr181-conform/tr181-go/pkg/probe"
	"github.com/tr181-conform/tr181-go/pkg/report"
	"github.com/tr181-conform/tr181-go/pkg/subset"
	"github.com/tr181-conform/tr181-go/pkg/validate"
)

// loadConfig resolves the effective configuration: environment first,
// command line flags on top.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("device-kind") {
		cfg.Device.Kind = ctx.String("device-kind")
	}
	if ctx.IsSet("endpoint") {
		cfg.Device.Endpoint = ctx.String("endpoint")
	}
	if ctx.IsSet("username") {
		cfg.Device.Username = ctx.String("username")
	}
	if ctx.IsSet("password") {
		cfg.Device.Password = ctx.String("password")
	}
	if ctx.IsSet("timeout") {
		cfg.Device.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("store") {
		cfg.StorePath = ctx.String("store")
	}
	if ctx.IsSet("report") {
		cfg.ReportPath = ctx.String("report")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	return cfg, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = lvl
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}
	logCfg.Sampling = nil
	return logCfg.Build()
}

// newRegistry returns the adapter registry with the built-in kinds.
func newRegistry() *device.Registry {
	reg := device.NewRegistry()
	_ = reg.Register("wsrpc", func(logger *zap.Logger) (device.Capability, error) {
		return wsrpc.New(logger), nil
	})
	_ = reg.Register("mock", func(_ *zap.Logger) (device.Capability, error) {
		return devicemock.New(nil), nil
	})
	return reg
}

// connectDevice builds and connects the configured capability adapter.
func connectDevice(ctx *cli.Context, cfg *config.Config, logger *zap.Logger) (device.Capability, error) {
	capability, err := newRegistry().New(cfg.Device.Kind, logger)
	if err != nil {
		return nil, err
	}
	devCfg := device.Config{
		Endpoint: cfg.Device.Endpoint,
		Username: cfg.Device.Username,
		Password: cfg.Device.Password,
		Timeout:  cfg.Device.Timeout,
	}
	if err := capability.Connect(ctx.Context, devCfg); err != nil {
		return nil, err
	}
	return capability, nil
}

// loadSubset resolves the argument as a YAML file first, then as a
// saved subset name in the store, then as an embedded baseline.
func loadSubset(cfg *config.Config, arg string) (*subset.Subset, error) {
	if _, err := os.Stat(arg); err == nil {
		return subset.ReadFile(arg)
	}
	store, err := subset.NewStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sub, err := store.Get(arg)
	if errors.Is(err, subset.ErrNotFound) {
		if baseline, berr := catalog.Load(arg); berr == nil {
			return baseline, nil
		}
	}
	return sub, err
}

func compareAction(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("compare needs exactly two file arguments", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	first, err := loadSubset(cfg, ctx.Args().Get(0))
	if err != nil {
		return err
	}
	second, err := loadSubset(cfg, ctx.Args().Get(1))
	if err != nil {
		return err
	}

	result := compare.Compare(first.Nodes, second.Nodes)
	if ctx.Bool("json") {
		if err := printJSON(ctx, result); err != nil {
			return err
		}
	} else {
		printComparison(ctx, result, ctx.Args().Get(0), ctx.Args().Get(1))
	}

	if result.HasErrors() {
		return cli.Exit("", 2)
	}
	return nil
}

func printJSON(ctx *cli.Context, v any) error {
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printComparison(ctx *cli.Context, result model.ComparisonResult, name1, name2 string) {
	w := ctx.App.Writer
	for _, n := range result.OnlyInSource1 {
		fmt.Fprintf(w, "only in %s: %s\n", name1, n.Path)
	}
	for _, n := range result.OnlyInSource2 {
		fmt.Fprintf(w, "only in %s: %s\n", name2, n.Path)
	}
	for _, d := range result.Differences {
		fmt.Fprintf(w, "[%s] %s %s: %v != %v\n",
			d.Severity, d.Path, d.Property, d.Source1Value, d.Source2Value)
	}
	s := result.Summary
	fmt.Fprintf(w, "\n%d vs %d nodes, %d common, %d differences\n",
		s.TotalNodesSource1, s.TotalNodesSource2, s.CommonNodes, s.DifferenceCount)
}

func validateAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("validate needs exactly one file argument", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	sub, err := loadSubset(cfg, ctx.Args().First())
	if err != nil {
		return err
	}

	w := ctx.App.Writer
	results := validate.ValidateNodes(sub.Nodes)
	summary := validate.Summarize(results)

	if ctx.Bool("json") {
		payload := struct {
			Results []validate.NodeValidation `json:"results"`
			Summary model.ValidationSummary   `json:"summary"`
		}{results, summary}
		if err := printJSON(ctx, payload); err != nil {
			return err
		}
	} else {
		for _, nv := range results {
			for _, msg := range nv.Result.Errors {
				fmt.Fprintf(w, "error   %s: %s\n", nv.Path, msg)
			}
			for _, msg := range nv.Result.Warnings {
				fmt.Fprintf(w, "warning %s: %s\n", nv.Path, msg)
			}
		}
		fmt.Fprintf(w, "\n%d/%d nodes valid (%.1f%%), %d errors, %d warnings\n",
			summary.ValidNodes, summary.TotalNodes, summary.ValidationRate*100,
			summary.TotalErrors, summary.TotalWarnings)
	}

	if cfg.ReportPath != "" {
		rw, err := report.NewFileWriter(cfg.ReportPath)
		if err != nil {
			return err
		}
		defer rw.Close()
		for _, nv := range results {
			if err := rw.WriteValidation(nv.Path, nv.Result); err != nil {
				return err
			}
		}
	}

	if summary.InvalidNodes > 0 {
		return cli.Exit("", 2)
	}
	return nil
}

func probeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("probe needs exactly one file argument", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sub, err := loadSubset(cfg, ctx.Args().First())
	if err != nil {
		return err
	}

	capability, err := connectDevice(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer capability.Disconnect(ctx.Context)

	prober := probe.New(capability, probe.WithLogger(logger))

	var events []model.Event
	var functions []model.Function
	for _, n := range sub.Nodes {
		events = append(events, n.Events...)
		functions = append(functions, n.Functions...)
	}

	eventResults := prober.TestEvents(ctx.Context, events, nil)
	functionResults := prober.TestFunctions(ctx.Context, functions, nil)

	w := ctx.App.Writer
	for _, r := range eventResults {
		fmt.Fprintf(w, "event    %-8s %s (%s)\n", r.Status, r.EventPath, r.Duration)
		if r.Message != "" {
			fmt.Fprintf(w, "         %s\n", r.Message)
		}
	}
	for _, r := range functionResults {
		fmt.Fprintf(w, "function %-8s %s (%s)\n", r.Status, r.FunctionPath, r.Duration)
		if r.Message != "" {
			fmt.Fprintf(w, "         %s\n", r.Message)
		}
	}

	summary := probe.Summarize(eventResults, functionResults)
	fmt.Fprintf(w, "\n%d events, %d functions: %d passed, %d failed, %d skipped, %d errored\n",
		summary.TotalEvents, summary.TotalFunctions,
		summary.Passed, summary.Failed, summary.Skipped, summary.Errored)

	if summary.Failed > 0 || summary.Errored > 0 {
		return cli.Exit("", 2)
	}
	return nil
}

func runAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("run needs exactly one file argument", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sub, err := loadSubset(cfg, ctx.Args().First())
	if err != nil {
		return err
	}

	capability, err := connectDevice(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer capability.Disconnect(ctx.Context)

	deviceNodes, err := device.FetchNodes(ctx.Context, capability, model.PathRoot)
	if err != nil {
		return err
	}

	engine := conformance.New(
		conformance.WithCapability(capability),
		conformance.WithLogger(logger),
	)
	rep := engine.Run(ctx.Context, sub.Nodes, deviceNodes)

	if cfg.ReportPath != "" {
		rw, err := report.NewFileWriter(cfg.ReportPath)
		if err != nil {
			return err
		}
		defer rw.Close()
		if err := rw.WriteReport(rep); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "report %s written to %s\n", rw.RunID(), cfg.ReportPath)
	}

	if ctx.Bool("json") {
		if err := printJSON(ctx, rep); err != nil {
			return err
		}
	} else {
		printRunSummary(ctx, rep)
	}

	if rep.Summary.ComplianceScore < 1.0 {
		return cli.Exit("", 2)
	}
	return nil
}

func printRunSummary(ctx *cli.Context, rep *conformance.Report) {
	w := ctx.App.Writer
	s := rep.Summary
	fmt.Fprintf(w, "comparison: %d common nodes, %d differences, %d only in spec, %d only on device\n",
		s.Comparison.CommonNodes, s.Comparison.DifferenceCount,
		len(rep.Comparison.OnlyInSource1), len(rep.Comparison.OnlyInSource2))
	fmt.Fprintf(w, "validation: %d/%d nodes valid, %d errors, %d warnings\n",
		s.Validation.ValidNodes, s.Validation.TotalNodes,
		s.Validation.TotalErrors, s.Validation.TotalWarnings)
	fmt.Fprintf(w, "probes:     %d events, %d functions, %d passed, %d failed, %d errored\n",
		s.Probes.TotalEvents, s.Probes.TotalFunctions,
		s.Probes.Passed, s.Probes.Failed, s.Probes.Errored)
	fmt.Fprintf(w, "\ncompliance score: %.3f (%d/%d checks)\n",
		s.ComplianceScore, s.ChecksPassed, s.ChecksTotal)
}

func subsetSaveAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("save needs exactly one file argument", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	sub, err := subset.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	store, err := subset.NewStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(sub); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "saved %q (%d nodes) as %s\n", sub.Name, len(sub.Nodes), sub.ID)
	return nil
}

func subsetShowAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("show needs exactly one subset name", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := subset.NewStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	sub, err := store.Get(ctx.Args().First())
	if err != nil {
		return err
	}
	return subset.Encode(ctx.App.Writer, sub)
}

func subsetListAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := subset.NewStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	subsets, err := store.List()
	if err != nil {
		return err
	}
	sort.Slice(subsets, func(i, j int) bool { return subsets[i].Name < subsets[j].Name })
	for _, s := range subsets {
		fmt.Fprintf(ctx.App.Writer, "%-30s %s  %s\n",
			s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.Description)
	}
	return nil
}

func subsetBaselinesAction(ctx *cli.Context) error {
	names, err := catalog.Available()
	if err != nil {
		return err
	}
	for _, name := range names {
		baseline, err := catalog.Load(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "%-20s %3d nodes  %s\n",
			name, len(baseline.Nodes), baseline.Description)
	}
	return nil
}

func subsetDeleteAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("delete needs exactly one subset name", 1)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := subset.NewStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(ctx.Args().First()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "deleted %q\n", ctx.Args().First())
	return nil
}

func consoleAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := console.New(cfg, newRegistry(), logger)
	if err != nil {
		return err
	}
	return c.Run(ctx.Context)
}
