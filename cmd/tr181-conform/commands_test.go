package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tr181-conform/tr181-go/pkg/model"
	"github.com/tr181-conform/tr181-go/pkg/subset"
)

// runApp executes the CLI with the given args and captures stdout.
// Exit codes are surfaced through the returned error instead of
// terminating the test process.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"tr181-conform"}, args...))
	return buf.String(), err
}

func writeSubsetFile(t *testing.T, name string, nodes []model.Node) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, subset.WriteFile(path, &subset.Subset{Name: name, Nodes: nodes}))
	return path
}

func deviceInfoNodes() []model.Node {
	return []model.Node{
		{
			Path:     "Device.DeviceInfo.",
			Name:     "DeviceInfo",
			Type:     model.DataTypeObject,
			Access:   model.AccessReadOnly,
			IsObject: true,
		},
		{
			Path:   "Device.DeviceInfo.Manufacturer",
			Name:   "Manufacturer",
			Type:   model.DataTypeString,
			Access: model.AccessReadOnly,
			Value:  "Acme",
		},
	}
}

func TestCompareIdentical(t *testing.T) {
	nodes := deviceInfoNodes()
	first := writeSubsetFile(t, "first.yaml", nodes)
	second := writeSubsetFile(t, "second.yaml", nodes)

	out, err := runApp(t, "compare", first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "2 vs 2 nodes, 2 common, 0 differences")
}

func TestCompareTypeMismatch(t *testing.T) {
	nodes := deviceInfoNodes()
	first := writeSubsetFile(t, "first.yaml", nodes)

	nodes[1].Type = model.DataTypeInt
	second := writeSubsetFile(t, "second.yaml", nodes)

	out, err := runApp(t, "compare", first, second)
	require.Error(t, err)
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, out, "[error]")
	assert.Contains(t, out, "dataType")
}

func TestCompareMissingArgs(t *testing.T) {
	_, err := runApp(t, "compare", "only-one.yaml")
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestValidateCleanSubset(t *testing.T) {
	path := writeSubsetFile(t, "clean.yaml", deviceInfoNodes())

	out, err := runApp(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 nodes valid")
}

func TestValidateBadRoot(t *testing.T) {
	nodes := []model.Node{{
		Path:   "Gateway.Info",
		Name:   "Info",
		Type:   model.DataTypeString,
		Access: model.AccessReadOnly,
	}}
	path := writeSubsetFile(t, "bad.yaml", nodes)

	out, err := runApp(t, "validate", path)
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, out, "error")
}

func TestCompareJSONOutput(t *testing.T) {
	nodes := deviceInfoNodes()
	first := writeSubsetFile(t, "first.yaml", nodes)
	second := writeSubsetFile(t, "second.yaml", nodes)

	out, err := runApp(t, "compare", "--json", first, second)
	require.NoError(t, err)

	var result model.ComparisonResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Summary.CommonNodes)
	assert.Zero(t, result.Summary.DifferenceCount)
}

func TestSubsetBaselines(t *testing.T) {
	out, err := runApp(t, "subset", "baselines")
	require.NoError(t, err)
	assert.Contains(t, out, "deviceinfo")
	assert.Contains(t, out, "managementserver")
}

func TestValidateBaselineByName(t *testing.T) {
	store := filepath.Join(t.TempDir(), "subsets.db")

	out, err := runApp(t, "--store", store, "validate", "deviceinfo")
	require.NoError(t, err)
	assert.Contains(t, out, "errors")
	assert.NotContains(t, out, "error   ")
}

func TestSubsetLifecycle(t *testing.T) {
	store := filepath.Join(t.TempDir(), "subsets.db")
	path := writeSubsetFile(t, "baseline.yaml", deviceInfoNodes())

	out, err := runApp(t, "--store", store, "subset", "save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes")

	out, err = runApp(t, "--store", store, "subset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "baseline.yaml")

	out, err = runApp(t, "--store", store, "subset", "show", "baseline.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Device.DeviceInfo.Manufacturer")

	_, err = runApp(t, "--store", store, "subset", "delete", "baseline.yaml")
	require.NoError(t, err)

	_, err = runApp(t, "--store", store, "subset", "show", "baseline.yaml")
	assert.ErrorIs(t, err, subset.ErrNotFound)
}
