// Package compare implements the structural diff of two node
// collections. The engine never recurses into children: child sets are
// compared as declared path sets, order-insensitive. Severities are
// fixed per property and never configurable.
package compare

import (
	"reflect"
	"sort"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Compare classifies every parameter path across two sources.
//
// Each source is keyed by path, last-write-wins on duplicate paths
// (a caller error; not validated here — subset persistence is where
// duplicates are rejected). Summary totals are the raw input lengths,
// so a caller can still detect that a collapse happened.
func Compare(source1, source2 []model.Node) model.ComparisonResult {
	map1 := byPath(source1)
	map2 := byPath(source2)

	result := model.ComparisonResult{
		Summary: model.ComparisonSummary{
			TotalNodesSource1: len(source1),
			TotalNodesSource2: len(source2),
		},
	}

	for _, path := range sortedPaths(map1) {
		if _, ok := map2[path]; !ok {
			result.OnlyInSource1 = append(result.OnlyInSource1, map1[path])
		}
	}
	for _, path := range sortedPaths(map2) {
		if _, ok := map1[path]; !ok {
			result.OnlyInSource2 = append(result.OnlyInSource2, map2[path])
		}
	}

	for _, path := range sortedPaths(map1) {
		n2, ok := map2[path]
		if !ok {
			continue
		}
		result.Summary.CommonNodes++
		result.Differences = append(result.Differences, compareNodes(map1[path], n2)...)
	}

	result.Summary.DifferenceCount = len(result.Differences)
	return result
}

// compareNodes emits zero or more differences for two nodes sharing a
// path, one per differing property.
func compareNodes(n1, n2 model.Node) []model.Difference {
	var diffs []model.Difference

	add := func(prop model.Property, v1, v2 any, sev model.Severity) {
		diffs = append(diffs, model.Difference{
			Path:         n1.Path,
			Property:     prop,
			Source1Value: v1,
			Source2Value: v2,
			Severity:     sev,
		})
	}

	if n1.Type != n2.Type {
		add(model.PropertyDataType, n1.Type, n2.Type, model.SeverityError)
	}
	if n1.Access != n2.Access {
		add(model.PropertyAccess, n1.Access, n2.Access, model.SeverityWarning)
	}
	// No rule triggers when both values are nil.
	if (n1.Value != nil || n2.Value != nil) && !valueEqual(n1.Value, n2.Value) {
		add(model.PropertyValue, n1.Value, n2.Value, model.SeverityInfo)
	}
	if n1.Description != n2.Description {
		add(model.PropertyDescr, n1.Description, n2.Description, model.SeverityInfo)
	}
	if n1.IsObject != n2.IsObject {
		add(model.PropertyIsObject, n1.IsObject, n2.IsObject, model.SeverityWarning)
	}
	if n1.IsCustom != n2.IsCustom {
		add(model.PropertyIsCustom, n1.IsCustom, n2.IsCustom, model.SeverityInfo)
	}
	if !n1.Range.Equal(n2.Range) {
		add(model.PropertyValueRange, n1.Range, n2.Range, model.SeverityWarning)
	}
	if !childrenEqual(n1.Children, n2.Children) {
		add(model.PropertyChildren, n1.Children, n2.Children, model.SeverityInfo)
	}
	if !eventsEqual(n1.Events, n2.Events) {
		add(model.PropertyEvents, len(n1.Events), len(n2.Events), model.SeverityInfo)
	}
	if !functionsEqual(n1.Functions, n2.Functions) {
		add(model.PropertyFunctions, len(n1.Functions), len(n2.Functions), model.SeverityInfo)
	}

	return diffs
}

func byPath(nodes []model.Node) map[string]model.Node {
	m := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		m[n.Path] = n
	}
	return m
}

func sortedPaths(m map[string]model.Node) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// valueEqual compares loosely typed values. DeepEqual covers the
// slice/map values that turn up after YAML decoding.
func valueEqual(v1, v2 any) bool {
	return reflect.DeepEqual(v1, v2)
}

// childrenEqual compares declared child sets order-insensitively.
// A nil set is distinct from a non-nil one; two nil sets are equal.
func childrenEqual(c1, c2 []string) bool {
	if c1 == nil || c2 == nil {
		return (c1 == nil) == (c2 == nil)
	}
	if len(c1) != len(c2) {
		return false
	}
	set := make(map[string]struct{}, len(c1))
	for _, c := range c1 {
		set[c] = struct{}{}
	}
	for _, c := range c2 {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

// eventIdentity is the (name, path) identity of an event or function.
type eventIdentity struct {
	name string
	path string
}

func eventsEqual(e1, e2 []model.Event) bool {
	if len(e1) != len(e2) {
		return false
	}
	set := make(map[eventIdentity]struct{}, len(e1))
	for _, e := range e1 {
		set[eventIdentity{e.Name, e.Path}] = struct{}{}
	}
	for _, e := range e2 {
		if _, ok := set[eventIdentity{e.Name, e.Path}]; !ok {
			return false
		}
	}
	return true
}

func functionsEqual(f1, f2 []model.Function) bool {
	if len(f1) != len(f2) {
		return false
	}
	set := make(map[eventIdentity]struct{}, len(f1))
	for _, f := range f1 {
		set[eventIdentity{f.Name, f.Path}] = struct{}{}
	}
	for _, f := range f2 {
		if _, ok := set[eventIdentity{f.Name, f.Path}]; !ok {
			return false
		}
	}
	return true
}
