package catalog

import (
	"strings"
	"testing"

	"github.com/tr181-conform/tr181-go/pkg/model"
	"github.com/tr181-conform/tr181-go/pkg/validate"
)

func TestAvailable(t *testing.T) {
	names, err := Available()
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	want := []string{"deviceinfo", "managementserver"}
	if len(names) != len(want) {
		t.Fatalf("Available() = %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("Available()[%d] = %q, want %q", i, names[i], n)
		}
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("nope"); err == nil {
		t.Error("Load(nope) should fail")
	}
}

func TestLoadCached(t *testing.T) {
	first, err := Load("deviceinfo")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	second, err := Load("deviceinfo")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if first != second {
		t.Error("Load() should return the cached instance")
	}
}

// Every embedded baseline must itself pass validation cleanly.
func TestBaselinesAreValid(t *testing.T) {
	names, err := Available()
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", name, err)
			}
			if len(s.Nodes) == 0 {
				t.Fatal("baseline has no nodes")
			}

			for _, nv := range validate.ValidateNodes(s.Nodes) {
				for _, msg := range nv.Result.Errors {
					t.Errorf("%s: %s", nv.Path, msg)
				}
			}
		})
	}
}

// Children entries are full paths, and every declared child must be a
// node of the same baseline, so comparing a compliant device against a
// baseline cannot report missing children.
func TestBaselineChildrenResolve(t *testing.T) {
	names, err := Available()
	if err != nil {
		t.Fatalf("Available() error: %v", err)
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load(%q) error: %v", name, err)
			}

			paths := make(map[string]bool, len(s.Nodes))
			for _, n := range s.Nodes {
				paths[n.Path] = true
			}
			for _, n := range s.Nodes {
				for _, child := range n.Children {
					if !strings.HasPrefix(child, n.Path) {
						t.Errorf("%s: child %q is not a full path under its parent", n.Path, child)
					}
					if !paths[child] {
						t.Errorf("%s: child %q has no node in the baseline", n.Path, child)
					}
				}
			}
		})
	}
}

func TestDeviceInfoContracts(t *testing.T) {
	s, err := Load("deviceinfo")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	var root *model.Node
	for i := range s.Nodes {
		if s.Nodes[i].Path == "Device." {
			root = &s.Nodes[i]
		}
	}
	if root == nil {
		t.Fatal("missing Device. root node")
	}
	if len(root.Events) != 1 || root.Events[0].Path != "Device.Boot!" {
		t.Errorf("unexpected events: %+v", root.Events)
	}
	if len(root.Functions) != 1 || root.Functions[0].Path != "Device.Reboot()" {
		t.Errorf("unexpected functions: %+v", root.Functions)
	}
}
