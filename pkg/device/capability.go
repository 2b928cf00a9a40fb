// Package device defines the capability interface the conformance core
// drives, plus the error contract and the adapter registry. The core
// never performs network I/O itself; concrete transports (websocket
// RPC, CWMP, in-memory mocks) live behind the Capability interface.
package device

import (
	"context"
	"strings"
	"time"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Config holds the connection settings for a capability adapter.
type Config struct {
	// Endpoint is the transport-specific device address.
	Endpoint string

	// Username and Password are the transport credentials, if any.
	Username string
	Password string

	// Timeout bounds individual transport operations. Zero means the
	// adapter's default.
	Timeout time.Duration
}

// Attributes describes one parameter as reported by a live device.
type Attributes struct {
	// Type is the reported data type.
	Type model.DataType `json:"type"`

	// Access is the reported access level.
	Access model.Access `json:"access"`

	// Notification is the reported notification setting (0=off,
	// 1=passive, 2=active).
	Notification int `json:"notification"`
}

// Capability is the transport abstraction a device connection provides
// to the core. Every operation may block on I/O and accepts a context;
// every read/write/subscribe/call operation fails with a
// *ConnectionError when the adapter is not connected. That is the only
// error contract the core relies on.
type Capability interface {
	// Connect establishes the transport session.
	Connect(ctx context.Context, cfg Config) error

	// Disconnect tears the session down. Safe to call when not connected.
	Disconnect(ctx context.Context) error

	// ListParameterNames returns every parameter path under the prefix.
	ListParameterNames(ctx context.Context, pathPrefix string) ([]string, error)

	// ReadParameterValues returns current values keyed by path.
	ReadParameterValues(ctx context.Context, paths []string) (map[string]any, error)

	// ReadParameterAttributes returns type/access/notification keyed by path.
	ReadParameterAttributes(ctx context.Context, paths []string) (map[string]Attributes, error)

	// WriteParameterValues applies the given values.
	WriteParameterValues(ctx context.Context, values map[string]any) error

	// SubscribeToEvent subscribes to the event path. The boolean is the
	// device's acceptance of the subscription; a false return without
	// error is a clean refusal, not a transport failure.
	SubscribeToEvent(ctx context.Context, eventPath string) (bool, error)

	// CallFunction invokes the function with the given input parameters
	// and returns the structured response.
	CallFunction(ctx context.Context, functionPath string, input map[string]string) (map[string]any, error)
}

// FetchNodes builds a node collection from a live capability: one node
// per listed parameter, enriched with reported attributes. Paths the
// device lists but does not report attributes for become string-typed
// read-only nodes. Parent/child structure is derived from the listed
// path set: every path is recorded as a child of its nearest listed
// ancestor, and nodes with children are objects.
func FetchNodes(ctx context.Context, cap Capability, pathPrefix string) ([]model.Node, error) {
	if pathPrefix == "" {
		pathPrefix = model.PathRoot
	}

	paths, err := cap.ListParameterNames(ctx, pathPrefix)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	attrs, err := cap.ReadParameterAttributes(ctx, paths)
	if err != nil {
		return nil, err
	}

	nodes := make([]model.Node, 0, len(paths))
	index := make(map[string]int, len(paths))
	for _, p := range paths {
		node := model.Node{
			Path:   p,
			Name:   model.LeafName(p),
			Type:   model.DataTypeString,
			Access: model.AccessReadOnly,
		}
		if a, ok := attrs[p]; ok {
			if a.Type != "" {
				node.Type = a.Type
			}
			if a.Access != "" {
				node.Access = a.Access
			}
		}
		if node.Type.Normalized() == model.DataTypeObject {
			node.IsObject = true
		}
		index[p] = len(nodes)
		nodes = append(nodes, node)
	}

	for _, p := range paths {
		for parent := parentPath(p); parent != ""; parent = parentPath(parent) {
			i, ok := index[parent]
			if !ok {
				continue
			}
			nodes[i].Children = append(nodes[i].Children, p)
			nodes[i].IsObject = true
			break
		}
	}
	return nodes, nil
}

// parentPath strips the last path component, keeping the trailing dot:
// "Device.WiFi.SSID.1." becomes "Device.WiFi.SSID.". Empty when no
// component remains.
func parentPath(p string) string {
	trimmed := strings.TrimSuffix(p, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}
