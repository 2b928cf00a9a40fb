// Package devicemock provides an in-memory capability implementation
// for tests and the interactive console. It can be seeded with a node
// collection and records call counts so tests can assert on fetch and
// probe behavior.
package devicemock

import (
	"context"
	"strings"
	"sync"

	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Capability is a configurable in-memory device capability.
type Capability struct {
	// Handlers are optional callbacks overriding default behavior.
	Handlers Handlers

	// SubscribeAccepted is the default subscription outcome when no
	// handler is set.
	SubscribeAccepted bool

	// CallResult is the default function call response when no handler
	// is set.
	CallResult map[string]any

	mu        sync.RWMutex
	connected bool
	nodes     map[string]model.Node
	order     []string

	// Call counters, readable via Counters.
	counters Counters
}

// Handlers holds optional overrides for capability operations.
type Handlers struct {
	// OnSubscribe is called for SubscribeToEvent when set.
	OnSubscribe func(eventPath string) (bool, error)

	// OnCall is called for CallFunction when set.
	OnCall func(functionPath string, input map[string]string) (map[string]any, error)

	// OnList is called for ListParameterNames when set.
	OnList func(pathPrefix string) ([]string, error)
}

// Counters tracks how often each operation ran.
type Counters struct {
	Connects   int
	Lists      int
	Reads      int
	Attributes int
	Writes     int
	Subscribes int
	Calls      int
}

// New creates a mock capability seeded with the given nodes.
// Subscriptions are accepted and calls return a minimal result by
// default; use Handlers to override.
func New(nodes []model.Node) *Capability {
	c := &Capability{
		SubscribeAccepted: true,
		CallResult:        map[string]any{"Status": "0"},
		nodes:             make(map[string]model.Node, len(nodes)),
	}
	for _, n := range nodes {
		if _, seen := c.nodes[n.Path]; !seen {
			c.order = append(c.order, n.Path)
		}
		c.nodes[n.Path] = n
	}
	return c
}

// Counters returns a snapshot of the call counters.
func (c *Capability) Counters() Counters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters
}

// Connected reports the connection state.
func (c *Capability) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Connect marks the capability connected.
func (c *Capability) Connect(_ context.Context, _ device.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.Connects++
	c.connected = true
	return nil
}

// Disconnect marks the capability disconnected.
func (c *Capability) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

// ListParameterNames returns seeded paths under the prefix, in seed order.
func (c *Capability) ListParameterNames(_ context.Context, pathPrefix string) ([]string, error) {
	c.mu.Lock()
	c.counters.Lists++
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, device.NewConnectionError("listParameterNames", device.ErrNotConnected)
	}
	if c.Handlers.OnList != nil {
		return c.Handlers.OnList(pathPrefix)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var paths []string
	for _, p := range c.order {
		if pathPrefix == "" || strings.HasPrefix(p, pathPrefix) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ReadParameterValues returns seeded values for known paths.
func (c *Capability) ReadParameterValues(_ context.Context, paths []string) (map[string]any, error) {
	c.mu.Lock()
	c.counters.Reads++
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, device.NewConnectionError("readParameterValues", device.ErrNotConnected)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	values := make(map[string]any)
	for _, p := range paths {
		if n, ok := c.nodes[p]; ok && n.Value != nil {
			values[p] = n.Value
		}
	}
	return values, nil
}

// ReadParameterAttributes returns seeded type/access for known paths.
func (c *Capability) ReadParameterAttributes(_ context.Context, paths []string) (map[string]device.Attributes, error) {
	c.mu.Lock()
	c.counters.Attributes++
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, device.NewConnectionError("readParameterAttributes", device.ErrNotConnected)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := make(map[string]device.Attributes)
	for _, p := range paths {
		if n, ok := c.nodes[p]; ok {
			attrs[p] = device.Attributes{Type: n.Type, Access: n.Access}
		}
	}
	return attrs, nil
}

// WriteParameterValues updates seeded values for known paths.
func (c *Capability) WriteParameterValues(_ context.Context, values map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters.Writes++

	if !c.connected {
		return device.NewConnectionError("writeParameterValues", device.ErrNotConnected)
	}
	for p, v := range values {
		if n, ok := c.nodes[p]; ok {
			n.Value = v
			c.nodes[p] = n
		}
	}
	return nil
}

// SubscribeToEvent runs the subscribe handler or the default outcome.
func (c *Capability) SubscribeToEvent(_ context.Context, eventPath string) (bool, error) {
	c.mu.Lock()
	c.counters.Subscribes++
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return false, device.NewConnectionError("subscribeToEvent", device.ErrNotConnected)
	}
	if c.Handlers.OnSubscribe != nil {
		return c.Handlers.OnSubscribe(eventPath)
	}
	return c.SubscribeAccepted, nil
}

// CallFunction runs the call handler or returns the default result.
func (c *Capability) CallFunction(_ context.Context, functionPath string, input map[string]string) (map[string]any, error) {
	c.mu.Lock()
	c.counters.Calls++
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, device.NewConnectionError("callFunction", device.ErrNotConnected)
	}
	if c.Handlers.OnCall != nil {
		return c.Handlers.OnCall(functionPath, input)
	}
	return c.CallResult, nil
}

// Compile-time interface satisfaction check.
var _ device.Capability = (*Capability)(nil)
