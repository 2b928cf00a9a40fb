// Package wsrpc implements the device capability over a JSON-RPC style
// websocket session. It is the reference transport adapter; CWMP or
// REST adapters plug in behind the same interface.
package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tr181-conform/tr181-go/pkg/device"
)

// defaultTimeout bounds one request/response exchange when the config
// carries no timeout.
const defaultTimeout = 30 * time.Second

// request is one outgoing RPC frame.
type request struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// response is one incoming RPC frame.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client is a capability adapter speaking JSON-RPC over a websocket.
// The session is strictly request/response; notifications are not
// consumed here. Client is safe for concurrent use: requests are
// serialized on the single websocket connection.
type Client struct {
	logger *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  uint64
	timeout time.Duration
}

// New creates a disconnected client.
func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, timeout: defaultTimeout}
}

// Connect dials the websocket endpoint from the config.
func (c *Client) Connect(ctx context.Context, cfg device.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.Endpoint, nil)
	if err != nil {
		return device.NewConnectionError("connect", err)
	}
	c.conn = conn
	c.logger.Info("connected to device", zap.String("endpoint", cfg.Endpoint))

	if cfg.Username != "" {
		params := map[string]any{"username": cfg.Username, "password": cfg.Password}
		if _, err := c.callLocked(ctx, "authenticate", params); err != nil {
			conn.Close()
			c.conn = nil
			return err
		}
	}
	return nil
}

// Disconnect closes the websocket session. Safe when not connected.
func (c *Client) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ListParameterNames returns every parameter path under the prefix.
func (c *Client) ListParameterNames(ctx context.Context, pathPrefix string) ([]string, error) {
	raw, err := c.call(ctx, "listParameterNames", map[string]any{"pathPrefix": pathPrefix})
	if err != nil {
		return nil, err
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		return nil, device.NewConnectionError("listParameterNames", err)
	}
	return paths, nil
}

// ReadParameterValues returns current values keyed by path.
func (c *Client) ReadParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	raw, err := c.call(ctx, "readParameterValues", map[string]any{"paths": paths})
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, device.NewConnectionError("readParameterValues", err)
	}
	return values, nil
}

// ReadParameterAttributes returns attributes keyed by path.
func (c *Client) ReadParameterAttributes(ctx context.Context, paths []string) (map[string]device.Attributes, error) {
	raw, err := c.call(ctx, "readParameterAttributes", map[string]any{"paths": paths})
	if err != nil {
		return nil, err
	}
	var attrs map[string]device.Attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, device.NewConnectionError("readParameterAttributes", err)
	}
	return attrs, nil
}

// WriteParameterValues applies the given values.
func (c *Client) WriteParameterValues(ctx context.Context, values map[string]any) error {
	_, err := c.call(ctx, "writeParameterValues", map[string]any{"values": values})
	return err
}

// SubscribeToEvent subscribes to the event path. A device refusal is
// returned as (false, nil), not as an error.
func (c *Client) SubscribeToEvent(ctx context.Context, eventPath string) (bool, error) {
	raw, err := c.call(ctx, "subscribeToEvent", map[string]any{"eventPath": eventPath})
	if err != nil {
		return false, err
	}
	var accepted bool
	if err := json.Unmarshal(raw, &accepted); err != nil {
		return false, device.NewConnectionError("subscribeToEvent", err)
	}
	return accepted, nil
}

// CallFunction invokes the function and returns its structured result.
func (c *Client) CallFunction(ctx context.Context, functionPath string, input map[string]string) (map[string]any, error) {
	raw, err := c.call(ctx, "callFunction", map[string]any{
		"functionPath": functionPath,
		"input":        input,
	})
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, device.NewConnectionError("callFunction", err)
	}
	return result, nil
}

// call performs one serialized request/response exchange.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callLocked(ctx, method, params)
}

func (c *Client) callLocked(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, device.NewConnectionError(method, device.ErrNotConnected)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.nextID++
	req := request{ID: c.nextID, Method: method, Params: params}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, device.NewConnectionError(method, err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, device.NewConnectionError(method, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, device.NewConnectionError(method, err)
	}
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return nil, device.NewConnectionError(method, err)
		}
		if resp.ID != req.ID {
			// Stale frame from an earlier timed-out call.
			c.logger.Debug("dropping stale response",
				zap.Uint64("got", resp.ID), zap.Uint64("want", req.ID))
			continue
		}
		if resp.Error != "" {
			return nil, device.NewConnectionError(method, fmt.Errorf("device error: %s", resp.Error))
		}
		return resp.Result, nil
	}
}

// Compile-time interface satisfaction check.
var _ device.Capability = (*Client)(nil)
