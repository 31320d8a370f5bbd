// Package mcp implements the line-delimited JSON-RPC transport spoken
// by supervised tool-server subprocesses over stdio: an initialization
// handshake, list_tools, call_tool, and cancellation, using a
// read-line-decode-dispatch loop over stdin/stdout pipes.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"autonomy-core/internal/apperr"
	"autonomy-core/internal/store"
)

// request is one line-delimited JSON-RPC request.
type request struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// response is one line-delimited JSON-RPC response.
type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client speaks the protocol over a subprocess's stdin/stdout pipes.
// One Client per ToolServer; calls on the same client are serialized by
// mu, giving the per-(server,tool) FIFO ordering §4.4 requires (a
// single server has a single stdio pipe, so ordering falls out of
// serializing writes to it).
type Client struct {
	name string

	mu      sync.Mutex
	writer  io.Writer
	reader  *bufio.Scanner
	nextID  int64
	pending map[int64]chan response
}

// NewClient wraps a running subprocess's stdio pipes. It does not
// perform the handshake; call Handshake explicitly.
func NewClient(name string, stdin io.Writer, stdout io.Reader) *Client {
	c := &Client{
		name:    name,
		writer:  stdin,
		reader:  bufio.NewScanner(stdout),
		pending: make(map[int64]chan response),
	}
	c.reader.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return c
}

// Listen reads response lines until stdout closes or ctx is cancelled,
// dispatching each to its waiting caller. Run this in its own
// goroutine; it returns when the underlying pipe is done.
func (c *Client) Listen(ctx context.Context) {
	for c.reader.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var resp response
		if err := json.Unmarshal(c.reader.Bytes(), &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	req := request{ID: id, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	_, writeErr := c.writer.Write(append(line, '\n'))
	c.mu.Unlock()
	if writeErr != nil {
		return nil, apperr.Transient("", fmt.Sprintf("write to %s: %v", c.name, writeErr), writeErr)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, apperr.Domain("", resp.Error.Message, fmt.Sprintf("%s rpc error %d: %s", c.name, resp.Error.Code, resp.Error.Message), nil)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, apperr.Transient("", fmt.Sprintf("%s call %s timed out", c.name, method), ctx.Err())
	}
}

// Handshake performs the initialization + list_tools sequence required
// before a server transitions to running.
func (c *Client) Handshake(ctx context.Context) ([]store.ToolSchema, error) {
	if _, err := c.call(ctx, "initialize", nil); err != nil {
		return nil, err
	}
	return c.ListTools(ctx)
}

// ListTools re-enumerates the server's advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]store.ToolSchema, error) {
	raw, err := c.call(ctx, "list_tools", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"input_schema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.Domain("", "malformed tool list", fmt.Sprintf("unmarshal list_tools result from %s: %v", c.name, err), err)
	}
	schemas := make([]store.ToolSchema, 0, len(result.Tools))
	for _, t := range result.Tools {
		schemas = append(schemas, store.ToolSchema{
			ServerName:  c.name,
			ToolName:    t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return schemas, nil
}

// CallTool invokes one tool by name.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	raw, err := c.call(ctx, "call_tool", map[string]any{"tool": tool, "args": args})
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, apperr.Domain("", "malformed tool result", fmt.Sprintf("unmarshal call_tool result from %s: %v", c.name, err), err)
		}
	}
	return result, nil
}

// Cancel sends a best-effort cancellation notification for the
// in-flight call, used when a caller's deadline expires.
func (c *Client) Cancel(ctx context.Context) error {
	_, err := c.call(ctx, "cancel", nil)
	return err
}
