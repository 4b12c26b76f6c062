package daemon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/planwright/planwright/pkg/protocol"
)

// Client is the CLI side of the daemon socket.
type Client struct {
	conn    *jsonrpc2.Conn
	timeout time.Duration
}

// Dial connects to a running daemon. A connection failure usually means
// the daemon is not running; callers decide whether to fall back.
func Dial(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	var dialer net.Dialer
	netConn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", socketPath, err)
	}

	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, noopHandler{})
	return &Client{conn: conn, timeout: timeout}, nil
}

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.conn.Call(ctx, method, params, result)
}

func (c *Client) Generate(ctx context.Context, params *protocol.GenerateParams) (*protocol.GenerateResult, error) {
	var result protocol.GenerateResult
	if err := c.call(ctx, protocol.MethodGenerate, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Validate(ctx context.Context, params *protocol.ValidateParams) (*protocol.ValidateResult, error) {
	var result protocol.ValidateResult
	if err := c.call(ctx, protocol.MethodValidate, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Run(ctx context.Context, params *protocol.RunParams) (*protocol.RunResult, error) {
	var result protocol.RunResult
	if err := c.call(ctx, protocol.MethodRun, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListRuns(ctx context.Context, limit int) (*protocol.ListRunsResult, error) {
	var result protocol.ListRunsResult
	if err := c.call(ctx, protocol.MethodListRuns, &protocol.ListRunsParams{Limit: limit}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Status(ctx context.Context) (*protocol.StatusResult, error) {
	var result protocol.StatusResult
	if err := c.call(ctx, protocol.MethodStatus, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	var result map[string]string
	return c.call(ctx, protocol.MethodShutdown, struct{}{}, &result)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
