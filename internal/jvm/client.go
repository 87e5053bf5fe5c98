// Package jvm manages the embedded Java runtime: a gateway subprocess
// started at most once per process, spoken to over JSON-RPC 2.0 with
// Content-Length framing on its stdio.
package jvm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrClientClosed is returned for calls issued after the transport closed.
var ErrClientClosed = errors.New("jvm: gateway connection closed")

// RPCError is an error response from the gateway. Data carries structured
// exception details when the failure originated inside the JVM.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

// Gateway error codes. Codes outside this set follow JSON-RPC conventions.
const (
	CodeClassNotFound = 1001
	CodeSQLException  = 1002
	CodeBadHandle     = 1003
)

// ExceptionDetails decodes the JVM-side exception info from Data, if any.
func (e *RPCError) ExceptionDetails() (class, sqlState string, vendorCode int) {
	if len(e.Data) == 0 {
		return "", "", 0
	}
	var d struct {
		ExceptionClass string `json:"exceptionClass"`
		SQLState       string `json:"sqlState"`
		VendorCode     int    `json:"vendorCode"`
	}
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return "", "", 0
	}
	return d.ExceptionClass, d.SQLState, d.VendorCode
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Client is a JSON-RPC client over a byte stream. It serializes writes,
// correlates responses by id, and is safe for concurrent callers.
type Client struct {
	writer  io.Writer
	writeMu sync.Mutex
	reader  *bufio.Reader

	nextID  atomic.Int64
	pending map[int64]chan *rpcResponse
	pendMu  sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	logger *slog.Logger
}

// NewClient wraps a reader/writer pair (the gateway's stdout/stdin) and
// starts the background read loop.
func NewClient(r io.Reader, w io.Writer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		writer:  w,
		reader:  bufio.NewReader(r),
		pending: make(map[int64]chan *rpcResponse),
		closed:  make(chan struct{}),
		logger:  logger,
	}
	go c.readLoop()
	return c
}

// Call issues one request and blocks until the response arrives, the
// context is done, or the transport closes. A done context stops the wait
// only; the in-flight gateway call itself is not cancelled.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)

	c.pendMu.Lock()
	c.pending[id] = ch
	c.pendMu.Unlock()

	if err := c.writeMessage(&rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
		return fmt.Errorf("jvm: send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		// Stop waiting and forget the call; the read loop discards the
		// late response once it arrives. The buffered channel keeps a
		// racing delivery from blocking the read loop.
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
		return ctx.Err()
	case <-c.closed:
		return ErrClientClosed
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("jvm: decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// Close tears down the transport. Pending calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if wc, ok := c.writer.(io.Closer); ok {
			c.closeErr = wc.Close()
		}
	})
	return c.closeErr
}

func (c *Client) readLoop() {
	for {
		msg, err := c.readMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				c.logger.Warn("gateway read failed", "error", err)
			}
			_ = c.Close()
			return
		}

		// Notifications (no id) carry forwarded gateway log lines.
		if msg.ID == nil {
			if msg.Method == "log" {
				c.logNotification(msg.Params)
			}
			continue
		}

		c.pendMu.Lock()
		ch, ok := c.pending[*msg.ID]
		if ok {
			delete(c.pending, *msg.ID)
		}
		c.pendMu.Unlock()

		if !ok {
			// Caller stopped waiting; drop the late response.
			c.logger.Debug("discarding response for abandoned call", "id", *msg.ID)
			continue
		}
		ch <- msg
	}
}

func (c *Client) logNotification(params json.RawMessage) {
	var entry struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &entry); err != nil {
		return
	}
	switch strings.ToLower(entry.Level) {
	case "error":
		c.logger.Error("gateway: " + entry.Message)
	case "warn", "warning":
		c.logger.Warn("gateway: " + entry.Message)
	default:
		c.logger.Debug("gateway: " + entry.Message)
	}
}

// readMessage reads one Content-Length framed JSON-RPC message.
func (c *Client) readMessage() (*rpcResponse, error) {
	var contentLength int
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if strings.HasPrefix(line, "Content-Length: ") {
			lengthStr := strings.TrimPrefix(line, "Content-Length: ")
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg rpcResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}
	return &msg, nil
}

func (c *Client) writeMessage(msg *rpcRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := c.writer.Write([]byte(header)); err != nil {
		return err
	}
	_, err = c.writer.Write(body)
	return err
}
