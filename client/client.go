// Package client speaks the relay protocol from the client side:
// newline-terminated lines out, length-prefixed frames in.
package client

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	log    *slog.Logger
	mu     sync.Mutex
}

func Dial(ctx context.Context, address string, log *slog.Logger) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", address, err)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		log:    log.With("local", conn.LocalAddr().String()),
	}, nil
}

// Send writes one line. Embedded newlines split it into several messages.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.conn, strings.TrimSuffix(line, "\n")+"\n"); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Receive reads the next frame and returns its body.
// A zero timeout waits forever. A timeout in the middle of a frame desynchronizes the stream.
func (c *Client) Receive(timeout time.Duration) ([]byte, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	frame, err := domain.ReadFrame(c.reader)
	if err != nil {
		return nil, err
	}
	return frame.Body()
}

// Listen hands every received body to handler until the server closes the
// connection or ctx is canceled, both ending with a nil error.
func (c *Client) Listen(ctx context.Context, handler func(body []byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		body, err := c.Receive(0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receive failed: %w", err)
		}
		c.log.Debug("Frame received", "bytes", len(body))
		handler(body)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
