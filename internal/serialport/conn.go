package serialport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrWriteFailed is returned when the port accepts fewer bytes than sent.
var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// ErrNoReply is returned when a query times out or reaches end-of-stream
// before any reply arrives.
var ErrNoReply = errors.New("no reply from instrument")

// errReadTimeout marks an empty read. go.bug.st/serial reports an expired
// read timeout as (0, nil), which bufio would otherwise retry.
var errReadTimeout = errors.New("serial read timed out")

type timeoutReader struct {
	port SerialPorter
}

func (r timeoutReader) Read(p []byte) (int, error) {
	n, err := r.port.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, errReadTimeout
	}
	return n, err
}

// LineConn sends terminated text commands and reads terminated replies.
// It serializes access so a query's write and read are never interleaved
// with another caller's.
type LineConn struct {
	mu     sync.Mutex
	port   SerialPorter
	r      *bufio.Reader
	term   string
	replyT byte
}

// NewLineConn wraps port. Commands are suffixed with term; replies are
// read up to the last byte of term.
func NewLineConn(port SerialPorter, term string) *LineConn {
	if term == "" {
		term = "\n"
	}
	return &LineConn{
		port:   port,
		r:      bufio.NewReader(timeoutReader{port: port}),
		term:   term,
		replyT: term[len(term)-1],
	}
}

// Command writes cmd followed by the terminator.
func (c *LineConn) Command(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, cmd)
}

// Query writes cmd and returns the reply line with surrounding whitespace
// removed.
func (c *LineConn) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(ctx, cmd); err != nil {
		return "", err
	}
	line, err := c.r.ReadString(c.replyT)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, errReadTimeout) {
			return "", fmt.Errorf("read reply to %q: %w", cmd, err)
		}
		if strings.TrimSpace(line) == "" {
			return "", fmt.Errorf("%q: %w", cmd, ErrNoReply)
		}
	}
	return strings.TrimSpace(line), nil
}

func (c *LineConn) write(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasSuffix(cmd, c.term) {
		cmd += c.term
	}
	n, err := c.port.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("write %q: %w", strings.TrimSpace(cmd), err)
	}
	if n != len(cmd) {
		return ErrWriteFailed
	}
	return nil
}

// Close closes the underlying port.
func (c *LineConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}
