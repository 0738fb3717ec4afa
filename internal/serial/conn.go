package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dayuer/satoshi-bridge/internal/bus"
)

// State is a connection lifecycle state.
type State string

const (
	StateClosed  State = "Closed"
	StateOpening State = "Opening"
	StateReady   State = "Ready"
	StateClosing State = "Closing"
)

var (
	// ErrNotReady is returned by WriteNow when the port has not acknowledged open.
	ErrNotReady = errors.New("serial: connection not ready")
	// ErrClosing is returned by writes after Stop.
	ErrClosing = errors.New("serial: connection closing")
)

// Conn manages a single serial connection: open, line reads, gated writes,
// and fixed-interval reconnect. Writes issued before the Ready transition are
// queued and flushed in order once the device has acknowledged open, never
// silently dropped.
type Conn struct {
	cfg  Config
	dial Dialer
	bus  *bus.Bus

	mu      sync.Mutex
	state   State
	port    Port
	pending []string

	lines chan RawLine
	wg    sync.WaitGroup
}

// NewConn creates a connection for the given config. Start must be called
// before any lines are produced.
func NewConn(cfg Config, dial Dialer, evBus *bus.Bus) *Conn {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.ReadBuffer == 0 {
		cfg.ReadBuffer = 32
	}
	return &Conn{
		cfg:   cfg,
		dial:  dial,
		bus:   evBus,
		state: StateClosed,
		lines: make(chan RawLine, cfg.ReadBuffer),
	}
}

// Role returns the connection role.
func (c *Conn) Role() string { return c.cfg.Role }

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lines returns the stream of lines read from the device. The stream survives
// reconnects and is closed only when Start's context ends.
func (c *Conn) Lines() <-chan RawLine { return c.lines }

// Write sends one line to the device, appending the newline terminator.
// If the connection is not Ready the line is queued for the next Ready
// transition.
func (c *Conn) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateReady:
		return c.writeLocked(line)
	case StateClosing:
		return ErrClosing
	default:
		c.pending = append(c.pending, line)
		return nil
	}
}

// WriteNow sends one line only if the connection is Ready; otherwise it
// returns ErrNotReady without queueing.
func (c *Conn) WriteNow(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	return c.writeLocked(line)
}

func (c *Conn) writeLocked(line string) error {
	if _, err := io.WriteString(c.port, line+"\n"); err != nil {
		return fmt.Errorf("serial: write %s: %w", c.cfg.Role, err)
	}
	return nil
}

// Start runs the connect/read/reconnect loop until ctx is cancelled.
// It returns immediately; Wait blocks until the loop has exited.
func (c *Conn) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.lines)
		c.run(ctx)
	}()
}

// Wait blocks until the connection loop has fully stopped.
func (c *Conn) Wait() { c.wg.Wait() }

func (c *Conn) run(ctx context.Context) {
	for {
		c.setState(StateOpening, "")

		port, err := c.dial(c.cfg)
		if err != nil {
			c.setState(StateClosed, err.Error())
			log.Printf("[Serial] %s open failed: %v", c.cfg.Role, err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		// Ready is only entered once the device handle is live; flush any
		// writes that arrived while the port was down.
		c.mu.Lock()
		c.port = port
		c.state = StateReady
		queued := c.pending
		c.pending = nil
		var flushErr error
		for _, line := range queued {
			if flushErr = c.writeLocked(line); flushErr != nil {
				break
			}
		}
		c.mu.Unlock()
		c.publishState(StateReady, "")
		log.Printf("[Serial] %s ready on %s", c.cfg.Role, c.cfg.Port)
		if flushErr != nil {
			log.Printf("[Serial] %s flush failed: %v", c.cfg.Role, flushErr)
		}

		// Close the port when ctx ends so the blocked read returns.
		stop := context.AfterFunc(ctx, func() { port.Close() })
		readErr := c.readLines(ctx, port)
		stop()

		c.mu.Lock()
		c.port = nil
		c.state = StateClosed
		c.mu.Unlock()
		port.Close()

		if ctx.Err() != nil {
			c.publishState(StateClosing, "")
			return
		}
		detail := ""
		if readErr != nil {
			detail = readErr.Error()
		}
		c.publishState(StateClosed, detail)
		log.Printf("[Serial] %s closed (%v), reconnecting in %s", c.cfg.Role, readErr, c.cfg.ReconnectInterval)
		if !c.sleep(ctx) {
			return
		}
	}
}

// readLines reads newline-terminated lines until the port errors or closes.
func (c *Conn) readLines(ctx context.Context, port Port) error {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		raw := RawLine{Source: c.cfg.Role, Text: text, At: time.Now()}
		c.bus.Publish(bus.RawLine(raw.Source, raw.Text))
		select {
		case c.lines <- raw:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (c *Conn) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.ReconnectInterval):
		return true
	}
}

func (c *Conn) setState(s State, detail string) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.publishState(s, detail)
}

func (c *Conn) publishState(s State, detail string) {
	c.bus.Publish(bus.Transport(c.cfg.Role, string(s), detail))
}
