// Package serial owns the two bridge serial connections. It exposes line
// streams and a write primitive, queues writes issued before a port is ready,
// and reconnects dropped connections on a fixed interval.
package serial

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the minimal device handle a Conn drives. Hardware ports come from
// TarmDialer; tests substitute in-memory pipes.
type Port interface {
	io.ReadWriteCloser
}

// Config holds settings for one serial connection.
type Config struct {
	Role              string // "trigger" or "display"
	Port              string // device path, e.g. /dev/ttyUSB0
	Baud              int
	ReconnectInterval time.Duration
	ReadBuffer        int // RawLine channel capacity (default 32)
}

// Dialer opens a Port for the given config.
type Dialer func(Config) (Port, error)

// TarmDialer opens a real hardware serial port.
func TarmDialer(cfg Config) (Port, error) {
	return serial.OpenPort(&serial.Config{
		Name:   cfg.Port,
		Baud:   cfg.Baud,
		Parity: serial.ParityNone,
	})
}

// RawLine is one newline-terminated line read from a connection.
type RawLine struct {
	Source string // connection role
	Text   string
	At     time.Time
}
