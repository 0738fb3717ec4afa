// Package bus provides best-effort fan-out of bridge events to external observers.
package bus

import "time"

// Kind classifies a bridge event.
type Kind string

const (
	KindRawLine       Kind = "raw_line"       // line read from a serial connection
	KindStateChange   Kind = "state_change"   // orchestrator state transition
	KindTransport     Kind = "transport"      // serial connection lifecycle change
	KindTerminal      Kind = "terminal"       // terminal result dispatched
	KindProtocolError Kind = "protocol_error" // malformed or incomplete command block
)

// Event is a single observable occurrence inside the bridge.
type Event struct {
	Kind          Kind      `json:"kind"`
	Source        string    `json:"source,omitempty"` // connection role or component name
	Line          string    `json:"line,omitempty"`
	State         string    `json:"state,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// RawLine builds a raw_line event for a line read from the given connection.
func RawLine(source, line string) Event {
	return Event{Kind: KindRawLine, Source: source, Line: line, Timestamp: time.Now()}
}

// StateChange builds a state_change event for an orchestrator transition.
func StateChange(correlationID, state string) Event {
	return Event{Kind: KindStateChange, CorrelationID: correlationID, State: state, Timestamp: time.Now()}
}

// Transport builds a transport event for a connection lifecycle change.
func Transport(role, state, detail string) Event {
	return Event{Kind: KindTransport, Source: role, State: state, Detail: detail, Timestamp: time.Now()}
}

// Terminal builds a terminal event for a dispatched result.
func Terminal(correlationID, detail string) Event {
	return Event{Kind: KindTerminal, CorrelationID: correlationID, Detail: detail, Timestamp: time.Now()}
}

// ProtocolError builds a protocol_error event for a discarded command block.
func ProtocolError(source, detail string) Event {
	return Event{Kind: KindProtocolError, Source: source, Detail: detail, Timestamp: time.Now()}
}
