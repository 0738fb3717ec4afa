// Package frame turns raw serial lines into typed commands. All downstream
// code matches on Command.Kind; nothing outside this package inspects raw
// line prefixes.
package frame

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a parsed command variant.
type Kind string

const (
	KindTx              Kind = "tx"                // TX:<hash>
	KindError           Kind = "error"             // ERROR:<text>
	KindStatus          Kind = "status"            // STATUS:<text>
	KindReason          Kind = "reason"            // REASON:<text>
	KindClear           Kind = "clear"             // CLEAR
	KindRequestLatestTx Kind = "request_latest_tx" // REQUEST_LATEST_TX
	KindTrigger         Kind = "trigger"           // completed TRIGGER_PAYMENT block
	KindUnknown         Kind = "unknown"           // anything else
)

// Command is one parsed directive from a serial connection.
type Command struct {
	Kind    Kind
	Arg     string        // payload after the prefix, when the variant has one
	Trigger *TriggerEvent // set only for KindTrigger
}

// TriggerEvent is one parsed payment request from the trigger device.
type TriggerEvent struct {
	CorrelationID  string
	FromAgent      string
	ToAgent        string
	Amount         float64
	EmotionContext string
	At             time.Time
}

// NewTriggerEvent builds a trigger event with a fresh correlation id.
// Used by the framer and by the /simulate endpoint.
func NewTriggerEvent(from, to string, amount float64, emotion string) *TriggerEvent {
	return &TriggerEvent{
		CorrelationID:  uuid.NewString(),
		FromAgent:      from,
		ToAgent:        to,
		Amount:         amount,
		EmotionContext: emotion,
		At:             time.Now(),
	}
}

// ProtocolError reports a malformed or incomplete command block.
// Non-fatal: the block is discarded and no command is emitted.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}
