package frame

import (
	"strconv"
	"strings"

	"github.com/dayuer/satoshi-bridge/internal/serial"
)

// Protocol lines and prefixes of the trigger/display wire format.
const (
	lineTriggerPayment  = "TRIGGER_PAYMENT"
	lineEndCommand      = "END_COMMAND"
	lineClear           = "CLEAR"
	lineRequestLatestTx = "REQUEST_LATEST_TX"

	prefixTx      = "TX:"
	prefixError   = "ERROR:"
	prefixStatus  = "STATUS:"
	prefixReason  = "REASON:"
	prefixFrom    = "FROM_AGENT:"
	prefixTo      = "TO_AGENT:"
	prefixAmount  = "AMOUNT:"
	prefixEmotion = "EMOTION:"
)

// blockBuilder accumulates one TRIGGER_PAYMENT..END_COMMAND block.
type blockBuilder struct {
	from    string
	to      string
	amount  string
	emotion string
}

// Framer parses the line stream of a single connection. At most one block
// accumulator is live at a time; a TRIGGER_PAYMENT line while accumulating
// resets it (last-one-wins).
type Framer struct {
	block *blockBuilder
}

// New creates a framer.
func New() *Framer {
	return &Framer{}
}

// Accumulating reports whether a block is currently being collected.
func (f *Framer) Accumulating() bool { return f.block != nil }

// Feed consumes one raw line and returns a parsed command when the line (or
// the block it completes) yields one. A malformed block returns a
// *ProtocolError; the block is discarded and parsing continues.
func (f *Framer) Feed(raw serial.RawLine) (*Command, error) {
	line := strings.TrimSpace(raw.Text)
	if line == "" {
		return nil, nil
	}

	if line == lineTriggerPayment {
		// Starting (or restarting) a block always begins from a clean builder.
		f.block = &blockBuilder{}
		return nil, nil
	}

	if f.block != nil {
		return f.feedBlock(line)
	}

	switch {
	case line == lineClear:
		return &Command{Kind: KindClear}, nil
	case line == lineRequestLatestTx:
		return &Command{Kind: KindRequestLatestTx}, nil
	case strings.HasPrefix(line, prefixTx):
		return &Command{Kind: KindTx, Arg: line[len(prefixTx):]}, nil
	case strings.HasPrefix(line, prefixError):
		return &Command{Kind: KindError, Arg: line[len(prefixError):]}, nil
	case strings.HasPrefix(line, prefixStatus):
		return &Command{Kind: KindStatus, Arg: line[len(prefixStatus):]}, nil
	case strings.HasPrefix(line, prefixReason):
		return &Command{Kind: KindReason, Arg: line[len(prefixReason):]}, nil
	default:
		return &Command{Kind: KindUnknown, Arg: line}, nil
	}
}

func (f *Framer) feedBlock(line string) (*Command, error) {
	b := f.block
	switch {
	case line == lineEndCommand:
		f.block = nil
		return finishBlock(b)
	case strings.HasPrefix(line, prefixFrom):
		b.from = strings.TrimSpace(line[len(prefixFrom):])
	case strings.HasPrefix(line, prefixTo):
		b.to = strings.TrimSpace(line[len(prefixTo):])
	case strings.HasPrefix(line, prefixAmount):
		b.amount = strings.TrimSpace(line[len(prefixAmount):])
	case strings.HasPrefix(line, prefixEmotion):
		b.emotion = strings.TrimSpace(line[len(prefixEmotion):])
	default:
		// Unknown keys inside a block are tolerated.
	}
	return nil, nil
}

func finishBlock(b *blockBuilder) (*Command, error) {
	var missing []string
	if b.from == "" {
		missing = append(missing, "FROM_AGENT")
	}
	if b.to == "" {
		missing = append(missing, "TO_AGENT")
	}
	if b.amount == "" {
		missing = append(missing, "AMOUNT")
	}
	if len(missing) > 0 {
		return nil, &ProtocolError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	amount, err := strconv.ParseFloat(b.amount, 64)
	if err != nil || amount <= 0 {
		return nil, &ProtocolError{Reason: "invalid amount: " + b.amount}
	}

	ev := NewTriggerEvent(b.from, b.to, amount, b.emotion)
	return &Command{Kind: KindTrigger, Trigger: ev}, nil
}
