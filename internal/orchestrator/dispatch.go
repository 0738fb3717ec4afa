package orchestrator

import (
	"fmt"
	"sync"

	"github.com/dayuer/satoshi-bridge/internal/profile"
)

const statusSent = "STATUS:Transaction sent"

// Dispatcher writes a terminal result to both serial channels in the
// mandated order and exactly once per correlation id. Writes go through the
// transport's queueing writer, so a temporarily closed connection receives
// its lines after reconnecting.
type Dispatcher struct {
	writer       LineWriter
	displayWidth int

	mu         sync.Mutex
	dispatched map[string]bool
	order      []string // dedupe memory, oldest first
}

// NewDispatcher creates a dispatcher. displayWidth limits the text after the
// display line prefix; 0 means unlimited.
func NewDispatcher(writer LineWriter, displayWidth int) *Dispatcher {
	return &Dispatcher{
		writer:       writer,
		displayWidth: displayWidth,
		dispatched:   make(map[string]bool),
	}
}

// Dispatch emits the result to the trigger and display connections.
// A repeated correlation id is a no-op: dispatch is final.
func (d *Dispatcher) Dispatch(res TerminalResult) error {
	d.mu.Lock()
	if d.dispatched[res.CorrelationID] {
		d.mu.Unlock()
		return nil
	}
	d.dispatched[res.CorrelationID] = true
	d.order = append(d.order, res.CorrelationID)
	if len(d.order) > 256 {
		delete(d.dispatched, d.order[0])
		d.order = d.order[1:]
	}
	d.mu.Unlock()

	var firstErr error
	if err := d.writer.Write(profile.RoleTrigger, triggerLine(res)); err != nil {
		firstErr = err
	}
	for _, line := range d.displayLines(res) {
		if err := d.writer.Write(profile.RoleDisplay, line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReplayDisplay re-emits the display sequence of an already-dispatched
// terminal, used to answer REQUEST_LATEST_TX. Not subject to the
// exactly-once guard.
func (d *Dispatcher) ReplayDisplay(res TerminalResult) {
	for _, line := range d.displayLines(res) {
		d.writer.Write(profile.RoleDisplay, line)
	}
}

// WriteDisplay emits a single raw line on the display connection.
func (d *Dispatcher) WriteDisplay(line string) {
	d.writer.Write(profile.RoleDisplay, line)
}

// triggerLine renders the single response line for the trigger device.
func triggerLine(res TerminalResult) string {
	switch res.Kind {
	case Confirmed:
		return "TX:" + res.TxHash
	case Rejected:
		return "REJECTED"
	default:
		return "ERROR:" + res.Err
	}
}

// displayLines renders the ordered sequence for the display device.
// The TX line always precedes the STATUS line.
func (d *Dispatcher) displayLines(res TerminalResult) []string {
	switch res.Kind {
	case Confirmed:
		return []string{"TX:" + res.TxHash, statusSent}
	case Rejected:
		return []string{"STATUS:REJECTED", "REASON:" + d.fit(res.Reason)}
	default:
		return []string{"ERROR:" + d.fit(res.Err)}
	}
}

// fit truncates text to the display's character budget.
func (d *Dispatcher) fit(text string) string {
	if d.displayWidth > 0 && len(text) > d.displayWidth {
		return text[:d.displayWidth]
	}
	return text
}

// String implements fmt.Stringer for logging.
func (res TerminalResult) String() string {
	switch res.Kind {
	case Confirmed:
		return fmt.Sprintf("Confirmed(%s)", res.TxHash)
	case Rejected:
		return fmt.Sprintf("Rejected(%s)", res.Reason)
	default:
		return fmt.Sprintf("Failed(%s)", res.Err)
	}
}
