// Package orchestrator drives a trigger event through approval and payment to
// exactly one terminal result, dispatched to both serial channels.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dayuer/satoshi-bridge/internal/bus"
	"github.com/dayuer/satoshi-bridge/internal/collab"
	"github.com/dayuer/satoshi-bridge/internal/frame"
	"github.com/dayuer/satoshi-bridge/internal/history"
	"github.com/dayuer/satoshi-bridge/internal/serial"
)

// State is an orchestrator lifecycle state.
type State string

const (
	StateIdle       State = "Idle"
	StateCollecting State = "Collecting"
	StateEvaluating State = "Evaluating"
	StateSubmitting State = "Submitting"
	StateResolved   State = "Resolved"
)

// Terminal kinds.
const (
	Confirmed = "Confirmed"
	Rejected  = "Rejected"
	Failed    = "Failed"
)

// TerminalResult is the single authoritative outcome of a trigger event.
type TerminalResult struct {
	CorrelationID string
	Kind          string // Confirmed, Rejected or Failed
	TxHash        string // Confirmed only
	Reason        string // Rejected only
	Err           string // Failed only
}

// Approver is the approval collaborator contract.
type Approver interface {
	Evaluate(ctx context.Context, req collab.ApprovalRequest) (collab.ApprovalDecision, error)
}

// Payer is the payment collaborator contract.
type Payer interface {
	Send(ctx context.Context, req collab.PaymentRequest) (collab.PaymentOutcome, error)
}

// LineWriter writes one line to a named serial connection.
// Satisfied by *serial.Manager.
type LineWriter interface {
	Write(role, line string) error
}

// Config holds orchestrator settings.
type Config struct {
	ResolveTimeout time.Duration // full Evaluating+Submitting budget
	DisplayWidth   int           // display character budget, 0 = unlimited
}

// Orchestrator owns the single in-flight trigger event. Only its Run loop
// mutates the in-flight slot; collaborator calls run in a child goroutine and
// report back through a channel.
type Orchestrator struct {
	cfg      Config
	approver Approver
	payer    Payer
	bus      *bus.Bus
	hist     *history.Store
	disp     *Dispatcher

	trigger *frame.Framer
	display *frame.Framer

	mu       sync.Mutex
	state    State
	inflight *frame.TriggerEvent
	staged   string // emotion context staged via the HTTP surface

	injected chan *frame.TriggerEvent
	resolved chan TerminalResult
}

// New creates an orchestrator.
func New(cfg Config, approver Approver, payer Payer, writer LineWriter, evBus *bus.Bus, hist *history.Store) *Orchestrator {
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = 10 * time.Second
	}
	return &Orchestrator{
		cfg:      cfg,
		approver: approver,
		payer:    payer,
		bus:      evBus,
		hist:     hist,
		disp:     NewDispatcher(writer, cfg.DisplayWidth),
		trigger:  frame.New(),
		display:  frame.New(),
		state:    StateIdle,
		injected: make(chan *frame.TriggerEvent, 8),
		resolved: make(chan TerminalResult, 8),
	}
}

// Status reports the current state and in-flight correlation id, if any.
func (o *Orchestrator) Status() (State, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	corr := ""
	if o.inflight != nil {
		corr = o.inflight.CorrelationID
	}
	return o.state, corr
}

// StageEmotion stores an emotion context to be attached to the next trigger
// event that carries none of its own.
func (o *Orchestrator) StageEmotion(emotion string) {
	o.mu.Lock()
	o.staged = emotion
	o.mu.Unlock()
}

// Inject queues a synthetic trigger event, as if a complete block had been
// framed from the trigger connection. Used by the /simulate endpoint.
func (o *Orchestrator) Inject(ev *frame.TriggerEvent) {
	o.injected <- ev
}

// Run consumes both connections' line streams until ctx ends.
func (o *Orchestrator) Run(ctx context.Context, triggerLines, displayLines <-chan serial.RawLine) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-triggerLines:
			if !ok {
				triggerLines = nil
				continue
			}
			o.handleTriggerLine(ctx, raw)
		case raw, ok := <-displayLines:
			if !ok {
				displayLines = nil
				continue
			}
			o.handleDisplayLine(raw)
		case ev := <-o.injected:
			o.begin(ctx, ev)
		case res := <-o.resolved:
			o.finish(res)
		}
	}
}

func (o *Orchestrator) handleTriggerLine(ctx context.Context, raw serial.RawLine) {
	wasCollecting := o.trigger.Accumulating()
	cmd, err := o.trigger.Feed(raw)
	if err != nil {
		var perr *frame.ProtocolError
		if errors.As(err, &perr) {
			log.Printf("[Orchestrator] discarded block: %s", perr.Reason)
			o.bus.Publish(bus.ProtocolError(raw.Source, perr.Reason))
			if o.currentInflight() == nil {
				o.setState(StateIdle, "")
			}
		}
		return
	}

	if !wasCollecting && o.trigger.Accumulating() && o.currentInflight() == nil {
		o.setState(StateCollecting, "")
	}
	if cmd == nil {
		return
	}

	switch cmd.Kind {
	case frame.KindTrigger:
		o.begin(ctx, cmd.Trigger)
	default:
		// Device chatter (status echoes, unknown lines) is already on the bus.
	}
}

func (o *Orchestrator) handleDisplayLine(raw serial.RawLine) {
	cmd, err := o.display.Feed(raw)
	if err != nil || cmd == nil {
		return
	}
	if cmd.Kind != frame.KindRequestLatestTx {
		return
	}

	// Served from the last resolved terminal; never blocked by an in-flight
	// resolution and never an error.
	rec, ok := o.hist.Latest()
	if !ok {
		o.disp.WriteDisplay("STATUS:No transactions")
		return
	}
	o.disp.ReplayDisplay(recordTerminal(rec))
}

// begin moves a trigger event into the in-flight slot and starts resolution.
// A second event while one is outstanding is ignored.
func (o *Orchestrator) begin(ctx context.Context, ev *frame.TriggerEvent) {
	o.mu.Lock()
	if o.inflight != nil {
		o.mu.Unlock()
		log.Printf("[Orchestrator] trigger %s ignored: %s already in flight", ev.CorrelationID, o.inflight.CorrelationID)
		return
	}
	if ev.EmotionContext == "" && o.staged != "" {
		ev.EmotionContext = o.staged
		o.staged = ""
	}
	o.inflight = ev
	o.mu.Unlock()

	o.setState(StateEvaluating, ev.CorrelationID)
	log.Printf("[Orchestrator] %s: %s -> %s amount=%g", ev.CorrelationID, ev.FromAgent, ev.ToAgent, ev.Amount)
	go o.resolve(ctx, *ev)
}

// resolve runs the Evaluating+Submitting path under a single deadline and
// reports exactly one terminal result.
func (o *Orchestrator) resolve(ctx context.Context, ev frame.TriggerEvent) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ResolveTimeout)
	defer cancel()

	terminal := func(res TerminalResult) {
		res.CorrelationID = ev.CorrelationID
		select {
		case o.resolved <- res:
		case <-ctx.Done():
		}
	}

	decision, err := o.approver.Evaluate(cctx, collab.ApprovalRequest{
		FromAgent:      ev.FromAgent,
		ToAgent:        ev.ToAgent,
		Amount:         ev.Amount,
		EmotionContext: ev.EmotionContext,
	})
	if err != nil {
		terminal(TerminalResult{Kind: Failed, Err: failureText(cctx, err)})
		return
	}
	if !decision.Approved {
		terminal(TerminalResult{Kind: Rejected, Reason: decision.Reason})
		return
	}

	o.setState(StateSubmitting, ev.CorrelationID)
	outcome, err := o.payer.Send(cctx, collab.PaymentRequest{
		FromAgent: ev.FromAgent,
		ToAgent:   ev.ToAgent,
		Amount:    ev.Amount,
	})
	if err != nil {
		terminal(TerminalResult{Kind: Failed, Err: failureText(cctx, err)})
		return
	}
	if outcome.Error != "" {
		terminal(TerminalResult{Kind: Failed, Err: outcome.Error})
		return
	}
	terminal(TerminalResult{Kind: Confirmed, TxHash: outcome.TxHash})
}

// finish dispatches a terminal result. Results for anything but the current
// in-flight event are late arrivals and are discarded.
func (o *Orchestrator) finish(res TerminalResult) {
	o.mu.Lock()
	if o.inflight == nil || o.inflight.CorrelationID != res.CorrelationID {
		o.mu.Unlock()
		log.Printf("[Orchestrator] late result for %s discarded", res.CorrelationID)
		return
	}
	ev := o.inflight
	o.mu.Unlock()

	o.setState(StateResolved, res.CorrelationID)
	if err := o.disp.Dispatch(res); err != nil {
		log.Printf("[Orchestrator] dispatch %s: %v", res.CorrelationID, err)
	}
	reason := res.Reason
	if reason == "" {
		reason = res.Err
	}
	o.hist.Append(history.Record{
		CorrelationID: res.CorrelationID,
		Outcome:       outcomeTag(res.Kind),
		TxHash:        res.TxHash,
		Reason:        reason,
		FromAgent:     ev.FromAgent,
		ToAgent:       ev.ToAgent,
		Amount:        ev.Amount,
	})
	o.bus.Publish(bus.Terminal(res.CorrelationID, res.Kind))
	log.Printf("[Orchestrator] %s resolved: %s", res.CorrelationID, res.Kind)

	o.mu.Lock()
	o.inflight = nil
	o.mu.Unlock()
	o.setState(StateIdle, "")
}

func (o *Orchestrator) currentInflight() *frame.TriggerEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight
}

func (o *Orchestrator) setState(s State, correlationID string) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.bus.Publish(bus.StateChange(correlationID, string(s)))
}

// failureText collapses deadline expiry into the canonical "timeout" message.
func failureText(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

func outcomeTag(kind string) string {
	switch kind {
	case Confirmed:
		return history.OutcomeConfirmed
	case Rejected:
		return history.OutcomeRejected
	default:
		return history.OutcomeFailed
	}
}

// recordTerminal rebuilds a terminal result from a stored history record.
func recordTerminal(rec history.Record) TerminalResult {
	res := TerminalResult{CorrelationID: rec.CorrelationID}
	switch rec.Outcome {
	case history.OutcomeConfirmed:
		res.Kind = Confirmed
		res.TxHash = rec.TxHash
	case history.OutcomeRejected:
		res.Kind = Rejected
		res.Reason = rec.Reason
	default:
		res.Kind = Failed
		res.Err = rec.Reason
	}
	return res
}
