// Package table is the orchestrator facade for a deliberation session.
// It composes the session state repository, transcript, trust ledger,
// protocol state machine, negotiation manager, interaction graph,
// router, and consensus engine behind high-level protocol actions.
//
// Every Table method re-reads persisted state at entry, so independent
// short-lived processes sharing a session directory observe each
// other's actions. In-memory indexes (graph, negotiations) are rebuilt
// from the transcript when a Table is constructed.
package table

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/tribunal/internal/config"
	"github.com/Iron-Ham/tribunal/internal/consensus"
	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/event"
	"github.com/Iron-Ham/tribunal/internal/filelock"
	"github.com/Iron-Ham/tribunal/internal/fsm"
	"github.com/Iron-Ham/tribunal/internal/interaction"
	"github.com/Iron-Ham/tribunal/internal/logging"
	"github.com/Iron-Ham/tribunal/internal/negotiation"
	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/router"
	"github.com/Iron-Ham/tribunal/internal/state"
	"github.com/Iron-Ham/tribunal/internal/strategy"
	"github.com/Iron-Ham/tribunal/internal/transcript"
	"github.com/Iron-Ham/tribunal/internal/trust"
)

// tableSubdir is the directory under the session root holding the
// state file, transcript, and round directories. The trust ledger and
// debug log live beside it so they survive Reset.
const tableSubdir = "table"

// Message types whose thread roots open a negotiation.
var negotiationRoots = map[protocol.MessageType]bool{
	protocol.MessagePlan:            true,
	protocol.MessageImplementation:  true,
	protocol.MessageCounterProposal: true,
	protocol.MessageAmendment:       true,
}

// Table coordinates one deliberation session rooted at a directory.
type Table struct {
	dir       string
	cfg       *config.Config
	state     *state.Store
	log       *transcript.Store
	trust     *trust.Ledger
	machine   *fsm.Machine
	bus       *event.Bus
	graph     *interaction.Graph
	negs      *negotiation.Manager
	router    *router.Router
	votes     *consensus.Engine
	strategy  strategy.Strategy
	roles     *protocol.Registry
	validator *MessageValidator
	context   *ContextBuilder
	logger    *logging.Logger
	lock      *filelock.Lock
}

// New creates a Table over the session directory. A nil config uses
// defaults. If a session already exists on disk, the protocol machine
// and in-memory indexes are rehydrated from it.
func New(dir string, cfg *config.Config) (*Table, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	strat, err := strategy.Get(cfg.Table.Strategy)
	if err != nil {
		return nil, err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(dir, cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("table: open logger: %w", err)
		}
	}

	// Protocol commands are short-lived processes sharing the session
	// directory; the advisory lock serializes them.
	lock, err := filelock.Acquire(dir, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	roles := protocol.NewRegistry()
	t := &Table{
		dir:     dir,
		cfg:     cfg,
		state:   state.NewStore(dir),
		log:     transcript.NewStore(filepath.Join(dir, tableSubdir)),
		trust:   trust.NewLedger(dir),
		machine: fsm.NewProtocolMachine(),
		bus:     event.NewBus(),
		graph:   interaction.NewGraph(),
		negs:    negotiation.NewManager(cfg.Negotiation.MaxRounds),
		router:  router.New(),
		votes: consensus.NewEngine(
			consensus.WithMode(consensus.Mode(cfg.Consensus.Mode)),
			consensus.WithMinVoters(cfg.Consensus.MinVoters),
			consensus.WithArbiterWeight(cfg.Consensus.ArbiterWeight),
		),
		strategy:  strat,
		roles:     roles,
		validator: NewMessageValidator(roles, false),
		logger:    logger,
		lock:      lock,
	}
	t.context = NewContextBuilder(t.state, t.log, t.trust, t.negs, t.graph)

	t.negs.OnDeadlock(func(n *negotiation.Negotiation) {
		t.bus.Publish(event.NewDeadlockDetectedEvent(n.ThreadID, n.RoundCount()))
	})
	t.negs.OnEscalate(func(n *negotiation.Negotiation) {
		t.bus.Publish(event.NewNegotiationEscalatedEvent(n.ThreadID, n.RoundCount()))
	})

	if err := t.rehydrate(); err != nil {
		_ = lock.Release()
		_ = logger.Close()
		return nil, err
	}
	return t, nil
}

// rehydrate restores the machine and in-memory indexes from disk.
// Missing session data is not an error; the Table simply starts fresh.
func (t *Table) rehydrate() error {
	st, err := t.state.Load()
	if err != nil {
		if errors.Is(err, errors.ErrInactiveSession) {
			return nil
		}
		return err
	}
	if err := ValidateState(st); err != nil {
		return fmt.Errorf("table: persisted state invalid: %w", err)
	}

	records := make([]fsm.Record, len(st.StateHistory))
	for i, tr := range st.StateHistory {
		records[i] = fsm.Record{From: tr.From, To: tr.To, Event: tr.Event, Timestamp: tr.Timestamp}
	}
	t.machine.RestoreHistory(records)
	t.machine.SetCurrent(st.CurrentPhase)

	msgs, err := t.log.All()
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		t.index(msg)
		if msg.Type == protocol.MessageVote && msg.Round == st.CurrentRound {
			if err := t.recordVote(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordVote registers a vote message with the consensus engine. When
// trust weighting is on, the voter's ledger weight multiplies the
// structural weight, so the arbiter multiplier stays its own knob.
func (t *Table) recordVote(msg protocol.Message) error {
	v := t.votes.VoteFromMessage(msg)
	if t.cfg.Trust.Enabled && t.cfg.Trust.WeightVotes {
		w, err := t.trust.Weight(msg.Sender)
		if err != nil {
			return err
		}
		v.Weight *= w
		t.votes.AddVote(v)
	}
	return nil
}

// index registers a message in the interaction graph and negotiation
// manager. Deadlock callbacks are suppressed by the manager's own
// fire-once bookkeeping even across rehydrations within one process.
func (t *Table) index(msg protocol.Message) {
	t.graph.Record(msg)
	if msg.IsThreadRoot() {
		if negotiationRoots[msg.Type] {
			t.negs.Start(msg, "")
		}
		return
	}
	t.negs.ProcessResponse(msg)
}

// Close releases the session lock and the debug log.
func (t *Table) Close() error {
	if err := t.lock.Release(); err != nil {
		_ = t.logger.Close()
		return err
	}
	return t.logger.Close()
}

// Dir returns the session root directory.
func (t *Table) Dir() string { return t.dir }

// Bus exposes the lifecycle event bus for subscribers.
func (t *Table) Bus() *event.Bus { return t.bus }

// Trust exposes the trust ledger.
func (t *Table) Trust() *trust.Ledger { return t.trust }

// Consensus exposes the vote engine.
func (t *Table) Consensus() *consensus.Engine { return t.votes }

// Negotiations exposes the negotiation manager.
func (t *Table) Negotiations() *negotiation.Manager { return t.negs }

// Graph exposes the interaction graph.
func (t *Table) Graph() *interaction.Graph { return t.graph }

// Router exposes the message router for custom rules.
func (t *Table) Router() *router.Router { return t.router }

// Roles exposes the role registry.
func (t *Table) Roles() *protocol.Registry { return t.roles }

// Strategy returns the active deliberation strategy.
func (t *Table) Strategy() strategy.Strategy { return t.strategy }

// SetStrategy switches the deliberation strategy by name.
func (t *Table) SetStrategy(name string) error {
	s, err := strategy.Get(name)
	if err != nil {
		return err
	}
	t.strategy = s
	return nil
}

// SetStrict toggles strict message validation, where role and phase
// mismatches become hard errors instead of warnings.
func (t *Table) SetStrict(strict bool) {
	t.validator = NewMessageValidator(t.roles, strict)
}

// Initialize starts a new session for the given task. Fails with
// ErrSessionExists if one is already present.
func (t *Table) Initialize(task string) (*state.State, error) {
	st, err := t.state.Initialize(task, state.SessionConfig{
		MaxRounds:        t.cfg.Table.MaxRounds,
		RequireUnanimous: t.cfg.Table.RequireUnanimous,
		AutoEscalate:     t.cfg.Table.AutoEscalate,
		Strategy:         t.strategy.Name(),
	})
	if err != nil {
		return nil, err
	}
	t.machine = fsm.NewProtocolMachine()
	t.logger.Info("session initialized", "task", task, "strategy", t.strategy.Name())
	t.bus.Publish(event.NewSessionInitializedEvent(task))
	return st, nil
}

// IsActive reports whether an active session exists on disk.
func (t *Table) IsActive() bool {
	st, err := t.state.Load()
	return err == nil && st.Active
}

// State returns the persisted session state.
func (t *Table) State() (*state.State, error) {
	return t.state.Load()
}

func (t *Table) activeState() (*state.State, error) {
	st, err := t.state.Load()
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, errors.ErrInactiveSession
	}
	return st, nil
}

// NewRound begins the next deliberation round. Votes from the previous
// round are cleared. When the round budget is already spent the session
// is finalized with outcome max_rounds_reached and the call fails.
func (t *Table) NewRound() (*state.State, error) {
	st, err := t.state.NewRound()
	if err != nil {
		if errors.Is(err, errors.ErrRoundLimit) {
			t.machine.ForceState(protocol.StateFinalized)
			if fin, lerr := t.state.Load(); lerr == nil {
				t.bus.Publish(event.NewSessionFinalizedEvent(fin.Task, fin.Outcome))
			}
			t.logger.Warn("round budget exhausted; session finalized")
		}
		return nil, err
	}
	t.votes.Clear()
	t.machine.SetCurrent(string(protocol.PhasePlan))
	t.logger.Info("round started", "round", st.CurrentRound)
	t.bus.Publish(event.NewRoundStartedEvent(st.CurrentRound))
	return st, nil
}

// SendMessage validates, routes, persists, and indexes a message. The
// round and phase default to the session's current values, and an empty
// recipient is resolved through the router. Validation warnings are
// logged; errors reject the message before anything is persisted.
func (t *Table) SendMessage(msg protocol.Message) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}

	if msg.Round == 0 {
		msg.Round = st.CurrentRound
	}
	if msg.Phase == "" && protocol.ValidPhase(protocol.Phase(st.CurrentPhase)) {
		msg.Phase = protocol.Phase(st.CurrentPhase)
	}

	rstate := router.State{
		Phase:        protocol.Phase(st.CurrentPhase),
		AutoEscalate: st.Config.AutoEscalate,
		Round:        st.CurrentRound,
	}
	if msg.Recipient == "" {
		msg.Recipient = t.router.Resolve(msg, rstate)
	}

	errsFound, warnings := t.validator.ValidateDetailed(msg, st)
	for _, w := range warnings {
		t.logger.Warn("message validation warning", "warning", w, "type", string(msg.Type))
	}
	if len(errsFound) > 0 {
		return protocol.Message{}, errors.NewValidationError(errsFound, warnings)
	}

	if err := t.log.Append(msg); err != nil {
		return protocol.Message{}, err
	}
	if _, err := t.state.IncrementMessages(); err != nil {
		return protocol.Message{}, err
	}
	if err := t.state.BumpAgentStat(msg.Sender, "messages_sent", 1); err != nil {
		return protocol.Message{}, err
	}
	if err := t.state.BumpAgentStat(msg.Recipient, "messages_received", 1); err != nil {
		return protocol.Message{}, err
	}

	wasDeadlocked := false
	if n, ok := t.negs.ForThread(msg.ThreadID); ok {
		wasDeadlocked = n.Status == negotiation.StatusDeadlocked
	}
	t.index(msg)
	if n, ok := t.negs.ForThread(msg.ThreadID); ok && !wasDeadlocked && n.Status == negotiation.StatusDeadlocked {
		if _, err := t.state.IncrementDeadlocks(); err != nil {
			return protocol.Message{}, err
		}
	}

	t.logger.Debug("message sent",
		"sender", msg.Sender, "recipient", msg.Recipient,
		"type", string(msg.Type), "round", msg.Round)
	t.bus.Publish(event.NewMessageSentEvent(msg))
	return msg, nil
}

// trigger fires a protocol machine event, persists the transition, and
// mirrors the new state into the session phase.
func (t *Table) trigger(eventName string, st *state.State) error {
	prev := t.machine.Current()
	next, err := t.machine.Trigger(eventName, fsm.Context{
		AutoEscalate: st.Config.AutoEscalate,
		Round:        st.CurrentRound,
	})
	if err != nil {
		return err
	}
	if err := t.state.RecordTransition(state.Transition{
		From: prev, To: next, Event: eventName, Timestamp: time.Now().UTC(),
	}); err != nil {
		return err
	}
	if next != prev {
		if _, err := t.state.SetPhase(next); err != nil {
			return err
		}
		t.bus.Publish(event.NewPhaseChangedEvent(prev, next, eventName))
	}
	return nil
}

// SubmitPlan records the doer's implementation plan for critic review.
func (t *Table) SubmitPlan(content string) (protocol.Message, error) {
	if _, err := t.activeState(); err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleDoer, protocol.RoleCritic, protocol.MessagePlan, content)
	msg.Phase = protocol.PhasePlan
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}
	t.bus.Publish(event.NewMessageEvent(event.TypePlanSubmitted, sent))
	return sent, nil
}

// SubmitCritique records the critic's verdict on the current plan. An
// approved critique advances the machine to implement; a rejection
// either loops back for revision or escalates to the arbiter, as the
// active strategy decides.
func (t *Table) SubmitCritique(content string, approved bool) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageCritique, content).
		WithApproved(approved)
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}
	t.bus.Publish(event.NewMessageEvent(event.TypeCritiqueSubmitted, sent))

	if approved {
		if err := t.trigger(fsm.EventPlanApproved, st); err != nil {
			return sent, err
		}
		return sent, nil
	}

	if t.strategy.ShouldEscalate(t.strategyState(st), approved) {
		if _, err := t.Escalate(strategy.EscalationReason(approved)); err != nil {
			return sent, err
		}
		return sent, nil
	}
	// Self-loop: the doer revises the plan without arbiter involvement.
	noEscalate := *st
	noEscalate.Config.AutoEscalate = false
	if err := t.trigger(fsm.EventPlanRejected, &noEscalate); err != nil {
		return sent, err
	}
	return sent, nil
}

// SubmitImplementation records the doer's completed work and moves the
// session into the implement phase if it is not already there.
func (t *Table) SubmitImplementation(notes string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleDoer, protocol.RoleCritic, protocol.MessageImplementation, notes)
	msg.Phase = protocol.PhaseImplement
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	if t.machine.Current() == string(protocol.PhasePlan) {
		// Plan approval was skipped; move the machine along anyway.
		if next, ok := t.machine.TryTrigger(fsm.EventPlanApproved, fsm.Context{Round: st.CurrentRound}); ok {
			if err := t.state.RecordTransition(state.Transition{
				From: string(protocol.PhasePlan), To: next,
				Event: fsm.EventPlanApproved, Timestamp: time.Now().UTC(),
			}); err != nil {
				return sent, err
			}
			t.bus.Publish(event.NewPhaseChangedEvent(string(protocol.PhasePlan), next, fsm.EventPlanApproved))
		}
	}
	if st.CurrentPhase != string(protocol.PhaseImplement) {
		if _, err := t.state.SetPhase(string(protocol.PhaseImplement)); err != nil {
			return sent, err
		}
	}
	t.bus.Publish(event.NewMessageEvent(event.TypeImplementationSubmitted, sent))
	return sent, nil
}

// SubmitReview records the critic's verdict on the implementation.
// Approval advances to the arbiter sign-off phase; rejection loops or
// escalates per the active strategy.
func (t *Table) SubmitReview(content string, approved bool) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageReview, content).
		WithApproved(approved)
	msg.Phase = protocol.PhaseImplement
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}
	t.bus.Publish(event.NewMessageEvent(event.TypeReviewSubmitted, sent))

	if approved {
		if err := t.trigger(fsm.EventReviewApproved, st); err != nil {
			return sent, err
		}
		return sent, nil
	}

	if t.strategy.ShouldEscalate(t.strategyState(st), approved) {
		if _, err := t.Escalate(strategy.EscalationReason(approved)); err != nil {
			return sent, err
		}
		return sent, nil
	}
	noEscalate := *st
	noEscalate.Config.AutoEscalate = false
	if err := t.trigger(fsm.EventReviewRejected, &noEscalate); err != nil {
		return sent, err
	}
	return sent, nil
}

// Escalate hands the current disagreement to the arbiter. The critic
// is charged with the escalation in the trust ledger.
func (t *Table) Escalate(reason string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	if reason == "" {
		reason = "Escalated for arbiter decision."
	}

	if t.machine.Current() != string(protocol.PhaseResolve) {
		prev := t.machine.Current()
		fired := fsm.EventEscalated
		next, ok := t.machine.TryTrigger(fsm.EventEscalated, fsm.Context{Round: st.CurrentRound})
		if !ok {
			fired = fsm.EventForceEscalate
			next, ok = t.machine.TryTrigger(fsm.EventForceEscalate, fsm.Context{Round: st.CurrentRound})
		}
		if ok {
			if err := t.state.RecordTransition(state.Transition{
				From: prev, To: next, Event: fired, Timestamp: time.Now().UTC(),
			}); err != nil {
				return protocol.Message{}, err
			}
			t.bus.Publish(event.NewPhaseChangedEvent(prev, next, fired))
		}
	}
	if _, err := t.state.SetPhase(string(protocol.PhaseResolve)); err != nil {
		return protocol.Message{}, err
	}
	if _, err := t.state.IncrementEscalations(); err != nil {
		return protocol.Message{}, err
	}

	msg := protocol.New(protocol.RoleDoer, protocol.RoleArbiter, protocol.MessageEscalation, reason)
	msg.Phase = protocol.PhaseResolve
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	if _, err := t.trust.RecordEvent(protocol.RoleCritic, trust.EventEscalation, false, reason); err != nil {
		return sent, err
	}
	t.logger.Info("escalated to arbiter", "reason", reason)
	t.bus.Publish(event.NewMessageEvent(event.TypeEscalationRaised, sent))
	return sent, nil
}

// SubmitDecision records the arbiter's binding ruling and moves the
// session to the approval phase. Siding with one agent marks the other
// agent's position as overridden in the trust ledger.
func (t *Table) SubmitDecision(content, sideWith string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleArbiter, protocol.RoleDoer, protocol.MessageDecision, content).
		WithMetadata(protocol.MetaSideWith, sideWith)
	msg.Phase = protocol.PhaseResolve
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	if err := t.trigger(fsm.EventDecisionMade, st); err != nil {
		return sent, err
	}

	switch sideWith {
	case protocol.RoleDoer:
		if _, err := t.trust.RecordEvent(protocol.RoleCritic, trust.EventDecision, false, "arbiter sided with doer"); err != nil {
			return sent, err
		}
	case protocol.RoleCritic:
		if _, err := t.trust.RecordEvent(protocol.RoleDoer, trust.EventDecision, false, "arbiter sided with critic"); err != nil {
			return sent, err
		}
	}
	t.bus.Publish(event.NewMessageEvent(event.TypeDecisionMade, sent))
	return sent, nil
}

// RestartPlanning records an arbiter ruling that sends the round back
// to the planning phase instead of forward to approval.
func (t *Table) RestartPlanning(content string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleArbiter, protocol.RoleDoer, protocol.MessageDecision, content)
	msg.Phase = protocol.PhaseResolve
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}
	if err := t.trigger(fsm.EventDecisionRestart, st); err != nil {
		return sent, err
	}
	t.bus.Publish(event.NewMessageEvent(event.TypeDecisionMade, sent))
	return sent, nil
}

// SubmitApproval records the arbiter's final sign-off, retires the
// round as approved, and finalizes the session.
func (t *Table) SubmitApproval(notes string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	if notes == "" {
		notes = "Approved. Proceed with implementation."
	}
	msg := protocol.New(protocol.RoleArbiter, protocol.RoleDoer, protocol.MessageApproval, notes).
		WithApproved(true)
	msg.Phase = protocol.PhaseApprove
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	prev := t.machine.Current()
	next, merr := t.machine.Trigger(fsm.EventApproved, fsm.Context{Round: st.CurrentRound})
	if merr != nil {
		return sent, merr
	}
	if err := t.state.RecordTransition(state.Transition{
		From: prev, To: next, Event: fsm.EventApproved, Timestamp: time.Now().UTC(),
	}); err != nil {
		return sent, err
	}

	if _, err := t.state.AddRoundSummary(state.OutcomeApproved, ""); err != nil {
		return sent, err
	}
	if _, err := t.trust.RecordEvent(protocol.RoleArbiter, trust.EventApproval, true, ""); err != nil {
		return sent, err
	}
	fin, err := t.state.Finalize(state.OutcomeApproved)
	if err != nil {
		return sent, err
	}

	t.logger.Info("session approved", "round", fin.CurrentRound)
	t.bus.Publish(event.NewMessageEvent(event.TypeApprovalGranted, sent))
	t.bus.Publish(event.NewRoundEndedEvent(fin.CurrentRound, state.OutcomeApproved))
	t.bus.Publish(event.NewSessionFinalizedEvent(fin.Task, state.OutcomeApproved))
	return sent, nil
}

// SubmitRejection records the arbiter's rejection of the current
// approach, retires the round as rejected, and returns the session to
// the planning phase for a new round.
func (t *Table) SubmitRejection(reason string) (protocol.Message, error) {
	st, err := t.activeState()
	if err != nil {
		return protocol.Message{}, err
	}
	msg := protocol.New(protocol.RoleArbiter, protocol.RoleDoer, protocol.MessageRejection, reason).
		WithApproved(false)
	msg.Phase = protocol.PhaseApprove
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	if err := t.trigger(fsm.EventRejected, st); err != nil {
		return sent, err
	}
	if _, err := t.state.AddRoundSummary(state.OutcomeRejected, reason); err != nil {
		return sent, err
	}
	if _, err := t.trust.RecordEvent(protocol.RoleArbiter, trust.EventRejection, true, reason); err != nil {
		return sent, err
	}

	t.bus.Publish(event.NewMessageEvent(event.TypeRejectionIssued, sent))
	t.bus.Publish(event.NewRoundEndedEvent(st.CurrentRound, state.OutcomeRejected))
	return sent, nil
}

// CastVote records a consensus vote from any participant. Re-voting
// replaces the voter's previous ballot.
func (t *Table) CastVote(voter string, approved bool, confidence protocol.Confidence, reason string) (protocol.Message, error) {
	if _, err := t.activeState(); err != nil {
		return protocol.Message{}, err
	}
	recipient := protocol.RoleArbiter
	if voter == protocol.RoleArbiter {
		recipient = protocol.RoleDoer
	}
	msg := protocol.New(voter, recipient, protocol.MessageVote, reason).
		WithApproved(approved).
		WithMetadata(protocol.MetaConfidence, string(confidence))
	sent, err := t.SendMessage(msg)
	if err != nil {
		return protocol.Message{}, err
	}
	if err := t.recordVote(sent); err != nil {
		return protocol.Message{}, err
	}
	t.bus.Publish(event.NewVoteCastEvent(voter, approved))
	return sent, nil
}

// EvaluateConsensus judges the collected votes under the configured
// quorum mode. With quorum, the result is recorded in session history
// and each voter's alignment with the outcome feeds the trust ledger.
func (t *Table) EvaluateConsensus() (consensus.Result, error) {
	if _, err := t.activeState(); err != nil {
		return consensus.Result{}, err
	}
	res := t.votes.Evaluate()
	if err := t.state.AddConsensusRecord(state.ConsensusRecord{
		Approved: res.Approved,
		Method:   string(res.Method),
		Reason:   res.Reason,
		Votes:    res.Total,
	}); err != nil {
		return res, err
	}
	if res.HasQuorum && t.cfg.Trust.Enabled {
		for _, v := range t.votes.Votes() {
			aligned := v.Approved == res.Approved
			if _, err := t.trust.RecordEvent(v.Voter, trust.EventVote, aligned, ""); err != nil {
				return res, err
			}
		}
	}
	t.bus.Publish(event.NewConsensusReachedEvent(res.Approved, string(res.Method)))
	return res, nil
}

// reply builds a threaded reply from sender to the last message
// addressed to them and sends it.
func (t *Table) reply(sender string, msgType protocol.MessageType, content string, tag protocol.InteractionType) (protocol.Message, error) {
	if _, err := t.activeState(); err != nil {
		return protocol.Message{}, err
	}
	parent, ok, err := t.log.Last(transcript.Filter{Recipient: sender})
	if err != nil {
		return protocol.Message{}, err
	}
	if !ok {
		return protocol.Message{}, fmt.Errorf("table: no message addressed to %q to reply to: %w",
			sender, errors.ErrNotFound)
	}
	msg := protocol.NewReply(parent, sender, msgType, content)
	if tag != "" {
		msg = msg.WithInteraction(tag)
	}
	return t.SendMessage(msg)
}

// Respond sends a free-form threaded reply from the given participant.
func (t *Table) Respond(sender, content string) (protocol.Message, error) {
	return t.reply(sender, protocol.MessageResponse, content, protocol.InteractionResponse)
}

// RequestClarification asks the other party to clarify their last
// message before the sender commits to a position.
func (t *Table) RequestClarification(sender, question string) (protocol.Message, error) {
	return t.reply(sender, protocol.MessageClarification, question, protocol.InteractionRequest)
}

// AnswerClarification responds to a pending clarification request.
func (t *Table) AnswerClarification(sender, answer string) (protocol.Message, error) {
	return t.reply(sender, protocol.MessageClarificationResponse, answer, protocol.InteractionInformation)
}

// CounterPropose rejects the last proposal with an alternative,
// opening the next negotiation round on the thread.
func (t *Table) CounterPropose(sender, alternative string) (protocol.Message, error) {
	return t.reply(sender, protocol.MessageCounterProposal, alternative, protocol.InteractionNegotiation)
}

// Object registers fundamental disagreement, escalating the thread's
// negotiation.
func (t *Table) Object(sender, grounds string) (protocol.Message, error) {
	return t.reply(sender, protocol.MessageObjection, grounds, protocol.InteractionChallenge)
}

// Acknowledge accepts the last message without further discussion,
// resolving the thread.
func (t *Table) Acknowledge(sender, note string) (protocol.Message, error) {
	if note == "" {
		note = "Acknowledged."
	}
	return t.reply(sender, protocol.MessageAcknowledgment, note, protocol.InteractionConcession)
}

// Finalize ends the session with the given outcome.
func (t *Table) Finalize(outcome string) (*state.State, error) {
	st, err := t.state.Finalize(outcome)
	if err != nil {
		return nil, err
	}
	t.machine.ForceState(protocol.StateFinalized)
	t.logger.Info("session finalized", "outcome", outcome)
	t.bus.Publish(event.NewSessionFinalizedEvent(st.Task, outcome))
	return st, nil
}

// Reset removes all session data. The trust ledger is preserved so
// participant reliability carries into the next session.
func (t *Table) Reset() error {
	if err := t.state.Reset(); err != nil {
		return err
	}
	t.machine = fsm.NewProtocolMachine()
	t.graph = interaction.NewGraph()
	t.negs = negotiation.NewManager(t.cfg.Negotiation.MaxRounds)
	t.votes.Clear()
	t.context = NewContextBuilder(t.state, t.log, t.trust, t.negs, t.graph)
	t.bus.Publish(event.NewSessionResetEvent())
	return nil
}

func (t *Table) strategyState(st *state.State) strategy.State {
	rejections := 0
	if critiques, err := t.log.Messages(transcript.Filter{
		Round: st.CurrentRound, Type: protocol.MessageCritique,
	}); err == nil {
		for _, c := range critiques {
			if c.HasApprovalStance() && !c.Approved() {
				rejections++
			}
		}
	}
	return strategy.State{
		AutoEscalate:       st.Config.AutoEscalate,
		Round:              st.CurrentRound,
		CritiqueRejections: rejections,
	}
}

// Messages returns transcript messages matching the filter.
func (t *Table) Messages(f transcript.Filter) ([]protocol.Message, error) {
	return t.log.Messages(f)
}

// LastMessage returns the most recent message matching the filter.
func (t *Table) LastMessage(f transcript.Filter) (protocol.Message, bool, error) {
	return t.log.Last(f)
}

// TranscriptText renders the whole transcript as readable text.
func (t *Table) TranscriptText() (string, error) {
	msgs, err := t.log.All()
	if err != nil {
		return "", err
	}
	return transcript.Text(msgs), nil
}

// DoerContext renders the doer's prompt context.
func (t *Table) DoerContext() (string, error) { return t.context.DoerContext() }

// CriticContext renders the critic's prompt context.
func (t *Table) CriticContext() (string, error) { return t.context.CriticContext() }

// ArbiterContext renders the arbiter's prompt context.
func (t *Table) ArbiterContext() (string, error) { return t.context.ArbiterContext() }

// Status is the aggregate session summary exposed to callers.
type Status struct {
	Active          bool                 `json:"active"`
	Task            string               `json:"task"`
	CurrentRound    int                  `json:"current_round"`
	MaxRounds       int                  `json:"max_rounds"`
	CurrentPhase    string               `json:"current_phase"`
	MachineState    string               `json:"machine_state"`
	Strategy        string               `json:"strategy"`
	Outcome         string               `json:"outcome,omitempty"`
	TotalMessages   int                  `json:"total_messages"`
	EscalationCount int                  `json:"escalation_count"`
	DeadlockCount   int                  `json:"deadlock_count"`
	MessagesByAgent map[string]int       `json:"messages_by_agent"`
	RoundsSummary   []state.RoundSummary `json:"rounds_summary"`
	Negotiations    negotiation.Summary  `json:"negotiations"`
	ThreadCount     int                  `json:"thread_count"`
	StartedAt       time.Time            `json:"started_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

// Status returns the aggregate session summary.
func (t *Table) Status() (*Status, error) {
	st, err := t.state.Load()
	if err != nil {
		return nil, err
	}
	bySender, err := t.log.CountBySender()
	if err != nil {
		return nil, err
	}
	return &Status{
		Active:          st.Active,
		Task:            st.Task,
		CurrentRound:    st.CurrentRound,
		MaxRounds:       st.Config.MaxRounds,
		CurrentPhase:    st.CurrentPhase,
		MachineState:    t.machine.Current(),
		Strategy:        t.strategy.Name(),
		Outcome:         st.Outcome,
		TotalMessages:   st.TotalMessages,
		EscalationCount: st.EscalationCount,
		DeadlockCount:   st.DeadlockCount,
		MessagesByAgent: bySender,
		RoundsSummary:   st.RoundsSummary,
		Negotiations:    t.negs.Summarize(),
		ThreadCount:     t.graph.ThreadCount(),
		StartedAt:       st.StartedAt,
		CompletedAt:     st.CompletedAt,
	}, nil
}

// RoundScript drives a complete deliberation round programmatically.
// Empty fields skip their step.
type RoundScript struct {
	Plan             string
	Critique         string
	CritiqueApproved bool
	Implementation   string
	Review           string
	ReviewApproved   bool
	Decision         string
	SideWith         string
	Approve          bool
}

// RunRound executes a scripted round end to end. Useful for automated
// workflows and tests.
func (t *Table) RunRound(script RoundScript) (*state.State, error) {
	if _, err := t.NewRound(); err != nil {
		return nil, err
	}
	if _, err := t.SubmitPlan(script.Plan); err != nil {
		return nil, err
	}
	if _, err := t.SubmitCritique(script.Critique, script.CritiqueApproved); err != nil {
		return nil, err
	}
	if script.CritiqueApproved && script.Implementation != "" {
		if _, err := t.SubmitImplementation(script.Implementation); err != nil {
			return nil, err
		}
		if script.Review != "" {
			if _, err := t.SubmitReview(script.Review, script.ReviewApproved); err != nil {
				return nil, err
			}
		}
	}
	if script.Decision != "" {
		if _, err := t.SubmitDecision(script.Decision, script.SideWith); err != nil {
			return nil, err
		}
	}
	if script.Approve {
		if _, err := t.SubmitApproval(""); err != nil {
			return nil, err
		}
	} else {
		reason := script.Decision
		if reason == "" {
			reason = "Rejected by arbiter."
		}
		if _, err := t.SubmitRejection(reason); err != nil {
			return nil, err
		}
	}
	return t.state.Load()
}
