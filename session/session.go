package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/windowing"
)

// State is the turn state of a Session.
type State int32

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stats is a point-in-time view of a session's window.
type Stats struct {
	MessageCount     int
	TokenCount       int
	TokensAvailable  int
	EffectiveLimit   int
	MaxContextTokens int
	Encoding         string
	ExactEncoder     bool
	Evictions        int
}

// Config holds a session's dependencies. Nothing is read from globals.
type Config struct {
	SystemPrompt string
	Budget       windowing.Budget
	// Counter defaults to windowing.HeuristicCounter.
	Counter windowing.TokenCounter
	Client  ModelClient
	Params  GenerationParams
	// TurnTimeout bounds each model call when > 0. Expiry rolls the turn back.
	TurnTimeout time.Duration
	Observer    Observer
	Logger      *slog.Logger
}

// Session owns one transcript and runs its turns.
type Session struct {
	transcript *memory.Transcript
	window     *windowing.Manager
	budget     windowing.Budget
	client     ModelClient
	params     GenerationParams
	timeout    time.Duration
	obs        Observer
	log        *slog.Logger

	state     atomic.Int32
	turnCtx   context.Context
	evictions int
}

// New creates a session seeded with cfg.SystemPrompt. It fails with
// *windowing.BudgetUnsatisfiableError when the system entry alone exceeds the
// effective limit.
func New(cfg Config) (*Session, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	counter := cfg.Counter
	if counter == nil {
		counter = windowing.HeuristicCounter{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	s := &Session{
		transcript: memory.NewTranscript(cfg.SystemPrompt),
		budget:     cfg.Budget,
		client:     cfg.Client,
		params:     cfg.Params,
		timeout:    cfg.TurnTimeout,
		obs:        obs,
		log:        log.With("component", "session"),
		turnCtx:    context.Background(),
	}
	s.window = windowing.NewManager(counter,
		windowing.WithLogger(log),
		windowing.WithEvictionHook(s.evicted),
	)
	if err := s.window.Check(s.transcript, cfg.Budget); err != nil {
		return nil, err
	}

	st := s.Stats()
	s.obs.SessionStarted(st, windowing.FallbackCause(counter))
	s.log.Debug("session created",
		"encoding", st.Encoding, "exact", st.ExactEncoder,
		"system_tokens", st.TokenCount, "limit", st.EffectiveLimit)
	return s, nil
}

// NewTurn sends text as the next user message and returns the reply.
// On failure the transcript is left exactly as it was before the call.
func (s *Session) NewTurn(ctx context.Context, text string) (Reply, error) {
	user := memory.User(text)
	return s.turn(ctx, &user)
}

// Greet asks the model to speak first: the current sequence is sent without a
// new user entry and the reply is appended on success.
func (s *Session) Greet(ctx context.Context) (Reply, error) {
	return s.turn(ctx, nil)
}

func (s *Session) turn(ctx context.Context, user *memory.Entry) (Reply, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		return Reply{}, ErrTurnInProgress
	}
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	turnID := ulid.Make().String()
	ctx = WithTurnID(ctx, turnID)
	s.turnCtx = ctx
	defer func() { s.turnCtx = context.Background() }()

	report := TurnReport{TurnID: turnID, Greeting: user == nil}
	if user != nil {
		report.UserText = user.Content
	}
	finish := func(outcome Outcome, err error) {
		report.Outcome = outcome
		report.Err = err
		report.Stats = s.Stats()
		report.Duration = time.Since(start)
		s.obs.TurnFinished(ctx, report)
	}

	if err := s.window.Check(s.transcript, s.budget); err != nil {
		finish(OutcomeRejected, err)
		return Reply{}, err
	}
	if user != nil {
		pair := []memory.Entry{s.transcript.System(), *user}
		if n, limit := s.window.Counter().Count(pair), s.budget.EffectiveLimit(); n > limit {
			err := fmt.Errorf("%w: system plus message cost %d tokens, limit is %d", ErrMessageExceedsBudget, n, limit)
			finish(OutcomeRejected, err)
			return Reply{}, err
		}
		if err := s.transcript.Append(*user); err != nil {
			finish(OutcomeRejected, err)
			return Reply{}, err
		}
	}

	res, err := s.window.Enforce(s.transcript, s.budget)
	report.Evicted, report.EvictedTokens = len(res.Evicted), res.EvictedTokens
	if err != nil {
		report.Restored, _ = s.rollback(user, res.Evicted)
		finish(OutcomeRejected, err)
		return Reply{}, err
	}

	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	reply, err := s.client.Send(sendCtx, s.transcript.Sequence(), s.params)
	if err == nil && reply.Content == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		callErr := &ModelCallError{TurnID: turnID, Err: err}
		restored, rbErr := s.rollback(user, res.Evicted)
		report.Restored = restored
		if rbErr != nil {
			// The transcript no longer matches what was sent; surface both.
			err := fmt.Errorf("%w (rollback: %v)", callErr, rbErr)
			finish(OutcomeRolledBack, err)
			return Reply{}, err
		}
		s.log.Warn("turn rolled back", "turn_id", turnID, "restored", restored, "error", err)
		finish(OutcomeRolledBack, callErr)
		return Reply{}, callErr
	}

	if err := s.transcript.Append(memory.Assistant(reply.Content)); err != nil {
		return Reply{}, err
	}
	report.Reply = reply
	s.log.Info("turn committed",
		"turn_id", turnID,
		"prompt_tokens", reply.Usage.PromptTokens,
		"completion_tokens", reply.Usage.CompletionTokens,
		"evicted", report.Evicted)
	finish(OutcomeCommitted, nil)
	return reply, nil
}

// rollback undoes a turn: pops the user entry appended for it (if any) and
// puts evicted entries back at the front. It returns how many were restored.
func (s *Session) rollback(user *memory.Entry, evicted []memory.Entry) (int, error) {
	if user != nil {
		last, err := s.transcript.PopLast()
		if err != nil {
			return 0, fmt.Errorf("pop user entry: %w", err)
		}
		if !last.Equal(*user) {
			return 0, fmt.Errorf("pop user entry: last entry is %s, not the pending user message", last.Role)
		}
	}
	s.transcript.RestoreOldest(evicted...)
	s.evictions -= len(evicted)
	return len(evicted), nil
}

func (s *Session) evicted(e memory.Entry, tokens int) {
	s.evictions++
	s.log.Info("evicted entry to stay within budget", "role", string(e.Role), "tokens", tokens)
	s.obs.EntryEvicted(s.turnCtx, e, tokens)
}

// Clear drops all history, keeping the system entry.
func (s *Session) Clear() error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		return ErrTurnInProgress
	}
	defer s.state.Store(int32(StateIdle))

	s.transcript.Reset()
	st := s.Stats()
	s.obs.HistoryCleared(st)
	s.log.Debug("history cleared", "tokens", st.TokenCount)
	return nil
}

// Reconfigure replaces the budget. The new budget must validate and hold the
// system entry; otherwise the old budget stays in force.
func (s *Session) Reconfigure(b windowing.Budget) error {
	if s.State() != StateIdle {
		return ErrTurnInProgress
	}
	if err := s.window.Check(s.transcript, b); err != nil {
		return err
	}
	s.budget = b
	return nil
}

// Stats reports history size and token usage against the effective limit.
func (s *Session) Stats() Stats {
	c := s.window.Counter()
	tokens := s.window.Count(s.transcript)
	limit := s.budget.EffectiveLimit()
	return Stats{
		MessageCount:     s.transcript.Len(),
		TokenCount:       tokens,
		TokensAvailable:  limit - tokens,
		EffectiveLimit:   limit,
		MaxContextTokens: s.budget.MaxContextTokens,
		Encoding:         c.Encoding(),
		ExactEncoder:     c.Exact(),
		Evictions:        s.evictions,
	}
}

// State reports whether a turn is in flight.
func (s *Session) State() State { return State(s.state.Load()) }

// Budget returns the budget in force.
func (s *Session) Budget() windowing.Budget { return s.budget }

// Transcript returns a copy of [system] ++ history.
func (s *Session) Transcript() []memory.Entry { return s.transcript.Sequence() }
