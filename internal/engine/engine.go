// Package engine owns the onboarding session state machine: stage
// progression, message history, coverage tracking, completion detection, and
// recovery on send failure. One engine instance operates on one session; the
// collaborators (scorer, store) are injected interfaces.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"intake/internal/catalog"
	"intake/internal/handoff"
	"intake/internal/logging"
	"intake/internal/scorer"
	"intake/internal/types"
)

// Engine precondition errors.
var (
	ErrNoSession        = errors.New("no active session; call Start first")
	ErrNotActive        = errors.New("session is not active")
	ErrTurnInFlight     = errors.New("a response is already pending")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrAlreadyCompleted = errors.New("session already completed")
)

// Store is the persistence surface the engine needs: whole-snapshot save
// after each completed turn. A nil store disables persistence.
type Store interface {
	SaveSession(*types.Session) error
}

// StageState is the per-stage activation flag set the UI renders. Flags are
// recomputed on every stage transition: stages below the current one are
// complete, the current one is active, later ones are pending.
type StageState struct {
	Stage      int    `json:"stage"`
	Name       string `json:"name"`
	IsComplete bool   `json:"is_complete"`
	IsActive   bool   `json:"is_active"`
}

// TurnResult is what sendMessage hands back to the caller for rendering.
type TurnResult struct {
	AgentMessages          []types.Message
	Quality                types.QualitySignals
	StageChanged           bool
	NewStage               int
	ClarificationSuggested bool
	Completed              bool
	Completion             *CompletionOutcome
	// CompletionErr is set when the scorer triggered the completion workflow
	// but the handoff failed; the turn itself still succeeded and completion
	// can be retried.
	CompletionErr error
}

// CompletionOutcome is the result of the completion handoff. On handoff
// failure the outcome still carries the built brief so it can be resubmitted.
type CompletionOutcome struct {
	Brief          types.Brief
	RedirectTarget string
	WorkflowID     string
}

// Engine drives one onboarding session.
type Engine struct {
	client scorer.Client
	cat    *catalog.Catalog
	store  Store
	bus    *EventBus

	mu       sync.Mutex
	session  *types.Session
	pending  bool // a placeholder is in history and a scorer call is in flight
	streamID string
}

// NewEngine creates an engine over the given collaborators. store may be
// nil for ephemeral sessions.
func NewEngine(client scorer.Client, cat *catalog.Catalog, store Store) *Engine {
	return &Engine{
		client: client,
		cat:    cat,
		store:  store,
		bus:    NewEventBus(),
	}
}

// Events returns the engine's announcement bus.
func (e *Engine) Events() *EventBus {
	return e.bus
}

// =============================================================================
// START / RESUME
// =============================================================================

// Start requests a fresh session from the bootstrap collaborator, or
// restores a prior one verbatim when the collaborator reports resumption.
// On any failure no partial session exists.
func (e *Engine) Start(ctx context.Context, userID, journeyContext string) (*types.Session, error) {
	resp, err := e.client.Bootstrap(ctx, scorer.BootstrapRequest{
		UserID:         userID,
		JourneyContext: journeyContext,
	})
	if err != nil {
		logging.SessionError("bootstrap failed for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	totalStages := resp.TotalStages
	if totalStages == 0 {
		totalStages = e.cat.TotalStages()
	}
	currentStage := resp.CurrentStage
	if currentStage < 1 {
		currentStage = 1
	}

	now := time.Now().UTC()
	sess := &types.Session{
		ID:           resp.SessionID,
		UserID:       userID,
		CurrentStage: currentStage,
		TotalStages:  totalStages,
		Status:       types.StatusActive,
		Coverage:     make(map[int]types.StageCoverage),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if resp.Resuming {
		// Resume restores history and coverage exactly as reported; the
		// abandoned conversation continues without data loss.
		sess.History = append(sess.History, resp.History...)
		for stage, cov := range resp.Coverage {
			sess.Coverage[stage] = cov
		}
		logging.Session("resumed session %s at stage %d with %d messages",
			sess.ID, sess.CurrentStage, len(sess.History))
	} else {
		if resp.AgentIntroduction != "" {
			sess.History = append(sess.History, e.agentMessage(resp.AgentIntroduction, currentStage, nil))
		}
		if resp.FirstQuestion != "" {
			sess.History = append(sess.History, e.agentMessage(resp.FirstQuestion, currentStage, nil))
		}
		logging.Session("started session %s for user %s", sess.ID, userID)
	}

	e.mu.Lock()
	e.session = sess
	e.pending = false
	e.mu.Unlock()

	e.persist()

	if !resp.Resuming {
		if resp.AgentIntroduction != "" {
			e.bus.Emit(Event{Kind: EventMessageReceived, SessionID: sess.ID, Stage: currentStage, Text: resp.AgentIntroduction})
		}
		if resp.FirstQuestion != "" {
			e.bus.Emit(Event{Kind: EventMessageReceived, SessionID: sess.ID, Stage: currentStage, Text: resp.FirstQuestion})
		}
	}

	return e.Snapshot(), nil
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage runs one turn: optimistic append, scorer call, state merge.
// On scorer failure the optimistic messages are rolled back atomically, so
// the visible conversation always matches what the system accepted.
func (e *Engine) SendMessage(ctx context.Context, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)

	// Step 1-2: validate and optimistically append under the lock.
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}
	if e.session.Status != types.StatusActive {
		e.mu.Unlock()
		return nil, ErrNotActive
	}
	if e.pending {
		// The pending placeholder acts as the turn lock.
		e.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	if text == "" {
		e.mu.Unlock()
		return nil, ErrEmptyMessage
	}

	sess := e.session
	rollbackLen := len(sess.History)
	stage := sess.CurrentStage

	userMsg := types.Message{
		ID:        types.NewID(),
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
		Stage:     stage,
	}
	placeholder := types.Message{
		ID:        types.NewID(),
		Role:      types.RoleSystem,
		Content:   "Thinking…",
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Pending:   true,
	}
	sess.History = append(sess.History, userMsg, placeholder)
	e.pending = true

	// Scorer sees the accepted history including the new user message,
	// never the transient placeholder.
	history := make([]types.Message, 0, rollbackLen+1)
	history = append(history, sess.History[:rollbackLen+1]...)
	sessionID := sess.ID
	e.mu.Unlock()

	logging.SessionDebug("turn start: session=%s stage=%d words=%d", sessionID, stage, len(strings.Fields(text)))

	// Step 3: the only suspension point in the engine.
	resp, err := e.client.Score(ctx, scorer.ScoreRequest{
		SessionID:  sessionID,
		History:    history,
		NewMessage: userMsg,
	})
	if err != nil {
		// Step 5 (failure): roll back the optimistic append entirely.
		e.mu.Lock()
		e.session.History = e.session.History[:rollbackLen]
		e.pending = false
		e.mu.Unlock()

		logging.SessionError("turn failed, rolled back: session=%s: %v", sessionID, err)
		e.bus.Emit(Event{Kind: EventErrorOccurred, SessionID: sessionID, Stage: stage, Text: err.Error()})
		return nil, fmt.Errorf("send failed: %w", err)
	}

	// Step 4 (success): swap the placeholder for the agent reply and merge
	// the scorer's state.
	result := e.applyScoreResponse(userMsg, resp, rollbackLen)

	e.persist()
	for _, m := range result.AgentMessages {
		e.bus.Emit(Event{Kind: EventMessageReceived, SessionID: sessionID, Stage: m.Stage, Text: m.Content})
	}
	if result.StageChanged {
		ind := NewProgressIndicator(result.NewStage, e.Snapshot().TotalStages)
		e.bus.Emit(Event{
			Kind:      EventStageChanged,
			SessionID: sessionID,
			Stage:     result.NewStage,
			StageName: e.cat.Name(result.NewStage),
			Text:      fmt.Sprintf("Moving on to %s. %s.", e.cat.Name(result.NewStage), ind.ValueText),
			Progress:  &ind,
		})
	}
	if result.ClarificationSuggested {
		e.bus.Emit(Event{Kind: EventClarificationSuggested, SessionID: sessionID, Stage: result.NewStage,
			Text: "Consider adding more detail to your last answer."})
	}

	// Completion is message-driven: an explicit workflow trigger from the
	// scorer invokes the handoff as part of this turn.
	if resp.Actions.TriggerWorkflow {
		outcome, cerr := e.Complete(ctx)
		result.Completion = outcome
		result.CompletionErr = cerr
		result.Completed = cerr == nil
	}

	return result, nil
}

// applyScoreResponse merges a successful scorer response into the session.
// Called with the lock released; takes it for the whole mutation so readers
// never observe a half-applied turn.
func (e *Engine) applyScoreResponse(userMsg types.Message, resp *scorer.ScoreResponse, rollbackLen int) *TurnResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.session
	quality := resp.Quality
	quality.Normalize()

	// Drop the placeholder, keep the accepted user message.
	sess.History = sess.History[:rollbackLen]
	sess.History = append(sess.History, userMsg)

	result := &TurnResult{Quality: quality, NewStage: sess.CurrentStage}

	primary := e.agentMessage(resp.AgentResponse, sess.CurrentStage, &quality)
	sess.History = append(sess.History, primary)
	result.AgentMessages = append(result.AgentMessages, primary)
	if resp.FollowUpQuestion != "" {
		followUp := e.agentMessage(resp.FollowUpQuestion, sess.CurrentStage, nil)
		sess.History = append(sess.History, followUp)
		result.AgentMessages = append(result.AgentMessages, followUp)
	}

	// Coverage snapshots replace wholesale, keyed by stage.
	if resp.Coverage != nil {
		cov := *resp.Coverage
		cov.Quality.Normalize()
		if cov.UpdatedAt.IsZero() {
			cov.UpdatedAt = time.Now().UTC()
		}
		sess.Coverage[cov.Stage] = cov
	}

	sess.OverallProgress = clampPercent(resp.Progress.OverallProgress)
	sess.StageProgress = clampPercent(resp.Progress.StageProgress)

	// The scorer's reported stage is authoritative, clamped so stage
	// numbers never decrease within a session.
	newStage := resp.Progress.CurrentStage
	if newStage > sess.TotalStages {
		logging.Get(logging.CategorySession).Warn("scorer reported stage %d beyond total %d, clamping", newStage, sess.TotalStages)
		newStage = sess.TotalStages
	}
	if newStage > sess.CurrentStage {
		sess.CurrentStage = newStage
		result.StageChanged = true
		result.NewStage = newStage
	} else if newStage > 0 && newStage < sess.CurrentStage {
		logging.Get(logging.CategorySession).Warn("scorer reported stage regression %d -> %d, ignoring",
			sess.CurrentStage, newStage)
	}

	result.ClarificationSuggested = resp.Actions.RequestClarification || quality.NeedsClarification()

	sess.UpdatedAt = time.Now().UTC()
	e.pending = false
	return result
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete builds the brief and submits it with the transcript to the
// completion collaborator. Failure is recoverable: the session stays active,
// nothing is mutated, and the returned outcome still carries the brief for
// resubmission.
func (e *Engine) Complete(ctx context.Context) (*CompletionOutcome, error) {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}
	if e.session.Status == types.StatusCompleted {
		e.mu.Unlock()
		return nil, ErrAlreadyCompleted
	}
	snapshot := copySession(e.session)
	e.mu.Unlock()

	brief := handoff.BuildBrief(e.cat, snapshot)
	outcome := &CompletionOutcome{Brief: brief}

	resp, err := e.client.CompleteSession(ctx, scorer.CompletionRequest{
		SessionID:  snapshot.ID,
		Brief:      brief,
		Transcript: transcript(snapshot.History),
	})
	if err != nil {
		logging.HandoffError("completion failed for session %s: %v", snapshot.ID, err)
		return outcome, fmt.Errorf("completion failed: %w", err)
	}

	outcome.RedirectTarget = resp.RedirectTarget
	outcome.WorkflowID = resp.WorkflowID

	e.mu.Lock()
	e.session.Status = types.StatusCompleted
	e.session.UpdatedAt = time.Now().UTC()
	sessionID := e.session.ID
	e.mu.Unlock()

	e.persist()
	logging.Handoff("session %s completed, workflow=%s", sessionID, resp.WorkflowID)
	e.bus.Emit(Event{Kind: EventSessionCompleted, SessionID: sessionID,
		Text: "Your onboarding is complete. Preparing your brief."})

	return outcome, nil
}

// RefreshStatus polls the status collaborator out of band (e.g. after an
// external workflow finishes). An explicit completed signal transitions the
// session; progress numbers alone never do.
func (e *Engine) RefreshStatus(ctx context.Context) (*scorer.StatusResponse, error) {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return nil, ErrNoSession
	}
	sessionID := e.session.ID
	e.mu.Unlock()

	resp, err := e.client.Status(ctx, scorer.StatusRequest{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("status poll failed: %w", err)
	}

	e.mu.Lock()
	sess := e.session
	sess.OverallProgress = clampPercent(resp.OverallProgress)
	sess.StageProgress = clampPercent(resp.StageProgress)
	if resp.CurrentStage > sess.CurrentStage && resp.CurrentStage <= sess.TotalStages {
		sess.CurrentStage = resp.CurrentStage
	}
	completedNow := resp.Completed && sess.Status == types.StatusActive
	if completedNow {
		sess.Status = types.StatusCompleted
	}
	sess.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	e.persist()
	if completedNow {
		e.bus.Emit(Event{Kind: EventSessionCompleted, SessionID: sessionID,
			Text: "Your onboarding is complete."})
	}
	return resp, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// StartAgentStream appends an empty agent message and returns its id.
// Chunks accumulate into it until FinalizeAgentStream.
func (e *Engine) StartAgentStream() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return "", ErrNoSession
	}
	msg := e.agentMessage("", e.session.CurrentStage, nil)
	e.session.History = append(e.session.History, msg)
	e.streamID = msg.ID
	return msg.ID, nil
}

// AppendAgentChunk grows the streaming agent message's content.
func (e *Engine) AppendAgentChunk(delta string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSession
	}
	if e.streamID == "" {
		return fmt.Errorf("no agent stream in progress")
	}
	last := len(e.session.History) - 1
	if last < 0 || e.session.History[last].ID != e.streamID {
		return fmt.Errorf("stream message is no longer last in history")
	}
	e.session.History[last].Content += delta
	return nil
}

// FinalizeAgentStream closes the stream and emits a single message event.
func (e *Engine) FinalizeAgentStream() error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoSession
	}
	if e.streamID == "" {
		e.mu.Unlock()
		return fmt.Errorf("no agent stream in progress")
	}
	var final types.Message
	for i := len(e.session.History) - 1; i >= 0; i-- {
		if e.session.History[i].ID == e.streamID {
			final = e.session.History[i]
			break
		}
	}
	e.streamID = ""
	sessionID := e.session.ID
	e.mu.Unlock()

	e.persist()
	e.bus.Emit(Event{Kind: EventMessageReceived, SessionID: sessionID, Stage: final.Stage, Text: final.Content})
	return nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// Snapshot returns a copy of the current session safe for concurrent reads.
func (e *Engine) Snapshot() *types.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return copySession(e.session)
}

// StageStates returns the full stage list with completion/activation flags
// for the current position.
func (e *Engine) StageStates() []StageState {
	e.mu.Lock()
	current := 0
	if e.session != nil {
		current = e.session.CurrentStage
	}
	e.mu.Unlock()

	states := make([]StageState, 0, e.cat.TotalStages())
	for _, s := range e.cat.Stages() {
		states = append(states, StageState{
			Stage:      s.Stage,
			Name:       s.Name,
			IsComplete: s.Stage < current,
			IsActive:   s.Stage == current,
		})
	}
	return states
}

// TurnPending reports whether a scorer call is in flight.
func (e *Engine) TurnPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Brief builds the brief for the current coverage without completing. The
// live summary and the final handoff share this projection, so their
// certain/uncertain verdicts always agree.
func (e *Engine) Brief() (types.Brief, error) {
	snap := e.Snapshot()
	if snap == nil {
		return types.Brief{}, ErrNoSession
	}
	return handoff.BuildBrief(e.cat, snap), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) agentMessage(content string, stage int, quality *types.QualitySignals) types.Message {
	return types.Message{
		ID:        types.NewID(),
		Role:      types.RoleAgent,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Quality:   quality,
	}
}

// persist saves the whole session snapshot. A save failure is logged but
// does not fail the turn: the accepted conversation state lives in memory
// and the next successful save writes a complete snapshot anyway.
func (e *Engine) persist() {
	if e.store == nil {
		return
	}
	snap := e.Snapshot()
	if snap == nil {
		return
	}
	if err := e.store.SaveSession(snap); err != nil {
		logging.Get(logging.CategorySession).Warn("failed to persist session %s: %v", snap.ID, err)
	}
}

// transcript filters transient placeholders out of the history.
func transcript(history []types.Message) []types.Message {
	out := make([]types.Message, 0, len(history))
	for _, m := range history {
		if m.Pending {
			continue
		}
		out = append(out, m)
	}
	return out
}

func copySession(sess *types.Session) *types.Session {
	cp := *sess
	cp.History = make([]types.Message, len(sess.History))
	copy(cp.History, sess.History)
	cp.Coverage = make(map[int]types.StageCoverage, len(sess.Coverage))
	for k, v := range sess.Coverage {
		cp.Coverage[k] = v
	}
	return &cp
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
