package scorer

import (
	"errors"
	"fmt"

	"intake/internal/types"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// BootstrapRequest starts or resumes a session for a user.
type BootstrapRequest struct {
	UserID         string `json:"user_id"`
	JourneyContext string `json:"journey_context,omitempty"`
}

// BootstrapResponse carries the initial (or restored) session state.
type BootstrapResponse struct {
	SessionID         string                      `json:"session_id"`
	CurrentStage      int                         `json:"current_stage"`
	TotalStages       int                         `json:"total_stages"`
	StageName         string                      `json:"stage_name"`
	AgentIntroduction string                      `json:"agent_introduction"`
	FirstQuestion     string                      `json:"first_question,omitempty"`
	Resuming          bool                        `json:"resuming"`
	History           []types.Message             `json:"conversation_history,omitempty"`
	Coverage          map[int]types.StageCoverage `json:"coverage_snapshot,omitempty"`
}

// ScoreRequest submits the latest user message with the full updated history.
type ScoreRequest struct {
	SessionID  string          `json:"session_id"`
	History    []types.Message `json:"full_history"`
	NewMessage types.Message   `json:"new_user_message"`
}

// StageProgress is the scorer's advisory progress report for one turn.
// The engine treats CurrentStage as authoritative (clamped to never
// decrease); the percentages are display-only.
type StageProgress struct {
	CurrentStage    int     `json:"current_stage"`
	OverallProgress float64 `json:"overall_progress"`
	StageProgress   float64 `json:"stage_progress"`
	NextStageName   string  `json:"next_stage_name,omitempty"`
}

// SystemActions are side-channel instructions from the scorer.
type SystemActions struct {
	TriggerWorkflow      bool `json:"trigger_workflow,omitempty"`
	RequestClarification bool `json:"request_clarification,omitempty"`
	NeedsReview          bool `json:"needs_review,omitempty"`
}

// ScoreResponse is the scorer's reply for one turn.
type ScoreResponse struct {
	AgentResponse    string               `json:"agent_response"`
	FollowUpQuestion string               `json:"follow_up_question,omitempty"`
	Quality          types.QualitySignals `json:"quality_signals"`
	Coverage         *types.StageCoverage `json:"stage_snapshot,omitempty"`
	Progress         StageProgress        `json:"stage_progress"`
	Actions          SystemActions        `json:"system_actions,omitempty"`
}

// CompletionRequest hands the finished brief and transcript downstream.
type CompletionRequest struct {
	SessionID  string          `json:"session_id"`
	Brief      types.Brief     `json:"brief"`
	Transcript []types.Message `json:"transcript"`
}

// CompletionResponse acknowledges the handoff.
type CompletionResponse struct {
	RedirectTarget string `json:"redirect_target"`
	WorkflowID     string `json:"workflow_id,omitempty"`
}

// StatusRequest polls session status out of band.
type StatusRequest struct {
	SessionID string `json:"session_id"`
}

// StatusResponse reports externally observed session state.
type StatusResponse struct {
	CurrentStage    int               `json:"current_stage"`
	OverallProgress float64           `json:"overall_progress"`
	StageProgress   float64           `json:"stage_progress"`
	Completed       bool              `json:"completed"`
	BriefData       map[string]string `json:"brief_data,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// Collaborator error codes surfaced in error envelopes.
const (
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeMessageLimitExceeded = "MESSAGE_LIMIT_EXCEEDED"
	CodeAnalysisFailed       = "ANALYSIS_FAILED"
	CodeInvalidAction        = "INVALID_ACTION"
	CodeInternalError        = "INTERNAL_ERROR"
)

// CollaboratorError is a decoded error envelope from any collaborator.
type CollaboratorError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *CollaboratorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

var plainLanguage = map[string]string{
	CodeSessionNotFound:      "We couldn't find your session. Please start a new conversation.",
	CodeMessageLimitExceeded: "You've reached the message limit for your plan. Consider upgrading or starting a new session.",
	CodeAnalysisFailed:       "The analysis couldn't be completed. Please try again.",
	CodeInvalidAction:        "That action isn't recognized. Please try a different approach.",
	CodeInternalError:        "Something went wrong on our end. Please try again in a moment.",
}

// PlainLanguage converts a collaborator error code to a user-facing sentence.
func PlainLanguage(code string) string {
	if msg, ok := plainLanguage[code]; ok {
		return msg
	}
	return "An error occurred. Please try again or contact support."
}

// Describe renders any error for the end user: collaborator errors map to
// their plain-language sentence, everything else is shown verbatim.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return PlainLanguage(ce.Code)
	}
	return err.Error()
}
