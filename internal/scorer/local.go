package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intake/internal/catalog"
	"intake/internal/logging"
	"intake/internal/types"
)

// SessionDirectory is the minimal session lookup the local scorer needs to
// honor the bootstrap resume and status contracts. The SQLite store
// implements it; a nil directory means every bootstrap starts fresh.
type SessionDirectory interface {
	OpenSessionForUser(userID string) (*types.Session, error)
	GetSession(sessionID string) (*types.Session, error)
}

// LocalScorer implements the collaborator contracts in-process with keyword
// and length heuristics. It keeps the CLI usable offline and gives tests a
// deterministic collaborator: no randomness, everything derived from the
// request.
type LocalScorer struct {
	catalog *catalog.Catalog
	dir     SessionDirectory
}

// NewLocalScorer creates a local scorer over the given catalog. dir may be
// nil, in which case resume and status are unavailable.
func NewLocalScorer(c *catalog.Catalog, dir SessionDirectory) *LocalScorer {
	return &LocalScorer{catalog: c, dir: dir}
}

// Coverage at or above this threshold advances the stage (and, on the final
// stage, triggers the completion workflow).
const advanceThreshold = 70.0

// Replies shorter than this many words get a clarification request.
const minDetailWords = 10

// Acknowledgement bank, cycled by turn count within the stage.
var acknowledgements = []string{
	"That's a great insight.",
	"I appreciate you sharing that.",
	"That makes perfect sense.",
	"Excellent thinking.",
}

// Bootstrap starts a new session, or resumes the user's newest open one when
// a directory is available.
func (s *LocalScorer) Bootstrap(_ context.Context, req BootstrapRequest) (*BootstrapResponse, error) {
	if req.UserID == "" {
		return nil, &CollaboratorError{Code: CodeInvalidAction, Message: "user id required"}
	}

	if s.dir != nil {
		existing, err := s.dir.OpenSessionForUser(req.UserID)
		if err != nil {
			return nil, fmt.Errorf("session lookup failed: %w", err)
		}
		if existing != nil {
			logging.Scorer("local bootstrap: resuming session %s at stage %d", existing.ID, existing.CurrentStage)
			return &BootstrapResponse{
				SessionID:         existing.ID,
				CurrentStage:      existing.CurrentStage,
				TotalStages:       existing.TotalStages,
				StageName:         s.catalog.Name(existing.CurrentStage),
				AgentIntroduction: "Welcome back! Let's pick up where we left off.",
				Resuming:          true,
				History:           existing.History,
				Coverage:          existing.Coverage,
			}, nil
		}
	}

	first, _ := s.catalog.Stage(1)
	return &BootstrapResponse{
		SessionID:         types.NewID(),
		CurrentStage:      1,
		TotalStages:       s.catalog.TotalStages(),
		StageName:         first.Name,
		AgentIntroduction: first.Intro,
		FirstQuestion:     firstFollowUp(first),
	}, nil
}

// Score assesses the new user message against the stage it was sent in.
func (s *LocalScorer) Score(_ context.Context, req ScoreRequest) (*ScoreResponse, error) {
	stageNum := req.NewMessage.Stage
	stage, ok := s.catalog.Stage(stageNum)
	if !ok {
		return nil, &CollaboratorError{Code: CodeInvalidAction, Message: fmt.Sprintf("unknown stage %d", stageNum)}
	}

	turns, hits := s.stageActivity(req.History, req.NewMessage, stage)
	coverage := stageCoverage(turns, hits)
	quality := assess(req.NewMessage.Content)

	resp := &ScoreResponse{
		Quality: quality,
		Coverage: &types.StageCoverage{
			Stage:       stageNum,
			Coverage:    coverage,
			Quality:     quality,
			BriefFields: coveredFields(stage.DataToCollect, coverage),
			LastExcerpt: excerpt(req.NewMessage.Content),
			UpdatedAt:   time.Now(),
		},
		Progress: StageProgress{
			CurrentStage:  stageNum,
			StageProgress: coverage,
		},
	}

	if quality.NeedsClarification() {
		resp.Actions.RequestClarification = true
		resp.AgentResponse = "Could you tell me a bit more? Even a rough sketch helps."
		resp.FollowUpQuestion = followUp(stage, turns)
	} else if coverage >= advanceThreshold {
		if stageNum < s.catalog.TotalStages() {
			next, _ := s.catalog.Stage(stageNum + 1)
			resp.Progress.CurrentStage = stageNum + 1
			resp.Progress.NextStageName = next.Name
			resp.Progress.StageProgress = 0
			resp.AgentResponse = stage.Validation + " " + next.Intro
			resp.FollowUpQuestion = firstFollowUp(next)
		} else {
			resp.AgentResponse = stage.Validation
			resp.Actions.TriggerWorkflow = true
		}
	} else {
		resp.AgentResponse = acknowledgements[(turns-1)%len(acknowledgements)]
		resp.FollowUpQuestion = followUp(stage, turns)
	}

	resp.Progress.OverallProgress = s.overallProgress(resp.Progress.CurrentStage, resp.Progress.StageProgress)
	return resp, nil
}

// CompleteSession acknowledges the handoff; the downstream workflow is a
// dashboard redirect in local mode.
func (s *LocalScorer) CompleteSession(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.SessionID == "" {
		return nil, &CollaboratorError{Code: CodeInvalidAction, Message: "session id required"}
	}
	logging.Scorer("local completion: session %s, %d brief fields", req.SessionID, len(req.Brief.Fields))
	return &CompletionResponse{
		RedirectTarget: "/dashboard/briefs/" + req.SessionID,
		WorkflowID:     types.NewID(),
	}, nil
}

// Status reports persisted session state.
func (s *LocalScorer) Status(_ context.Context, req StatusRequest) (*StatusResponse, error) {
	if s.dir == nil {
		return nil, &CollaboratorError{Code: CodeSessionNotFound, Message: "no session directory configured"}
	}
	sess, err := s.dir.GetSession(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if sess == nil {
		return nil, &CollaboratorError{Code: CodeSessionNotFound, Message: req.SessionID}
	}
	return &StatusResponse{
		CurrentStage:    sess.CurrentStage,
		OverallProgress: sess.OverallProgress,
		StageProgress:   sess.StageProgress,
		Completed:       sess.Status == types.StatusCompleted,
	}, nil
}

// stageActivity counts user turns in the message's stage and distinct stage
// keywords across those turns.
func (s *LocalScorer) stageActivity(history []types.Message, newMsg types.Message, stage catalog.Stage) (turns int, hits int) {
	seen := make(map[string]bool)
	consider := func(m types.Message) {
		if m.Role != types.RoleUser || m.Stage != stage.Stage {
			return
		}
		turns++
		lower := strings.ToLower(m.Content)
		for _, kw := range stage.Keywords {
			if strings.Contains(lower, kw) {
				seen[kw] = true
			}
		}
	}
	for _, m := range history {
		consider(m)
	}
	// History may or may not already include the new message depending on
	// when the engine snapshots; count it exactly once.
	included := false
	for _, m := range history {
		if m.ID == newMsg.ID {
			included = true
			break
		}
	}
	if !included {
		consider(newMsg)
	}
	return turns, len(seen)
}

// stageCoverage maps activity to a 0..100 estimate: each substantive turn is
// worth 30 points, each distinct keyword 10.
func stageCoverage(turns, hits int) float64 {
	c := float64(turns)*30 + float64(hits)*10
	if c > 100 {
		c = 100
	}
	return c
}

// assess scores a reply by length: completeness proportional to word count
// capped at one full answer, clarity penalized for terse replies.
func assess(content string) types.QualitySignals {
	words := len(strings.Fields(content))

	completeness := float64(words) / 20.0
	if completeness > 1 {
		completeness = 1
	}

	q := types.QualitySignals{
		Completeness: types.Signal{Score: completeness},
		DetailScore:  completeness,
	}
	switch {
	case completeness >= 0.8:
		q.Completeness.Label = "complete"
	case completeness >= 0.4:
		q.Completeness.Label = "partial"
	default:
		q.Completeness.Label = "insufficient"
	}

	// A reply that is itself a question means the user is stuck, not
	// answering.
	asking := strings.HasSuffix(strings.TrimSpace(content), "?")

	switch {
	case words < minDetailWords || asking:
		q.Clarity = types.Signal{Label: "low", Score: 0.3}
		q.Tags = append(q.Tags, types.TagClarityLow)
	case words < 25:
		q.Clarity = types.Signal{Label: "medium", Score: 0.6}
	default:
		q.Clarity = types.Signal{Label: "high", Score: 0.9}
	}

	if q.Completeness.Label == "insufficient" {
		q.Tags = append(q.Tags, types.TagIncomplete)
	}

	q.Overall = (q.Clarity.Score + q.Completeness.Score) / 2
	return q
}

// coveredFields returns the leading fields proportional to coverage, so a
// stage at 100% reports its full declared field list.
func coveredFields(fields []string, coverage float64) []string {
	if len(fields) == 0 {
		return nil
	}
	n := int(coverage / 100 * float64(len(fields)))
	if coverage > 0 && n == 0 {
		n = 1
	}
	if n > len(fields) {
		n = len(fields)
	}
	return fields[:n]
}

func (s *LocalScorer) overallProgress(currentStage int, stageProgress float64) float64 {
	total := float64(s.catalog.TotalStages())
	done := float64(currentStage-1) + stageProgress/100
	p := done / total * 100
	if p > 100 {
		p = 100
	}
	return p
}

func followUp(stage catalog.Stage, turns int) string {
	if len(stage.FollowUps) == 0 {
		return ""
	}
	if turns < 1 {
		turns = 1
	}
	return stage.FollowUps[(turns-1)%len(stage.FollowUps)]
}

func firstFollowUp(stage catalog.Stage) string {
	if len(stage.FollowUps) == 0 {
		return ""
	}
	return stage.FollowUps[0]
}

func excerpt(content string) string {
	const max = 120
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	return content[:max] + "…"
}
