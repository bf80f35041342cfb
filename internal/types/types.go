// Package types provides shared type definitions used across intake packages.
// This package exists to break import cycles between the engine, scorer, and
// handoff layers. Types here are foundational data structures with no
// dependencies on other internal packages.
package types

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// SessionStatus is the explicit lifecycle state of a session.
// Progress percentages are advisory display values and never drive status.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Session is the central entity owned by the engine. Persistence is a
// whole-snapshot save; nothing outside the engine mutates a live Session.
type Session struct {
	ID              string                `json:"session_id"`
	UserID          string                `json:"user_id"`
	CurrentStage    int                   `json:"current_stage"`
	TotalStages     int                   `json:"total_stages"`
	OverallProgress float64               `json:"overall_progress"`
	StageProgress   float64               `json:"stage_progress"`
	Status          SessionStatus         `json:"status"`
	History         []Message             `json:"conversation_history"`
	Coverage        map[int]StageCoverage `json:"coverage_by_stage"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewID returns an opaque unique identifier for sessions and messages.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// MESSAGES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is immutable once created, except for the streaming accumulator on
// the last agent message (see engine.AppendAgentChunk).
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Stage     int             `json:"stage"`
	Pending   bool            `json:"pending,omitempty"`
	Quality   *QualitySignals `json:"quality_signals,omitempty"`
}

// =============================================================================
// QUALITY SIGNALS
// =============================================================================

// Quality tag values surfaced by the scorer.
const (
	TagClarityLow = "clarity_low"
	TagIncomplete = "incomplete"
)

// Signal pairs a categorical label with a numeric score in [0,1].
type Signal struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// QualitySignals is the structured assessment the scorer produces for one
// agent turn. Normalize fills defaults so missing scorer fields cannot
// propagate into session state.
type QualitySignals struct {
	Clarity      Signal   `json:"clarity"`
	Completeness Signal   `json:"completeness"`
	DetailScore  float64  `json:"detail_score"`
	Overall      float64  `json:"overall"`
	Tags         []string `json:"quality_tags,omitempty"`
}

// Defaults applied when the scorer omits fields.
const (
	DefaultClarityLabel      = "medium"
	DefaultCompletenessLabel = "partial"
	DefaultScore             = 0.5
)

// Normalize fills any omitted field with its default. Populated fields are
// left alone, so calling it twice is harmless.
func (q *QualitySignals) Normalize() {
	if q.Clarity.Label == "" {
		q.Clarity.Label = DefaultClarityLabel
	}
	if q.Clarity.Score == 0 {
		q.Clarity.Score = DefaultScore
	}
	if q.Completeness.Label == "" {
		q.Completeness.Label = DefaultCompletenessLabel
	}
	if q.Completeness.Score == 0 {
		q.Completeness.Score = DefaultScore
	}
	if q.DetailScore == 0 {
		q.DetailScore = DefaultScore
	}
	if q.Overall == 0 {
		q.Overall = DefaultScore
	}
}

// HasTag reports whether the given quality tag is present.
func (q *QualitySignals) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NeedsClarification reports whether the signals alone suggest asking the
// user to elaborate. Advisory: never blocks further input.
func (q *QualitySignals) NeedsClarification() bool {
	return q.HasTag(TagClarityLow) || q.HasTag(TagIncomplete)
}

// =============================================================================
// STAGE COVERAGE
// =============================================================================

// StageCoverage is the latest per-stage snapshot from the scorer. Snapshots
// replace each other wholesale; fields are never merged across turns.
type StageCoverage struct {
	Stage       int            `json:"stage"`
	Coverage    float64        `json:"coverage"` // 0..100
	Quality     QualitySignals `json:"quality"`
	BriefFields []string       `json:"brief_fields,omitempty"`
	LastExcerpt string         `json:"last_message_excerpt,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Notes       string         `json:"notes,omitempty"`
}

// =============================================================================
// BRIEF
// =============================================================================

// BriefField is one collected datum in the completion handoff payload.
// Uncertain distinguishes "stated but doubtful or absent" from a confident
// value; downstream review tooling depends on the distinction.
type BriefField struct {
	Key       string `json:"key"`
	Stage     int    `json:"stage"`
	StageName string `json:"stage_name"`
	Value     string `json:"value"`
	Uncertain bool   `json:"uncertain"`
}

// Brief is the structured summary handed to the downstream analysis
// workflow when a session completes.
type Brief struct {
	SessionID        string       `json:"session_id"`
	ExecutiveSummary string       `json:"executive_summary"`
	Fields           []BriefField `json:"fields"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// UncertainKeys returns the keys of all fields marked uncertain, in order.
func (b *Brief) UncertainKeys() []string {
	var keys []string
	for _, f := range b.Fields {
		if f.Uncertain {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
