package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingMode represents the moderation strategy of a meeting
type MeetingMode string

const (
	MeetingModeQuickSync    MeetingMode = "quick_sync"
	MeetingModeDeepDive     MeetingMode = "deep_dive"
	MeetingModeResultDriven MeetingMode = "result_driven"
)

// MeetingStatus represents the current status of a meeting
type MeetingStatus string

const (
	MeetingStatusSetup      MeetingStatus = "setup"
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in_progress"
	MeetingStatusPaused     MeetingStatus = "paused"
	MeetingStatusCompleted  MeetingStatus = "completed"
)

// MeetingPhase represents the discussion phase a meeting is in.
// Phases only move forward: diverge -> debate -> converge -> audit.
type MeetingPhase string

const (
	MeetingPhaseDiverge  MeetingPhase = "diverge"
	MeetingPhaseDebate   MeetingPhase = "debate"
	MeetingPhaseConverge MeetingPhase = "converge"
	MeetingPhaseAudit    MeetingPhase = "audit"
)

// phaseOrder maps phases to their position in the forward-only progression
var phaseOrder = map[MeetingPhase]int{
	MeetingPhaseDiverge:  0,
	MeetingPhaseDebate:   1,
	MeetingPhaseConverge: 2,
	MeetingPhaseAudit:    3,
}

// Meeting represents one orchestrated multi-agent meeting
type Meeting struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title              string         `gorm:"type:varchar(255);not null" json:"title"`
	Topic              string         `gorm:"type:text;not null" json:"topic"`
	Mode               MeetingMode    `gorm:"type:varchar(20);not null;default:'deep_dive'" json:"mode"`
	Status             MeetingStatus  `gorm:"type:varchar(20);not null;default:'setup';index" json:"status"`
	CurrentPhase       MeetingPhase   `gorm:"type:varchar(20);not null;default:'diverge'" json:"current_phase"`
	DurationMinutes    int            `gorm:"default:30" json:"duration_minutes"`
	TurnCount          int            `gorm:"default:0" json:"turn_count"`
	MaxTurns           *int           `json:"max_turns,omitempty"`
	SmartScore         *int           `json:"smart_score,omitempty"`
	Settings           datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"settings"`
	ScheduledStartTime *time.Time     `gorm:"index" json:"scheduled_start_time,omitempty"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	EndedAt            *time.Time     `json:"ended_at,omitempty"`
	CreatedAt          time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// MeetingSettings is the typed shape of the Settings jsonb column
type MeetingSettings struct {
	DebateMode         bool   `json:"debate_mode"`
	ForceCitations     bool   `json:"force_citations"`
	FinalVoting        bool   `json:"final_voting"`
	AllowInterruption  bool   `json:"allow_interruption"`
	ConsultantPriority string `json:"consultant_priority"` // normal, high
}

// DefaultMeetingSettings returns default meeting settings
func DefaultMeetingSettings() MeetingSettings {
	return MeetingSettings{
		DebateMode:         true,
		ForceCitations:     true,
		FinalVoting:        false,
		AllowInterruption:  true,
		ConsultantPriority: "normal",
	}
}

// IsActive checks if the meeting is currently running
func (m *Meeting) IsActive() bool {
	return m.Status == MeetingStatusInProgress
}

// IsCompleted checks if the meeting has finished
func (m *Meeting) IsCompleted() bool {
	return m.Status == MeetingStatusCompleted
}

// CanStart checks if the meeting can transition to in_progress
func (m *Meeting) CanStart() bool {
	return m.Status == MeetingStatusSetup || m.Status == MeetingStatusScheduled || m.Status == MeetingStatusPaused
}

// Start marks the meeting as in progress
func (m *Meeting) Start() {
	now := time.Now()
	m.Status = MeetingStatusInProgress
	if m.StartedAt == nil {
		m.StartedAt = &now
	}
}

// End marks the meeting as completed
func (m *Meeting) End() {
	now := time.Now()
	m.Status = MeetingStatusCompleted
	m.EndedAt = &now
}

// AdvancePhase moves the meeting to the target phase. Backward moves are
// ignored; the progression is strictly forward.
func (m *Meeting) AdvancePhase(target MeetingPhase) bool {
	cur, ok := phaseOrder[m.CurrentPhase]
	if !ok {
		return false
	}
	next, ok := phaseOrder[target]
	if !ok || next <= cur {
		return false
	}
	m.CurrentPhase = target
	return true
}

// Elapsed returns how long the meeting has been running
func (m *Meeting) Elapsed(now time.Time) time.Duration {
	if m.StartedAt == nil {
		return 0
	}
	return now.Sub(*m.StartedAt)
}

// ElapsedFraction returns elapsed time as a fraction of the duration budget
func (m *Meeting) ElapsedFraction(now time.Time) float64 {
	if m.DurationMinutes <= 0 {
		return 0
	}
	budget := time.Duration(m.DurationMinutes) * time.Minute
	return float64(m.Elapsed(now)) / float64(budget)
}

// IsOvertime checks if the meeting has exceeded its duration budget
func (m *Meeting) IsOvertime(now time.Time) bool {
	return m.StartedAt != nil && m.ElapsedFraction(now) >= 1.0
}

// ReachedTurnCap checks if the configured max turn count has been reached
func (m *Meeting) ReachedTurnCap() bool {
	return m.MaxTurns != nil && m.TurnCount >= *m.MaxTurns
}
