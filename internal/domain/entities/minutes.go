package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingMinutes is the structured summary derived from a completed meeting.
// One row per meeting; regeneration overwrites in place.
type MeetingMinutes struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"meeting_id"`
	ExecutiveSummary string         `gorm:"type:text" json:"executive_summary"`
	Content          datatypes.JSON `gorm:"type:jsonb;not null" json:"content"`
	ExportPath       *string        `gorm:"type:varchar(500)" json:"export_path,omitempty"`
	CreatedAt        time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for MeetingMinutes
func (MeetingMinutes) TableName() string {
	return "meeting_minutes"
}

// MinutesContent is the typed shape of the Content jsonb column
type MinutesContent struct {
	ExecutiveSummary    string               `json:"executive_summary"`
	DepartmentPositions []DepartmentPosition `json:"department_positions"`
	ConsultantInsights  []ConsultantInsight  `json:"consultant_insights"`
	ConsensusPoints     []string             `json:"consensus_points"`
	DivergencePoints    []string             `json:"divergence_points"`
	RecommendedActions  []RecommendedAction  `json:"recommended_actions"`
	Statistics          MinutesStatistics    `json:"statistics"`
}

// DepartmentPosition captures one department's final stance
type DepartmentPosition struct {
	Department string   `json:"department"`
	Position   string   `json:"position"`
	Stance     string   `json:"stance"`
	KeyPoints  []string `json:"key_points,omitempty"`
}

// ConsultantInsight captures one consultant persona's contribution
type ConsultantInsight struct {
	Consultant string `json:"consultant"`
	Insight    string `json:"insight"`
}

// RecommendedAction is a SMART-structured action item
type RecommendedAction struct {
	Action     string `json:"action"`
	Owner      string `json:"owner"`
	Deadline   string `json:"deadline"`
	Measurable string `json:"measurable,omitempty"`
}

// MinutesStatistics summarizes transcript volume per speaker
type MinutesStatistics struct {
	TotalMessages   int            `json:"total_messages"`
	TotalTurns      int            `json:"total_turns"`
	SpeakerCounts   map[string]int `json:"speaker_counts"`
	DurationMinutes int            `json:"duration_minutes"`
}
