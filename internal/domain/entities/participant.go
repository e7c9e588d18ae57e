package entities

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantType distinguishes department delegates from consultant personas
type ParticipantType string

const (
	ParticipantTypeDepartment ParticipantType = "department"
	ParticipantTypeConsultant ParticipantType = "consultant"
)

// MeetingParticipant is an immutable roster entry snapshotted at meeting
// creation. ParticipantID points at the department or agent it was taken from.
type MeetingParticipant struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"meeting_id"`
	Meeting         *Meeting        `gorm:"foreignKey:MeetingID" json:"meeting,omitempty"`
	ParticipantID   uuid.UUID       `gorm:"type:uuid;not null" json:"participant_id"`
	ParticipantType ParticipantType `gorm:"type:varchar(20);not null" json:"participant_type"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Avatar          *string         `gorm:"type:varchar(500)" json:"avatar,omitempty"`
	RoleDescription *string         `gorm:"type:text" json:"role_description,omitempty"`
	CreatedAt       time.Time       `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for MeetingParticipant
func (MeetingParticipant) TableName() string {
	return "meeting_participants"
}

// IsConsultant checks if the participant is a consultant persona
func (p *MeetingParticipant) IsConsultant() bool {
	return p.ParticipantType == ParticipantTypeConsultant
}
