package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SpeakerType represents who produced a meeting message
type SpeakerType string

const (
	SpeakerTypeDepartment  SpeakerType = "department"
	SpeakerTypeConsultant  SpeakerType = "consultant"
	SpeakerTypeUser        SpeakerType = "user"
	SpeakerTypeSystem      SpeakerType = "system"
	SpeakerTypeChairperson SpeakerType = "chairperson"
)

// Stance is the position a speaker takes on the topic
type Stance string

const (
	StanceSupport     Stance = "support"
	StanceOppose      Stance = "oppose"
	StanceNeutral     Stance = "neutral"
	StanceConditional Stance = "conditional"
)

// Citation references a knowledge document used to ground a statement
type Citation struct {
	FileID   uuid.UUID `json:"file_id"`
	FileName string    `json:"file_name"`
	Snippet  string    `json:"snippet,omitempty"`
}

// MeetingMessage is one append-only entry in the meeting transcript.
// SequenceNumber is unique and monotonically increasing per meeting.
type MeetingMessage struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_meeting_seq,unique" json:"meeting_id"`
	SpeakerID      *uuid.UUID     `gorm:"type:uuid;index" json:"speaker_id,omitempty"`
	SpeakerType    SpeakerType    `gorm:"type:varchar(20);not null" json:"speaker_type"`
	SpeakerName    string         `gorm:"type:varchar(255);not null" json:"speaker_name"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Citations      datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"citations,omitempty"`
	Stance         *Stance        `gorm:"type:varchar(20)" json:"stance,omitempty"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`
	SequenceNumber int            `gorm:"not null;index:idx_meeting_seq,unique" json:"sequence_number"`
	CreatedAt      time.Time      `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for MeetingMessage
func (MeetingMessage) TableName() string {
	return "meeting_messages"
}

// IsParticipantMessage checks if the message was produced by a roster member
func (m *MeetingMessage) IsParticipantMessage() bool {
	return m.SpeakerType == SpeakerTypeDepartment || m.SpeakerType == SpeakerTypeConsultant
}
