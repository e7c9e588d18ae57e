package meeting

import (
	"github.com/google/uuid"

	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// TurnFrameType tags one frame of a turn stream
type TurnFrameType string

const (
	// TurnFrameSpeaker announces who is about to speak
	TurnFrameSpeaker TurnFrameType = "speaker"
	// TurnFrameText carries one incremental text chunk
	TurnFrameText TurnFrameType = "text"
	// TurnFrameDone carries the persisted message after a successful turn
	TurnFrameDone TurnFrameType = "done"
	// TurnFrameError terminates the stream after a failure
	TurnFrameError TurnFrameType = "error"
)

// SpeakerAnnouncement identifies the selected speaker in a speaker frame
type SpeakerAnnouncement struct {
	ParticipantID uuid.UUID                `json:"participant_id"`
	Name          string                   `json:"name"`
	Type          entities.ParticipantType `json:"type"`
}

// TurnFrame is one unit of the turn stream. Exactly one of the payload fields
// is populated, matching Type. A stream is a speaker frame, zero or more text
// frames, then a single done or error frame.
type TurnFrame struct {
	Type    TurnFrameType            `json:"type"`
	Speaker *SpeakerAnnouncement     `json:"speaker,omitempty"`
	Text    string                   `json:"text,omitempty"`
	Message *entities.MeetingMessage `json:"message,omitempty"`
	Warning string                   `json:"warning,omitempty"`
	Error   string                   `json:"error,omitempty"`
}
