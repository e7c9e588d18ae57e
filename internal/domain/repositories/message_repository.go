package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// MessageRepository defines the interface for the append-only transcript
type MessageRepository interface {
	// Create appends a message to the transcript
	Create(ctx context.Context, message *entities.MeetingMessage) error

	// FindByMeetingID retrieves the transcript ordered by sequence number
	FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingMessage, error)

	// FindLast retrieves the most recent message, or nil for an empty transcript
	FindLast(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMessage, error)
}
