package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// MinutesRepository defines the interface for meeting minutes persistence
type MinutesRepository interface {
	// Upsert creates the minutes row or overwrites the existing one
	Upsert(ctx context.Context, minutes *entities.MeetingMinutes) error

	// FindByMeetingID retrieves the minutes of a meeting
	FindByMeetingID(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error)
}
