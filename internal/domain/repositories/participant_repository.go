package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// ParticipantRepository defines the interface for meeting roster access.
// Roster entries are snapshotted at creation and never updated.
type ParticipantRepository interface {
	// CreateBatch inserts the full roster of a meeting in one call
	CreateBatch(ctx context.Context, participants []*entities.MeetingParticipant) error

	// FindByMeetingID retrieves the roster of a meeting
	FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingParticipant, error)

	// FindByID retrieves one roster entry
	FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingParticipant, error)
}
