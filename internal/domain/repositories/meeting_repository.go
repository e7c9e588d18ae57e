package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// Create creates a new meeting
	Create(ctx context.Context, meeting *entities.Meeting) error

	// FindByID retrieves a meeting by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)

	// Update updates an existing meeting
	Update(ctx context.Context, meeting *entities.Meeting) error

	// List retrieves meetings with filters and pagination
	List(ctx context.Context, filters MeetingFilters) ([]*entities.Meeting, int64, error)

	// FindDueScheduled retrieves scheduled meetings whose start time has passed
	FindDueScheduled(ctx context.Context, now time.Time) ([]*entities.Meeting, error)

	// FindActive retrieves all in-progress meetings
	FindActive(ctx context.Context) ([]*entities.Meeting, error)

	// UpdateStatus updates the meeting status
	UpdateStatus(ctx context.Context, meetingID uuid.UUID, status entities.MeetingStatus) error

	// IncrementTurnCount bumps the turn counter without touching other columns
	IncrementTurnCount(ctx context.Context, meetingID uuid.UUID) error
}

// MeetingFilters represents filter options for listing meetings
type MeetingFilters struct {
	UserID    *uuid.UUID
	Status    *entities.MeetingStatus
	Mode      *entities.MeetingMode
	Search    string // Search in title, topic
	Limit     int
	Offset    int
	SortBy    string // "created_at", "started_at", "title"
	SortOrder string // "asc", "desc"
}
