package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// participantRepository implements the ParticipantRepository interface
type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *gorm.DB) repositories.ParticipantRepository {
	return &participantRepository{db: db}
}

// CreateBatch inserts the full roster of a meeting in one call
func (r *participantRepository) CreateBatch(ctx context.Context, participants []*entities.MeetingParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(participants).Error
}

// FindByMeetingID retrieves the roster of a meeting
func (r *participantRepository) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingParticipant, error) {
	var participants []*entities.MeetingParticipant
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&participants).Error

	if err != nil {
		return nil, err
	}
	return participants, nil
}

// FindByID retrieves one roster entry
func (r *participantRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingParticipant, error) {
	var participant entities.MeetingParticipant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&participant).Error

	if err != nil {
		return nil, err
	}
	return &participant, nil
}
