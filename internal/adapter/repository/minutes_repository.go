package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// minutesRepository implements the MinutesRepository interface
type minutesRepository struct {
	db *gorm.DB
}

// NewMinutesRepository creates a new minutes repository
func NewMinutesRepository(db *gorm.DB) repositories.MinutesRepository {
	return &minutesRepository{db: db}
}

// Upsert creates the minutes row or overwrites the existing one
func (r *minutesRepository) Upsert(ctx context.Context, minutes *entities.MeetingMinutes) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"executive_summary", "content", "export_path", "updated_at"}),
		}).
		Create(minutes).Error
}

// FindByMeetingID retrieves the minutes of a meeting
func (r *minutesRepository) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error) {
	var minutes entities.MeetingMinutes
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		First(&minutes).Error

	if err != nil {
		return nil, err
	}
	return &minutes, nil
}
