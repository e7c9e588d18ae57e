package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// messageRepository implements the MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) repositories.MessageRepository {
	return &messageRepository{db: db}
}

// Create appends a message to the transcript. The unique (meeting_id,
// sequence_number) index rejects duplicate sequence numbers.
func (r *messageRepository) Create(ctx context.Context, message *entities.MeetingMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// FindByMeetingID retrieves the transcript ordered by sequence number
func (r *messageRepository) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingMessage, error) {
	var messages []*entities.MeetingMessage
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("sequence_number ASC").
		Find(&messages).Error

	if err != nil {
		return nil, err
	}
	return messages, nil
}

// FindLast retrieves the most recent message, or nil for an empty transcript
func (r *messageRepository) FindLast(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMessage, error) {
	var message entities.MeetingMessage
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("sequence_number DESC").
		First(&message).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
