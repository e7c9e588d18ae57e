package meeting

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// CreateMeetingRequest is the payload for creating a meeting
type CreateMeetingRequest struct {
	Title              string                    `json:"title" validate:"required,max=255"`
	Topic              string                    `json:"topic" validate:"required"`
	Mode               string                    `json:"mode" validate:"omitempty,oneof=quick_sync deep_dive result_driven"`
	DurationMinutes    int                       `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	MaxTurns           *int                      `json:"max_turns" validate:"omitempty,min=1,max=200"`
	ScheduledStartTime *time.Time                `json:"scheduled_start_time"`
	DepartmentIDs      []uuid.UUID               `json:"department_ids"`
	AgentIDs           []uuid.UUID               `json:"agent_ids"`
	Settings           *entities.MeetingSettings `json:"settings"`
}

// PostMessageRequest is the payload for a user statement
type PostMessageRequest struct {
	SpeakerName string `json:"speaker_name" validate:"omitempty,max=255"`
	Content     string `json:"content" validate:"required"`
}

// ListMeetingsRequest carries list filters via query parameters
type ListMeetingsRequest struct {
	Status    *string `query:"status" validate:"omitempty,oneof=setup scheduled in_progress paused completed"`
	Mode      *string `query:"mode" validate:"omitempty,oneof=quick_sync deep_dive result_driven"`
	Search    string  `query:"search"`
	Page      int     `query:"page" validate:"omitempty,min=1"`
	PageSize  int     `query:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string  `query:"sort_by" validate:"omitempty,oneof=created_at started_at title"`
	SortOrder string  `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}
