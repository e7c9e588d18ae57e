package meeting

import (
	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// MeetingResponse bundles a meeting with its roster
type MeetingResponse struct {
	Meeting      *entities.Meeting              `json:"meeting"`
	Participants []*entities.MeetingParticipant `json:"participants,omitempty"`
}

// MeetingListResponse is a paginated meeting list
type MeetingListResponse struct {
	Meetings []*entities.Meeting `json:"meetings"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// MessagesResponse is the ordered transcript of a meeting
type MessagesResponse struct {
	Messages []*entities.MeetingMessage `json:"messages"`
	Count    int                        `json:"count"`
}

// SweepResponse reports one scheduler sweep
type SweepResponse struct {
	Started int `json:"started"`
	Ended   int `json:"ended"`
}
