package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/warroom/errors"
	meetingdto "github.com/johnquangdev/warroom/internal/adapter/dto/meeting"
	"github.com/johnquangdev/warroom/internal/domain/entities"
	meetingUsecase "github.com/johnquangdev/warroom/internal/usecase/meeting"
)

// Meeting handles meeting-related HTTP requests
type Meeting struct {
	svc    *meetingUsecase.Service
	logger *zap.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(svc *meetingUsecase.Service, logger *zap.Logger) *Meeting {
	return &Meeting{svc: svc, logger: logger}
}

// Create handles POST /meetings
// @Summary      Create a meeting
// @Description  Creates a meeting and snapshots its participant roster
// @Tags         Meetings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      meeting.CreateMeetingRequest  true  "Meeting creation request"
// @Success      200      {object}  meeting.MeetingResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid request or validation failed"
// @Router       /meetings [post]
func (h *Meeting) Create(c echo.Context) error {
	var req meetingdto.CreateMeetingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	m, roster, err := h.svc.CreateMeeting(c.Request().Context(), meetingUsecase.CreateMeetingInput{
		UserID:             userID,
		Title:              req.Title,
		Topic:              req.Topic,
		Mode:               entities.MeetingMode(req.Mode),
		DurationMinutes:    req.DurationMinutes,
		MaxTurns:           req.MaxTurns,
		Settings:           req.Settings,
		ScheduledStartTime: req.ScheduledStartTime,
		DepartmentIDs:      req.DepartmentIDs,
		AgentIDs:           req.AgentIDs,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meetingdto.MeetingResponse{Meeting: m, Participants: roster})
}

// Get handles GET /meetings/:id
// @Summary      Get a meeting
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  meeting.MeetingResponse
// @Failure      404  {object}  map[string]interface{}  "Meeting not found"
// @Router       /meetings/{id} [get]
func (h *Meeting) Get(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, roster, err := h.svc.GetMeeting(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meetingdto.MeetingResponse{Meeting: m, Participants: roster})
}

// List handles GET /meetings
// @Summary      List meetings
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meeting.MeetingListResponse
// @Router       /meetings [get]
func (h *Meeting) List(c echo.Context) error {
	var req meetingdto.ListMeetingsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	filters := buildMeetingFilters(&req)
	if userID, ok := c.Get("user_id").(uuid.UUID); ok {
		filters.UserID = &userID
	}

	meetings, total, err := h.svc.ListMeetings(c.Request().Context(), filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return HandleSuccess(h.logger, c, meetingdto.MeetingListResponse{
		Meetings: meetings,
		Total:    total,
		Page:     page,
		PageSize: filters.Limit,
	})
}

// Start handles POST /meetings/:id/start
// @Summary      Start a meeting
// @Description  Transitions the meeting to in_progress; idempotent when already running
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  meeting.MeetingResponse
// @Router       /meetings/{id}/start [post]
func (h *Meeting) Start(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.svc.StartMeeting(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meetingdto.MeetingResponse{Meeting: m})
}

// Pause handles POST /meetings/:id/pause
// @Summary      Pause a meeting
// @Description  Suspends an active meeting; start resumes it without resetting the clock
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  meeting.MeetingResponse
// @Failure      409  {object}  map[string]interface{}  "Another turn is in progress"
// @Router       /meetings/{id}/pause [post]
func (h *Meeting) Pause(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	m, err := h.svc.PauseMeeting(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meetingdto.MeetingResponse{Meeting: m})
}

// Turn handles POST /meetings/:id/turn as a server-sent-events stream.
// Frames: one "speaker", zero or more "text", then "done" or "error".
// A meeting that is not active (or just hit its budget) answers with a plain
// JSON idle response instead of a stream.
// @Summary      Run one meeting turn
// @Tags         Meetings
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path  string  true  "Meeting ID"
// @Success      200  "SSE stream of turn frames"
// @Failure      409  {object}  map[string]interface{}  "Another turn is in progress"
// @Router       /meetings/{id}/turn [post]
func (h *Meeting) Turn(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	// The request context cancels generation when the client disconnects
	frames, err := h.svc.ProcessNextTurn(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if frames == nil {
		return HandleSuccess(h.logger, c, map[string]interface{}{"idle": true})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for frame := range frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			h.logger.Error("failed to encode turn frame", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", frame.Type, payload); err != nil {
			// Client gone; drain remaining frames so the turn can settle
			for range frames {
			}
			return nil
		}
		resp.Flush()
	}
	return nil
}

// PostMessage handles POST /meetings/:id/messages
// @Summary      Post a user statement
// @Description  Appends a user message to the transcript; a named participant in the text hands them the next turn
// @Tags         Meetings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                        true  "Meeting ID"
// @Param        request  body  meeting.PostMessageRequest    true  "User statement"
// @Success      200  {object}  map[string]interface{}
// @Router       /meetings/{id}/messages [post]
func (h *Meeting) PostMessage(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req meetingdto.PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	speakerName := req.SpeakerName
	if speakerName == "" {
		speakerName = "User"
	}

	msg, err := h.svc.PostUserMessage(c.Request().Context(), id, speakerName, req.Content)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, msg)
}

// ListMessages handles GET /meetings/:id/messages
// @Summary      Get the transcript
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  meeting.MessagesResponse
// @Router       /meetings/{id}/messages [get]
func (h *Meeting) ListMessages(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	messages, err := h.svc.ListMessages(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meetingdto.MessagesResponse{Messages: messages, Count: len(messages)})
}

// End handles POST /meetings/:id/end
// @Summary      End a meeting
// @Description  Completes the meeting and generates its minutes
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  entities.MeetingMinutes
// @Router       /meetings/{id}/end [post]
func (h *Meeting) End(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	minutes, err := h.svc.EndMeeting(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, minutes)
}

// GetMinutes handles GET /meetings/:id/minutes
// @Summary      Get meeting minutes
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  entities.MeetingMinutes
// @Failure      404  {object}  map[string]interface{}  "Minutes not generated yet"
// @Router       /meetings/{id}/minutes [get]
func (h *Meeting) GetMinutes(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	minutes, err := h.svc.GetMinutes(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, minutes)
}

// RegenerateMinutes handles POST /meetings/:id/minutes/regenerate
// @Summary      Regenerate meeting minutes
// @Description  Re-derives minutes idempotently from the same transcript
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID"
// @Success      200  {object}  entities.MeetingMinutes
// @Router       /meetings/{id}/minutes/regenerate [post]
func (h *Meeting) RegenerateMinutes(c echo.Context) error {
	id, err := parseMeetingID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	minutes, err := h.svc.RegenerateMinutes(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, minutes)
}

func parseMeetingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidArgument("invalid meeting id")
	}
	return id, nil
}

// Cron handles scheduler sweep requests from an external cron
type Cron struct {
	svc    *meetingUsecase.Service
	logger *zap.Logger
}

// NewCronHandler creates a new cron handler
func NewCronHandler(svc *meetingUsecase.Service, logger *zap.Logger) *Cron {
	return &Cron{svc: svc, logger: logger}
}

// Sweep handles POST /cron/meetings: promotes due scheduled meetings and
// completes meetings past their duration budget
// @Summary      Scheduler sweep
// @Tags         Cron
// @Produce      json
// @Param        X-Cron-Secret  header    string  true  "Shared cron secret"
// @Success      200  {object}  meeting.SweepResponse
// @Router       /cron/meetings [post]
func (h *Cron) Sweep(c echo.Context) error {
	started, ended, err := h.svc.RunScheduledSweep(c.Request().Context(), time.Now())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, meetingdto.SweepResponse{Started: started, Ended: ended})
}
