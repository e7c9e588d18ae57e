package meeting

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/warroom/errors"
	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// TurnLocker serializes turn processing per meeting. Sequence numbers are
// derived from history length at turn start, so at most one turn per meeting
// may be in flight.
type TurnLocker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Config holds orchestration tuning knobs
type Config struct {
	// ChairpersonInterval consults the chairperson every N turns; 0 disables
	ChairpersonInterval int
	// DefaultDuration is the meeting duration budget in minutes when the
	// caller does not set one
	DefaultDuration int
}

// Deps bundles the service's collaborators
type Deps struct {
	MeetingRepo     repositories.MeetingRepository
	ParticipantRepo repositories.ParticipantRepository
	MessageRepo     repositories.MessageRepository
	MinutesRepo     repositories.MinutesRepository
	KnowledgeRepo   repositories.KnowledgeRepository
	Scheduler       *Scheduler
	Isolator        *Isolator
	Chairperson     *Chairperson
	MinutesGen      *MinutesGenerator
	Citations       *CitationValidator
	Generator       Generator
	Locker          TurnLocker
	Logger          *zap.Logger
}

// Service orchestrates meetings: it runs turns end-to-end, interleaves the
// chairperson, and drives the meeting lifecycle through to minutes.
type Service struct {
	meetingRepo     repositories.MeetingRepository
	participantRepo repositories.ParticipantRepository
	messageRepo     repositories.MessageRepository
	minutesRepo     repositories.MinutesRepository
	knowledgeRepo   repositories.KnowledgeRepository

	scheduler   *Scheduler
	isolator    *Isolator
	chairperson *Chairperson
	minutesGen  *MinutesGenerator
	citations   *CitationValidator
	generator   Generator
	locker      TurnLocker
	logger      *zap.Logger
	cfg         Config
}

// NewService creates the meeting orchestrator. A missing generation service
// is a construction-time failure.
func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("meeting service requires a generation service")
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 30
	}
	return &Service{
		meetingRepo:     deps.MeetingRepo,
		participantRepo: deps.ParticipantRepo,
		messageRepo:     deps.MessageRepo,
		minutesRepo:     deps.MinutesRepo,
		knowledgeRepo:   deps.KnowledgeRepo,
		scheduler:       deps.Scheduler,
		isolator:        deps.Isolator,
		chairperson:     deps.Chairperson,
		minutesGen:      deps.MinutesGen,
		citations:       deps.Citations,
		generator:       deps.Generator,
		locker:          deps.Locker,
		logger:          deps.Logger,
		cfg:             cfg,
	}, nil
}

// CreateMeetingInput is the payload for CreateMeeting
type CreateMeetingInput struct {
	UserID             uuid.UUID
	Title              string
	Topic              string
	Mode               entities.MeetingMode
	DurationMinutes    int
	MaxTurns           *int
	Settings           *entities.MeetingSettings
	ScheduledStartTime *time.Time
	DepartmentIDs      []uuid.UUID
	AgentIDs           []uuid.UUID
}

// CreateMeeting inserts the meeting and snapshots its roster. Participant
// names are copied at creation time; later renames of the source department
// or agent do not propagate. A future start time schedules the meeting,
// otherwise it starts immediately.
func (s *Service) CreateMeeting(ctx context.Context, input CreateMeetingInput) (*entities.Meeting, []*entities.MeetingParticipant, error) {
	departments, err := s.knowledgeRepo.FindDepartmentsByIDs(ctx, input.DepartmentIDs)
	if err != nil {
		return nil, nil, apperrors.ErrMeetingCreationFailed(err)
	}
	agents, err := s.knowledgeRepo.FindAgentsByIDs(ctx, input.AgentIDs)
	if err != nil {
		return nil, nil, apperrors.ErrMeetingCreationFailed(err)
	}

	if missing := firstMissing(input.DepartmentIDs, departmentIDs(departments)); missing != uuid.Nil {
		return nil, nil, apperrors.ErrParticipantNotFound(missing.String())
	}
	if missing := firstMissing(input.AgentIDs, agentIDs(agents)); missing != uuid.Nil {
		return nil, nil, apperrors.ErrParticipantNotFound(missing.String())
	}
	if len(departments)+len(agents) == 0 {
		return nil, nil, apperrors.ErrNoParticipants()
	}

	settings := entities.DefaultMeetingSettings()
	if input.Settings != nil {
		settings = *input.Settings
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, nil, apperrors.ErrMeetingCreationFailed(err)
	}

	mode := input.Mode
	if mode == "" {
		mode = entities.MeetingModeDeepDive
	}
	duration := input.DurationMinutes
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}

	meeting := &entities.Meeting{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Title:           input.Title,
		Topic:           input.Topic,
		Mode:            mode,
		CurrentPhase:    entities.MeetingPhaseDiverge,
		DurationMinutes: duration,
		MaxTurns:        input.MaxTurns,
		Settings:        settingsJSON,
	}

	now := time.Now()
	if input.ScheduledStartTime != nil && input.ScheduledStartTime.After(now) {
		meeting.Status = entities.MeetingStatusScheduled
		meeting.ScheduledStartTime = input.ScheduledStartTime
	} else {
		meeting.Status = entities.MeetingStatusInProgress
		meeting.StartedAt = &now
	}

	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, nil, apperrors.ErrMeetingCreationFailed(err)
	}

	roster := make([]*entities.MeetingParticipant, 0, len(departments)+len(agents))
	for _, d := range departments {
		roster = append(roster, &entities.MeetingParticipant{
			ID:              uuid.New(),
			MeetingID:       meeting.ID,
			ParticipantID:   d.ID,
			ParticipantType: entities.ParticipantTypeDepartment,
			Name:            d.Name,
			RoleDescription: d.Description,
		})
	}
	for _, a := range agents {
		roster = append(roster, &entities.MeetingParticipant{
			ID:              uuid.New(),
			MeetingID:       meeting.ID,
			ParticipantID:   a.ID,
			ParticipantType: entities.ParticipantTypeConsultant,
			Name:            a.Name,
			Avatar:          a.AvatarURL,
			RoleDescription: a.Description,
		})
	}

	if err := s.participantRepo.CreateBatch(ctx, roster); err != nil {
		return nil, nil, apperrors.ErrMeetingCreationFailed(err)
	}

	s.logger.Info("meeting created",
		zap.String("meeting_id", meeting.ID.String()),
		zap.String("status", string(meeting.Status)),
		zap.Int("participants", len(roster)))

	return meeting, roster, nil
}

// StartMeeting transitions the meeting to in_progress. Idempotent when the
// meeting is already running.
func (s *Service) StartMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if meeting.IsActive() {
		return meeting, nil
	}
	if meeting.IsCompleted() {
		return nil, apperrors.ErrMeetingCompleted(meetingID.String())
	}
	if !meeting.CanStart() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	acquired, err := s.locker.Acquire(ctx, meetingID.String())
	if err != nil {
		return nil, apperrors.ErrCacheFailed("acquire turn lock", err)
	}
	if !acquired {
		return nil, apperrors.ErrTurnInProgress(meetingID.String())
	}
	defer s.releaseLock(meetingID)

	// Re-load under the lock: the status may have moved since the first check
	meeting, err = s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsActive() {
		return meeting, nil
	}
	if !meeting.CanStart() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	meeting.Start()
	if err := s.meetingRepo.Update(ctx, meeting); err != nil {
		return nil, apperrors.ErrDBQueryFailed("start meeting", err)
	}

	s.logger.Info("meeting started", zap.String("meeting_id", meeting.ID.String()))
	return meeting, nil
}

// PauseMeeting suspends an active meeting; StartMeeting resumes it without
// resetting the clock. The turn lock is held across the status change so a
// pause cannot land in the middle of a running turn.
func (s *Service) PauseMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	acquired, err := s.locker.Acquire(ctx, meetingID.String())
	if err != nil {
		return nil, apperrors.ErrCacheFailed("acquire turn lock", err)
	}
	if !acquired {
		return nil, apperrors.ErrTurnInProgress(meetingID.String())
	}
	defer s.releaseLock(meetingID)

	meeting, err = s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	if err := s.meetingRepo.UpdateStatus(ctx, meetingID, entities.MeetingStatusPaused); err != nil {
		return nil, apperrors.ErrDBQueryFailed("pause meeting", err)
	}
	meeting.Status = entities.MeetingStatusPaused

	s.logger.Info("meeting paused", zap.String("meeting_id", meeting.ID.String()))
	return meeting, nil
}

// GetMeeting retrieves a meeting and its roster
func (s *Service) GetMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, []*entities.MeetingParticipant, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.participantRepo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, nil, apperrors.ErrDBQueryFailed("load roster", err)
	}
	return meeting, roster, nil
}

// ListMeetings retrieves meetings with filters
func (s *Service) ListMeetings(ctx context.Context, filters repositories.MeetingFilters) ([]*entities.Meeting, int64, error) {
	meetings, total, err := s.meetingRepo.List(ctx, filters)
	if err != nil {
		return nil, 0, apperrors.ErrDBQueryFailed("list meetings", err)
	}
	return meetings, total, nil
}

// ListMessages retrieves the ordered transcript of a meeting
func (s *Service) ListMessages(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingMessage, error) {
	if _, err := s.loadMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("load transcript", err)
	}
	return messages, nil
}

// PostUserMessage appends a user statement to the transcript. It takes the
// turn lock briefly so a user message cannot race a running turn on the
// sequence number.
func (s *Service) PostUserMessage(ctx context.Context, meetingID uuid.UUID, speakerName, content string) (*entities.MeetingMessage, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	acquired, err := s.locker.Acquire(ctx, meetingID.String())
	if err != nil {
		return nil, apperrors.ErrCacheFailed("acquire turn lock", err)
	}
	if !acquired {
		return nil, apperrors.ErrTurnInProgress(meetingID.String())
	}
	defer s.releaseLock(meetingID)

	meeting, err = s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}

	last, err := s.messageRepo.FindLast(ctx, meetingID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("load last message", err)
	}
	sequence := 1
	if last != nil {
		sequence = last.SequenceNumber + 1
	}

	message := &entities.MeetingMessage{
		ID:             uuid.New(),
		MeetingID:      meetingID,
		SpeakerType:    entities.SpeakerTypeUser,
		SpeakerName:    speakerName,
		Content:        content,
		Citations:      []byte("[]"),
		Metadata:       []byte("{}"),
		SequenceNumber: sequence,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, apperrors.ErrDBQueryFailed("append user message", err)
	}
	return message, nil
}

// ProcessNextTurn runs one turn of the meeting and returns a frame stream:
// one speaker frame, zero or more text frames, then done or error. A nil
// channel with a nil error means no turn was run (the meeting is not active,
// or it just hit its time or turn budget and was completed); invoking turn
// processing against a non-active meeting is safe and idle, not an error.
func (s *Service) ProcessNextTurn(ctx context.Context, meetingID uuid.UUID) (<-chan TurnFrame, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return nil, nil
	}

	acquired, err := s.locker.Acquire(ctx, meetingID.String())
	if err != nil {
		return nil, apperrors.ErrCacheFailed("acquire turn lock", err)
	}
	if !acquired {
		return nil, apperrors.ErrTurnInProgress(meetingID.String())
	}

	// Re-load under the lock. The pre-lock snapshot may be stale: EndMeeting
	// can complete the meeting between the first check and the acquisition,
	// and a turn must never run against a completed meeting.
	meeting, err = s.loadMeeting(ctx, meetingID)
	if err != nil {
		s.releaseLock(meetingID)
		return nil, err
	}
	if !meeting.IsActive() {
		s.releaseLock(meetingID)
		return nil, nil
	}

	// Budget check happens inside the lock so it cannot race a turn
	if meeting.IsOvertime(time.Now()) || meeting.ReachedTurnCap() {
		defer s.releaseLock(meetingID)
		if _, err := s.completeMeeting(ctx, meeting); err != nil {
			s.logger.Error("failed to complete over-budget meeting",
				zap.String("meeting_id", meetingID.String()),
				zap.Error(err))
		}
		return nil, nil
	}

	roster, err := s.participantRepo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		s.releaseLock(meetingID)
		return nil, apperrors.ErrDBQueryFailed("load roster", err)
	}
	if len(roster) == 0 {
		s.releaseLock(meetingID)
		return nil, apperrors.ErrNoParticipants()
	}

	history, err := s.messageRepo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		s.releaseLock(meetingID)
		return nil, apperrors.ErrDBQueryFailed("load transcript", err)
	}

	out := make(chan TurnFrame, 8)
	go s.runTurn(ctx, meeting, roster, history, out)
	return out, nil
}

// runTurn executes the turn pipeline. The lock is held until the stream
// terminates; exactly one participant message is persisted on success and
// none on failure or cancellation.
func (s *Service) runTurn(ctx context.Context, meeting *entities.Meeting, roster []*entities.MeetingParticipant, history []*entities.MeetingMessage, out chan<- TurnFrame) {
	defer close(out)
	defer s.releaseLock(meeting.ID)

	var override *entities.MeetingParticipant

	// Chairperson interleave
	if s.chairperson != nil && s.cfg.ChairpersonInterval > 0 &&
		meeting.TurnCount > 0 && meeting.TurnCount%s.cfg.ChairpersonInterval == 0 {
		decision := s.chairperson.Evaluate(ctx, meeting, history, roster, buildTimeContext(meeting))

		switch decision.Action {
		case DecisionIntervene:
			msg, err := s.persistChairpersonMessage(ctx, meeting, history, decision.Instruction)
			if err != nil {
				out <- TurnFrame{Type: TurnFrameError, Error: err.Error()}
				return
			}
			if msg != nil {
				history = append(history, msg)
			}
			if phase, ok := parsePhase(decision.SuggestedPhase); ok && meeting.AdvancePhase(phase) {
				if err := s.meetingRepo.Update(ctx, meeting); err != nil {
					s.logger.Warn("failed to persist phase change",
						zap.String("meeting_id", meeting.ID.String()),
						zap.Error(err))
				}
			}
			if target, err := uuid.Parse(decision.TargetAgentID); err == nil {
				for _, p := range roster {
					if p.ID == target {
						override = p
						break
					}
				}
			}

		case DecisionWrapUp:
			instruction := decision.Instruction
			if instruction == "" {
				instruction = "We have what we need. Let us wrap up the meeting here."
			}
			msg, err := s.persistChairpersonMessage(ctx, meeting, history, instruction)
			if err != nil {
				out <- TurnFrame{Type: TurnFrameError, Error: err.Error()}
				return
			}
			if _, err := s.completeMeeting(ctx, meeting); err != nil {
				s.logger.Error("wrap-up completion failed",
					zap.String("meeting_id", meeting.ID.String()),
					zap.Error(err))
			}
			out <- TurnFrame{Type: TurnFrameDone, Message: msg}
			return
		}
	}

	speaker := override
	if speaker == nil {
		speaker = s.scheduler.NextSpeaker(parseSettings(meeting), roster, history)
	}
	if speaker == nil {
		out <- TurnFrame{Type: TurnFrameError, Error: apperrors.ErrNoParticipants().Error()}
		return
	}

	out <- TurnFrame{Type: TurnFrameSpeaker, Speaker: &SpeakerAnnouncement{
		ParticipantID: speaker.ID,
		Name:          speaker.Name,
		Type:          speaker.ParticipantType,
	}}

	prompt, items := s.isolator.BuildPrompt(ctx, speaker, meeting.Topic, renderTranscript(history))

	chunks, err := s.generator.GenerateContentStream(ctx, prompt)
	if err != nil {
		out <- TurnFrame{Type: TurnFrameError, Error: apperrors.ErrGenerationFailed(err).Error()}
		return
	}

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			// Cancelled or broken streams persist nothing; the turn is
			// discarded wholesale and safe to retry
			out <- TurnFrame{Type: TurnFrameError, Error: apperrors.ErrGenerationFailed(chunk.Err).Error()}
			return
		}
		out <- TurnFrame{Type: TurnFrameText, Text: chunk.Text}
		full.WriteString(chunk.Text)
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		out <- TurnFrame{Type: TurnFrameError, Error: apperrors.ErrGenerationFailed(fmt.Errorf("empty generation output")).Error()}
		return
	}

	message, warning, err := s.persistTurnMessage(ctx, meeting, speaker, history, text, items)
	if err != nil {
		out <- TurnFrame{Type: TurnFrameError, Error: err.Error()}
		return
	}

	// Narrow column update: a full save of the in-memory entity could write
	// stale fields over concurrent lifecycle changes
	if err := s.meetingRepo.IncrementTurnCount(ctx, meeting.ID); err != nil {
		s.logger.Warn("failed to persist turn count",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Error(err))
	}

	out <- TurnFrame{Type: TurnFrameDone, Message: message, Warning: warning}
}

// persistTurnMessage validates citations and appends the turn's message with
// the next sequence number
func (s *Service) persistTurnMessage(ctx context.Context, meeting *entities.Meeting, speaker *entities.MeetingParticipant, history []*entities.MeetingMessage, text string, items []KnowledgeItem) (*entities.MeetingMessage, string, error) {
	warning := ""
	metadataJSON := []byte("{}")
	citationsJSON := []byte("[]")

	if s.citations != nil {
		validation := s.citations.Validate(ctx, text, speaker)
		warning = validation.WarningMessage

		cited := make([]entities.Citation, 0)
		for _, name := range validation.ValidCitations {
			citation := entities.Citation{FileName: name}
			for _, item := range items {
				if item.Filename == name || strings.Contains(item.Filename, name) || strings.Contains(name, item.Filename) {
					citation.FileID = item.FileID
					citation.FileName = item.Filename
					break
				}
			}
			cited = append(cited, citation)
		}
		if b, err := json.Marshal(cited); err == nil {
			citationsJSON = b
		}
		if validation.HasSuspectedHallucinations {
			if b, err := json.Marshal(map[string]any{"citation_validation": validation}); err == nil {
				metadataJSON = b
			}
		}
	}

	speakerID := speaker.ID
	message := &entities.MeetingMessage{
		ID:             uuid.New(),
		MeetingID:      meeting.ID,
		SpeakerID:      &speakerID,
		SpeakerType:    entities.SpeakerType(speaker.ParticipantType),
		SpeakerName:    speaker.Name,
		Content:        text,
		Citations:      citationsJSON,
		Metadata:       metadataJSON,
		SequenceNumber: len(history) + 1,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, "", apperrors.ErrTurnFailed(err)
	}
	return message, warning, nil
}

// persistChairpersonMessage appends a chairperson instruction. An empty
// instruction persists nothing and returns nil.
func (s *Service) persistChairpersonMessage(ctx context.Context, meeting *entities.Meeting, history []*entities.MeetingMessage, instruction string) (*entities.MeetingMessage, error) {
	if instruction == "" {
		return nil, nil
	}
	message := &entities.MeetingMessage{
		ID:             uuid.New(),
		MeetingID:      meeting.ID,
		SpeakerType:    entities.SpeakerTypeChairperson,
		SpeakerName:    "Chairperson",
		Content:        instruction,
		Citations:      []byte("[]"),
		Metadata:       []byte("{}"),
		SequenceNumber: len(history) + 1,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, apperrors.ErrTurnFailed(err)
	}
	return message, nil
}

// EndMeeting completes the meeting and generates its minutes. Idempotent for
// already-completed meetings.
func (s *Service) EndMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if meeting.IsCompleted() {
		minutes, err := s.minutesRepo.FindByMeetingID(ctx, meetingID)
		if err == nil {
			return minutes, nil
		}
		// Completed without minutes (earlier generation failure): re-derive
		return s.generateMinutes(ctx, meeting)
	}

	acquired, err := s.locker.Acquire(ctx, meetingID.String())
	if err != nil {
		return nil, apperrors.ErrCacheFailed("acquire turn lock", err)
	}
	if !acquired {
		return nil, apperrors.ErrTurnInProgress(meetingID.String())
	}
	defer s.releaseLock(meetingID)

	meeting, err = s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.IsCompleted() {
		minutes, err := s.minutesRepo.FindByMeetingID(ctx, meetingID)
		if err == nil {
			return minutes, nil
		}
		return s.generateMinutes(ctx, meeting)
	}

	return s.completeMeeting(ctx, meeting)
}

// completeMeeting marks the meeting completed, advances to the audit phase,
// generates minutes, and SMART-scores the conclusion in result-driven mode.
// Callers hold the turn lock.
func (s *Service) completeMeeting(ctx context.Context, meeting *entities.Meeting) (*entities.MeetingMinutes, error) {
	meeting.AdvancePhase(entities.MeetingPhaseAudit)
	meeting.End()
	if err := s.meetingRepo.Update(ctx, meeting); err != nil {
		return nil, apperrors.ErrDBQueryFailed("complete meeting", err)
	}

	s.logger.Info("meeting completed",
		zap.String("meeting_id", meeting.ID.String()),
		zap.Int("turns", meeting.TurnCount))

	return s.generateMinutes(ctx, meeting)
}

// generateMinutes derives and persists minutes from the full transcript
func (s *Service) generateMinutes(ctx context.Context, meeting *entities.Meeting) (*entities.MeetingMinutes, error) {
	messages, err := s.messageRepo.FindByMeetingID(ctx, meeting.ID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("load transcript", err)
	}
	roster, err := s.participantRepo.FindByMeetingID(ctx, meeting.ID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("load roster", err)
	}

	minutes, err := s.minutesGen.Generate(ctx, meeting, messages, roster)
	if err != nil {
		return nil, apperrors.ErrMinutesGenerationFailed(err)
	}

	if meeting.Mode == entities.MeetingModeResultDriven && s.chairperson != nil {
		audit := s.chairperson.AuditConclusion(ctx, minutes.ExecutiveSummary)
		meeting.SmartScore = &audit.Score
		if err := s.meetingRepo.Update(ctx, meeting); err != nil {
			s.logger.Warn("failed to persist SMART score",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
		s.logger.Info("conclusion audited",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Int("score", audit.Score),
			zap.Bool("passed", audit.Passed))
	}

	return minutes, nil
}

// GetMinutes retrieves the minutes of a meeting
func (s *Service) GetMinutes(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error) {
	minutes, err := s.minutesRepo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMinutesNotReady(meetingID.String())
		}
		return nil, apperrors.ErrDBQueryFailed("load minutes", err)
	}
	return minutes, nil
}

// RegenerateMinutes re-derives minutes from the same transcript. Only valid
// for completed meetings.
func (s *Service) RegenerateMinutes(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error) {
	meeting, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsCompleted() {
		return nil, apperrors.ErrMeetingNotActive(meetingID.String(), string(meeting.Status))
	}
	return s.generateMinutes(ctx, meeting)
}

// RunScheduledSweep promotes due scheduled meetings to in_progress and
// completes meetings past their duration budget. Invoked by an external
// cron tick; the engine does not run its own scheduler thread.
func (s *Service) RunScheduledSweep(ctx context.Context, now time.Time) (started, ended int, err error) {
	due, err := s.meetingRepo.FindDueScheduled(ctx, now)
	if err != nil {
		return 0, 0, apperrors.ErrDBQueryFailed("find due meetings", err)
	}
	for _, m := range due {
		// StartMeeting holds the turn lock and re-checks the status, so a
		// promotion cannot race another lifecycle change
		if _, err := s.StartMeeting(ctx, m.ID); err != nil {
			s.logger.Error("failed to promote scheduled meeting",
				zap.String("meeting_id", m.ID.String()),
				zap.Error(err))
			continue
		}
		started++
	}

	active, err := s.meetingRepo.FindActive(ctx)
	if err != nil {
		return started, 0, apperrors.ErrDBQueryFailed("find active meetings", err)
	}
	for _, m := range active {
		if !m.IsOvertime(now) {
			continue
		}
		acquired, err := s.locker.Acquire(ctx, m.ID.String())
		if err != nil || !acquired {
			continue // a turn is running; the turn path will catch the budget
		}
		fresh, err := s.loadMeeting(ctx, m.ID)
		if err != nil || !fresh.IsActive() || !fresh.IsOvertime(now) {
			s.releaseLock(m.ID)
			continue
		}
		if _, err := s.completeMeeting(ctx, fresh); err != nil {
			s.logger.Error("failed to complete overtime meeting",
				zap.String("meeting_id", fresh.ID.String()),
				zap.Error(err))
		} else {
			ended++
		}
		s.releaseLock(m.ID)
	}

	return started, ended, nil
}

// loadMeeting fetches a meeting, mapping missing rows to the typed not-found
// error
func (s *Service) loadMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMeetingNotFound(meetingID.String())
		}
		return nil, apperrors.ErrDBQueryFailed("load meeting", err)
	}
	return meeting, nil
}

func (s *Service) releaseLock(meetingID uuid.UUID) {
	if err := s.locker.Release(context.Background(), meetingID.String()); err != nil {
		s.logger.Warn("failed to release turn lock",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err))
	}
}

// Helpers

// parseSettings decodes the settings jsonb, falling back to defaults
func parseSettings(meeting *entities.Meeting) entities.MeetingSettings {
	settings := entities.DefaultMeetingSettings()
	if len(meeting.Settings) > 0 {
		_ = json.Unmarshal(meeting.Settings, &settings)
	}
	return settings
}

// buildTimeContext computes where the meeting stands against its budget
func buildTimeContext(meeting *entities.Meeting) *TimeContext {
	if meeting.StartedAt == nil || meeting.DurationMinutes <= 0 {
		return nil
	}
	elapsed := time.Since(*meeting.StartedAt).Minutes()
	total := meeting.DurationMinutes
	return &TimeContext{
		ElapsedMinutes:   elapsed,
		TotalMinutes:     total,
		RemainingMinutes: float64(total) - elapsed,
		Progress:         elapsed / float64(total) * 100,
	}
}

// renderTranscript flattens the transcript for prompt context
func renderTranscript(history []*entities.MeetingMessage) string {
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "[%s (%s)]: %s\n", m.SpeakerName, m.SpeakerType, m.Content)
	}
	return sb.String()
}

func parsePhase(raw string) (entities.MeetingPhase, bool) {
	switch entities.MeetingPhase(raw) {
	case entities.MeetingPhaseDiverge, entities.MeetingPhaseDebate, entities.MeetingPhaseConverge, entities.MeetingPhaseAudit:
		return entities.MeetingPhase(raw), true
	default:
		return "", false
	}
}

func departmentIDs(departments []*entities.Department) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(departments))
	for _, d := range departments {
		ids[d.ID] = true
	}
	return ids
}

func agentIDs(agents []*entities.Agent) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(agents))
	for _, a := range agents {
		ids[a.ID] = true
	}
	return ids
}

// firstMissing returns the first requested ID absent from found, or uuid.Nil
func firstMissing(requested []uuid.UUID, found map[uuid.UUID]bool) uuid.UUID {
	for _, id := range requested {
		if !found[id] {
			return id
		}
	}
	return uuid.Nil
}
