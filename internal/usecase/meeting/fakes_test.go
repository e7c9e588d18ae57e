package meeting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
	"github.com/johnquangdev/warroom/pkg/ai"
)

// fakeGenerator scripts generation responses. Responses are consumed in
// order; the last one repeats.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	streamErr error
	calls     int
	streams   int
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, prompt string, opts *ai.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeGenerator) GenerateContentStream(ctx context.Context, prompt string) (<-chan ai.StreamChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan ai.StreamChunk, 4)
	streamErr := f.streamErr
	text := ""
	if len(f.responses) > 0 {
		text = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	go func() {
		defer close(out)
		if text != "" {
			out <- ai.StreamChunk{Text: text}
		}
		if streamErr != nil {
			out <- ai.StreamChunk{Err: streamErr}
		}
	}()
	return out, nil
}

func (f *fakeGenerator) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMeetingRepo stores meetings in memory. FindByID hands back detached
// copies, like a real row scan; an optional gate parks one load mid-flight
// so tests can interleave lifecycle changes.
type fakeMeetingRepo struct {
	mu          sync.Mutex
	meetings    map[uuid.UUID]*entities.Meeting
	findEntered chan struct{}
	findRelease chan struct{}
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[uuid.UUID]*entities.Meeting)}
}

// gateNextFind makes the next FindByID close entered after taking its
// snapshot and park until release is closed
func (r *fakeMeetingRepo) gateNextFind(entered, release chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findEntered = entered
	r.findRelease = release
}

func (r *fakeMeetingRepo) Create(ctx context.Context, meeting *entities.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings[meeting.ID] = meeting
	return nil
}

func (r *fakeMeetingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	r.mu.Lock()
	m, ok := r.meetings[id]
	var snapshot entities.Meeting
	if ok {
		snapshot = *m
	}
	entered, release := r.findEntered, r.findRelease
	if ok && entered != nil {
		r.findEntered, r.findRelease = nil, nil
	}
	r.mu.Unlock()

	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if entered != nil {
		close(entered)
		<-release
	}
	return &snapshot, nil
}

func (r *fakeMeetingRepo) Update(ctx context.Context, meeting *entities.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings[meeting.ID] = meeting
	return nil
}

func (r *fakeMeetingRepo) List(ctx context.Context, filters repositories.MeetingFilters) ([]*entities.Meeting, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Meeting
	for _, m := range r.meetings {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *fakeMeetingRepo) FindDueScheduled(ctx context.Context, now time.Time) ([]*entities.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*entities.Meeting
	for _, m := range r.meetings {
		if m.Status == entities.MeetingStatusScheduled && m.ScheduledStartTime != nil && !m.ScheduledStartTime.After(now) {
			due = append(due, m)
		}
	}
	return due, nil
}

func (r *fakeMeetingRepo) FindActive(ctx context.Context) ([]*entities.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*entities.Meeting
	for _, m := range r.meetings {
		if m.Status == entities.MeetingStatusInProgress {
			active = append(active, m)
		}
	}
	return active, nil
}

func (r *fakeMeetingRepo) UpdateStatus(ctx context.Context, meetingID uuid.UUID, status entities.MeetingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		m.Status = status
	}
	return nil
}

// setStartedAt rewinds a meeting's clock in place, for budget scenarios
func (r *fakeMeetingRepo) setStartedAt(ctx context.Context, meetingID uuid.UUID, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[meetingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.StartedAt = at
	return nil
}

func (r *fakeMeetingRepo) IncrementTurnCount(ctx context.Context, meetingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		m.TurnCount++
	}
	return nil
}

type fakeParticipantRepo struct {
	mu     sync.Mutex
	roster map[uuid.UUID][]*entities.MeetingParticipant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{roster: make(map[uuid.UUID][]*entities.MeetingParticipant)}
}

func (r *fakeParticipantRepo) CreateBatch(ctx context.Context, participants []*entities.MeetingParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range participants {
		r.roster[p.MeetingID] = append(r.roster[p.MeetingID], p)
	}
	return nil
}

func (r *fakeParticipantRepo) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster[meetingID], nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.MeetingParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, roster := range r.roster {
		for _, p := range roster {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []*entities.MeetingMessage
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entities.MeetingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.MeetingMessage
	for _, m := range r.messages {
		if m.MeetingID == meetingID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (r *fakeMessageRepo) FindLast(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMessage, error) {
	msgs, _ := r.FindByMeetingID(ctx, meetingID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[len(msgs)-1], nil
}

type fakeMinutesRepo struct {
	mu      sync.Mutex
	minutes map[uuid.UUID]*entities.MeetingMinutes
	upserts int
}

func newFakeMinutesRepo() *fakeMinutesRepo {
	return &fakeMinutesRepo{minutes: make(map[uuid.UUID]*entities.MeetingMinutes)}
}

func (r *fakeMinutesRepo) Upsert(ctx context.Context, minutes *entities.MeetingMinutes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	r.minutes[minutes.MeetingID] = minutes
	return nil
}

func (r *fakeMinutesRepo) FindByMeetingID(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingMinutes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.minutes[meetingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

type fakeKnowledgeRepo struct {
	departments  map[uuid.UUID]*entities.Department
	agents       map[uuid.UUID]*entities.Agent
	deptFiles    map[uuid.UUID][]*entities.KnowledgeFile
	agentFiles   map[uuid.UUID][]*entities.KnowledgeFile
	filenamesErr error
}

func newFakeKnowledgeRepo() *fakeKnowledgeRepo {
	return &fakeKnowledgeRepo{
		departments: make(map[uuid.UUID]*entities.Department),
		agents:      make(map[uuid.UUID]*entities.Agent),
		deptFiles:   make(map[uuid.UUID][]*entities.KnowledgeFile),
		agentFiles:  make(map[uuid.UUID][]*entities.KnowledgeFile),
	}
}

func (r *fakeKnowledgeRepo) FindDepartmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Department, error) {
	var out []*entities.Department
	for _, id := range ids {
		if d, ok := r.departments[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) FindAgentsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Agent, error) {
	var out []*entities.Agent
	for _, id := range ids {
		if a, ok := r.agents[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) FindAgentByID(ctx context.Context, id uuid.UUID) (*entities.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *fakeKnowledgeRepo) FindRecentFilesByDepartment(ctx context.Context, departmentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error) {
	return r.deptFiles[departmentID], nil
}

func (r *fakeKnowledgeRepo) FindRecentFilesByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*entities.KnowledgeFile, error) {
	return r.agentFiles[agentID], nil
}

func (r *fakeKnowledgeRepo) FindFilenamesByDepartment(ctx context.Context, departmentID uuid.UUID) ([]string, error) {
	if r.filenamesErr != nil {
		return nil, r.filenamesErr
	}
	var names []string
	for _, f := range r.deptFiles[departmentID] {
		names = append(names, f.Filename)
	}
	return names, nil
}

func (r *fakeKnowledgeRepo) FindFilenamesByAgent(ctx context.Context, agentID uuid.UUID) ([]string, error) {
	if r.filenamesErr != nil {
		return nil, r.filenamesErr
	}
	var names []string
	for _, f := range r.agentFiles[agentID] {
		names = append(names, f.Filename)
	}
	return names, nil
}

type fakeSearcher struct {
	deptItems  map[uuid.UUID][]KnowledgeItem
	agentItems map[uuid.UUID][]KnowledgeItem
	err        error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		deptItems:  make(map[uuid.UUID][]KnowledgeItem),
		agentItems: make(map[uuid.UUID][]KnowledgeItem),
	}
}

func (s *fakeSearcher) SearchDepartment(ctx context.Context, departmentID uuid.UUID, query string, threshold float64, limit int) ([]KnowledgeItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.deptItems[departmentID], nil
}

func (s *fakeSearcher) SearchAgent(ctx context.Context, agentID uuid.UUID, query string, threshold float64, limit int) ([]KnowledgeItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.agentItems[agentID], nil
}

// fakeLocker is an in-memory TurnLocker; held keys refuse acquisition
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
