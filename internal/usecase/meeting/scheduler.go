package meeting

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// consultantPriorityStreak is how many consecutive department messages hand
// the floor to a consultant when consultant_priority is high
const consultantPriorityStreak = 3

// Scheduler selects the next speaker from the roster. It is a pure function
// of the meeting settings, the roster and the transcript; speak counts are
// derived from the transcript on every call so restarts cannot skew rotation.
type Scheduler struct {
	rng *rand.Rand
}

// NewScheduler creates a scheduler with the given randomness source.
// Tests inject a seeded source for determinism.
func NewScheduler(rng *rand.Rand) *Scheduler {
	return &Scheduler{rng: rng}
}

// NextSpeaker picks who speaks next:
//  1. a user message naming a participant hands them the floor;
//  2. with consultant_priority=high, three consecutive department messages
//     hand the floor to the least-spoken consultant;
//  3. otherwise the least-spoken participant speaks, excluding the previous
//     speaker when the roster allows, random tie-break.
//
// Returns nil for an empty roster.
func (s *Scheduler) NextSpeaker(settings entities.MeetingSettings, roster []*entities.MeetingParticipant, history []*entities.MeetingMessage) *entities.MeetingParticipant {
	if len(roster) == 0 {
		return nil
	}

	var lastMessage *entities.MeetingMessage
	if len(history) > 0 {
		lastMessage = history[len(history)-1]
	}

	// 1. User mentioned someone by name? Substring match against roster names.
	if lastMessage != nil && lastMessage.SpeakerType == entities.SpeakerTypeUser {
		for _, p := range roster {
			if strings.Contains(lastMessage.Content, p.Name) {
				return p
			}
		}
	}

	counts := speakCounts(roster, history)

	// 2. Consultant priority override
	if settings.ConsultantPriority == "high" {
		consultants := make([]*entities.MeetingParticipant, 0)
		for _, p := range roster {
			if p.IsConsultant() {
				consultants = append(consultants, p)
			}
		}
		if len(consultants) > 0 && trailingDepartmentStreak(history) >= consultantPriorityStreak {
			return s.leastSpokenAmong(consultants, counts)
		}
	}

	// 3. Least spoken, avoiding an immediate self-reply when possible
	candidates := roster
	if lastMessage != nil && lastMessage.SpeakerID != nil && len(roster) > 1 {
		filtered := make([]*entities.MeetingParticipant, 0, len(roster)-1)
		for _, p := range roster {
			if p.ID != *lastMessage.SpeakerID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	return s.leastSpokenAmong(candidates, counts)
}

// leastSpokenAmong returns a random member of the group with the minimum
// speak count
func (s *Scheduler) leastSpokenAmong(group []*entities.MeetingParticipant, counts map[uuid.UUID]int) *entities.MeetingParticipant {
	minCount := -1
	var candidates []*entities.MeetingParticipant

	for _, p := range group {
		count := counts[p.ID]
		switch {
		case minCount < 0 || count < minCount:
			minCount = count
			candidates = []*entities.MeetingParticipant{p}
		case count == minCount:
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// speakCounts tallies transcript messages per roster entry, skipping user
// and system speakers
func speakCounts(roster []*entities.MeetingParticipant, history []*entities.MeetingMessage) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(roster))
	for _, p := range roster {
		counts[p.ID] = 0
	}
	for _, msg := range history {
		if msg.SpeakerType == entities.SpeakerTypeUser || msg.SpeakerType == entities.SpeakerTypeSystem {
			continue
		}
		if msg.SpeakerID != nil {
			if _, ok := counts[*msg.SpeakerID]; ok {
				counts[*msg.SpeakerID]++
			}
		}
	}
	return counts
}

// trailingDepartmentStreak counts consecutive department messages at the end
// of the transcript
func trailingDepartmentStreak(history []*entities.MeetingMessage) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SpeakerType != entities.SpeakerTypeDepartment {
			break
		}
		streak++
	}
	return streak
}
