package entities

import (
	"testing"
	"time"
)

func TestAdvancePhaseForwardOnly(t *testing.T) {
	m := &Meeting{CurrentPhase: MeetingPhaseDebate}

	if m.AdvancePhase(MeetingPhaseDiverge) {
		t.Fatal("backward move must be rejected")
	}
	if m.CurrentPhase != MeetingPhaseDebate {
		t.Fatalf("phase changed on rejected move: %s", m.CurrentPhase)
	}
	if m.AdvancePhase(MeetingPhaseDebate) {
		t.Fatal("same-phase move must be rejected")
	}
	if !m.AdvancePhase(MeetingPhaseAudit) {
		t.Fatal("forward skip must be allowed")
	}
	if m.CurrentPhase != MeetingPhaseAudit {
		t.Fatalf("expected audit, got %s", m.CurrentPhase)
	}
	if m.AdvancePhase("retrospective") {
		t.Fatal("unknown phase must be rejected")
	}
}

func TestStartKeepsOriginalStartTime(t *testing.T) {
	m := &Meeting{Status: MeetingStatusPaused}
	original := time.Now().Add(-10 * time.Minute)
	m.StartedAt = &original

	m.Start()
	if !m.StartedAt.Equal(original) {
		t.Fatal("resuming must not reset the start time")
	}
	if m.Status != MeetingStatusInProgress {
		t.Fatalf("expected in_progress, got %s", m.Status)
	}
}

func TestBudgetChecks(t *testing.T) {
	started := time.Now().Add(-31 * time.Minute)
	m := &Meeting{Status: MeetingStatusInProgress, DurationMinutes: 30, StartedAt: &started}

	if !m.IsOvertime(time.Now()) {
		t.Fatal("31 of 30 minutes must be overtime")
	}

	unstarted := &Meeting{DurationMinutes: 30}
	if unstarted.IsOvertime(time.Now()) {
		t.Fatal("an unstarted meeting cannot be overtime")
	}

	limit := 5
	m.MaxTurns = &limit
	m.TurnCount = 5
	if !m.ReachedTurnCap() {
		t.Fatal("turn cap must trip at the limit")
	}
	m.MaxTurns = nil
	if m.ReachedTurnCap() {
		t.Fatal("no cap means no trip")
	}
}
