package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
	"github.com/johnquangdev/warroom/pkg/ai"
)

// MinutesExporter uploads rendered minutes to object storage
type MinutesExporter interface {
	UploadMarkdown(ctx context.Context, objectName string, content string) error
}

// MinutesGenerator derives structured minutes from a completed meeting's
// transcript. Regeneration overwrites the previous minutes in place.
type MinutesGenerator struct {
	generator   Generator
	minutesRepo repositories.MinutesRepository
	exporter    MinutesExporter // nil when object storage is disabled
	logger      *zap.Logger
}

// NewMinutesGenerator creates a minutes generator
func NewMinutesGenerator(generator Generator, minutesRepo repositories.MinutesRepository, exporter MinutesExporter, logger *zap.Logger) *MinutesGenerator {
	return &MinutesGenerator{
		generator:   generator,
		minutesRepo: minutesRepo,
		exporter:    exporter,
		logger:      logger,
	}
}

// Generate derives minutes from the full transcript and persists them.
// Statistics are computed from the transcript itself, not generated.
// A markdown rendition is exported to object storage; export failure never
// fails minutes persistence.
func (g *MinutesGenerator) Generate(ctx context.Context, meeting *entities.Meeting, messages []*entities.MeetingMessage, participants []*entities.MeetingParticipant) (*entities.MeetingMinutes, error) {
	prompt := buildMinutesPrompt(meeting, messages, participants)

	raw, err := g.generator.GenerateContent(ctx, prompt, &ai.GenerateOptions{JSONResponse: true})
	if err != nil {
		return nil, fmt.Errorf("minutes generation failed: %w", err)
	}

	content, err := ParseMinutesContent(raw)
	if err != nil {
		return nil, err
	}
	content.Statistics = computeStatistics(meeting, messages)

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode minutes: %w", err)
	}

	minutes := &entities.MeetingMinutes{
		MeetingID:        meeting.ID,
		ExecutiveSummary: content.ExecutiveSummary,
		Content:          contentJSON,
	}

	if g.exporter != nil {
		objectName := fmt.Sprintf("meeting-minutes/%s.md", meeting.ID)
		if err := g.exporter.UploadMarkdown(ctx, objectName, renderMarkdown(meeting, content)); err != nil {
			g.logger.Warn("minutes export failed",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		} else {
			minutes.ExportPath = &objectName
		}
	}

	if err := g.minutesRepo.Upsert(ctx, minutes); err != nil {
		return nil, fmt.Errorf("failed to persist minutes: %w", err)
	}

	return minutes, nil
}

func buildMinutesPrompt(meeting *entities.Meeting, messages []*entities.MeetingMessage, participants []*entities.MeetingParticipant) string {
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "[%s (%s)]: %s\n", m.SpeakerName, m.SpeakerType, m.Content)
	}

	var roster strings.Builder
	for _, p := range participants {
		fmt.Fprintf(&roster, "- %s (%s)\n", p.Name, p.ParticipantType)
	}

	return fmt.Sprintf(`You are the minutes writer for a concluded strategic meeting.
Summarize the transcript below into structured meeting minutes.

Meeting:
- Title: %s
- Topic: %s
- Mode: %s

Participants:
%s
Transcript:
%s

Output Format (JSON):
{
    "executive_summary": "2-4 sentence summary of the whole meeting",
    "department_positions": [
        {"department": "name", "position": "their final position", "stance": "support|oppose|neutral|conditional", "key_points": ["..."]}
    ],
    "consultant_insights": [
        {"consultant": "name", "insight": "their main contribution"}
    ],
    "consensus_points": ["points everyone agreed on"],
    "divergence_points": ["points left unresolved"],
    "recommended_actions": [
        {"action": "what to do", "owner": "who", "deadline": "when", "measurable": "how success is measured"}
    ],
    "statistics": {}
}

Recommended actions must be SMART: specific, measurable, achievable, relevant and time-bound.
Base everything strictly on the transcript; do not invent positions nobody took.`,
		meeting.Title, meeting.Topic, meeting.Mode, roster.String(), transcript.String())
}

// computeStatistics tallies the transcript; chairperson interventions count
// as messages but not turns
func computeStatistics(meeting *entities.Meeting, messages []*entities.MeetingMessage) entities.MinutesStatistics {
	stats := entities.MinutesStatistics{
		TotalMessages: len(messages),
		TotalTurns:    meeting.TurnCount,
		SpeakerCounts: make(map[string]int),
	}
	for _, m := range messages {
		stats.SpeakerCounts[m.SpeakerName]++
	}
	if meeting.StartedAt != nil {
		end := time.Now()
		if meeting.EndedAt != nil {
			end = *meeting.EndedAt
		}
		stats.DurationMinutes = int(end.Sub(*meeting.StartedAt).Minutes())
	}
	return stats
}

// renderMarkdown produces the exported markdown rendition of the minutes
func renderMarkdown(meeting *entities.Meeting, content *entities.MinutesContent) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Meeting Minutes: %s\n\n", meeting.Title)
	fmt.Fprintf(&sb, "**Topic:** %s\n\n", meeting.Topic)
	fmt.Fprintf(&sb, "## Executive Summary\n\n%s\n\n", content.ExecutiveSummary)

	if len(content.DepartmentPositions) > 0 {
		sb.WriteString("## Department Positions\n\n")
		for _, p := range content.DepartmentPositions {
			fmt.Fprintf(&sb, "### %s (%s)\n\n%s\n\n", p.Department, p.Stance, p.Position)
			for _, kp := range p.KeyPoints {
				fmt.Fprintf(&sb, "- %s\n", kp)
			}
			if len(p.KeyPoints) > 0 {
				sb.WriteString("\n")
			}
		}
	}

	if len(content.ConsultantInsights) > 0 {
		sb.WriteString("## Consultant Insights\n\n")
		for _, ci := range content.ConsultantInsights {
			fmt.Fprintf(&sb, "- **%s**: %s\n", ci.Consultant, ci.Insight)
		}
		sb.WriteString("\n")
	}

	if len(content.ConsensusPoints) > 0 {
		sb.WriteString("## Consensus\n\n")
		for _, p := range content.ConsensusPoints {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
		sb.WriteString("\n")
	}

	if len(content.DivergencePoints) > 0 {
		sb.WriteString("## Open Disagreements\n\n")
		for _, p := range content.DivergencePoints {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
		sb.WriteString("\n")
	}

	if len(content.RecommendedActions) > 0 {
		sb.WriteString("## Recommended Actions\n\n")
		sb.WriteString("| Action | Owner | Deadline | Measure |\n|---|---|---|---|\n")
		for _, a := range content.RecommendedActions {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", a.Action, a.Owner, a.Deadline, a.Measurable)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "---\n\n%d messages over %d turns, %d minutes.\n",
		content.Statistics.TotalMessages, content.Statistics.TotalTurns, content.Statistics.DurationMinutes)

	return sb.String()
}
