package meeting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnquangdev/warroom/internal/domain/entities"
)

// DecisionAction is what the chairperson decided to do
type DecisionAction string

const (
	DecisionContinue  DecisionAction = "continue"
	DecisionIntervene DecisionAction = "intervene"
	DecisionWrapUp    DecisionAction = "wrap_up"
)

// Decision is the chairperson's verdict for the current moment of a meeting
type Decision struct {
	Action         DecisionAction `json:"action"`
	Instruction    string         `json:"instruction,omitempty"`
	TargetAgentID  string         `json:"target_agent_id,omitempty"`
	SuggestedPhase string         `json:"suggested_phase,omitempty"`
}

// AuditResult is the SMART evaluation of a meeting conclusion
type AuditResult struct {
	Passed   bool   `json:"passed"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ParseDecision parses a generated chairperson decision, rejecting anything
// without a recognized action
func ParseDecision(raw string) (*Decision, error) {
	var decision Decision
	if err := json.Unmarshal([]byte(extractJSON(raw)), &decision); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}

	switch decision.Action {
	case DecisionContinue, DecisionIntervene, DecisionWrapUp:
		return &decision, nil
	default:
		return nil, fmt.Errorf("unknown decision action %q", decision.Action)
	}
}

// ParseAuditResult parses a generated SMART audit. Passed is recomputed from
// the score so the threshold cannot drift with the model's own judgement.
func ParseAuditResult(raw string) (*AuditResult, error) {
	var result AuditResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse audit result: %w", err)
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("audit score %d out of range", result.Score)
	}
	result.Passed = result.Score >= smartPassScore
	return &result, nil
}

// ParseMinutesContent parses generated minutes, rejecting documents without
// an executive summary
func ParseMinutesContent(raw string) (*entities.MinutesContent, error) {
	var content entities.MinutesContent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &content); err != nil {
		return nil, fmt.Errorf("failed to parse minutes: %w", err)
	}

	if content.ExecutiveSummary == "" {
		return nil, fmt.Errorf("missing executive_summary in minutes")
	}

	// Ensure collections are initialized
	if content.DepartmentPositions == nil {
		content.DepartmentPositions = make([]entities.DepartmentPosition, 0)
	}
	if content.ConsultantInsights == nil {
		content.ConsultantInsights = make([]entities.ConsultantInsight, 0)
	}
	if content.ConsensusPoints == nil {
		content.ConsensusPoints = make([]string, 0)
	}
	if content.DivergencePoints == nil {
		content.DivergencePoints = make([]string, 0)
	}
	if content.RecommendedActions == nil {
		content.RecommendedActions = make([]entities.RecommendedAction, 0)
	}
	if content.Statistics.SpeakerCounts == nil {
		content.Statistics.SpeakerCounts = make(map[string]int)
	}

	return &content, nil
}

// extractJSON extracts JSON content from markdown code blocks or plain text
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Check if wrapped in markdown code block
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
