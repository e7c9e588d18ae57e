package meeting

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/pkg/ai"
)

// smartPassScore is the minimum SMART audit score that counts as passed
const smartPassScore = 80

// transcriptTailChars bounds how much transcript goes into the decision prompt
const transcriptTailChars = 3000

// Generator produces text via the generation service. Satisfied by
// *ai.GeminiClient; tests substitute fakes.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, opts *ai.GenerateOptions) (string, error)
	GenerateContentStream(ctx context.Context, prompt string) (<-chan ai.StreamChunk, error)
}

// TimeContext describes where the meeting stands against its duration budget
type TimeContext struct {
	ElapsedMinutes   float64
	TotalMinutes     int
	RemainingMinutes float64
	Progress         float64 // 0-100
}

// Chairperson moderates the meeting: it decides when to let the discussion
// run, when to intervene, and when to wrap up, and audits conclusions
// against SMART criteria.
type Chairperson struct {
	generator Generator
	logger    *zap.Logger
}

// NewChairperson creates a chairperson. A missing generator is a
// construction-time failure, not a silently disabled moderator.
func NewChairperson(generator Generator, logger *zap.Logger) (*Chairperson, error) {
	if generator == nil {
		return nil, fmt.Errorf("chairperson requires a generation service")
	}
	return &Chairperson{generator: generator, logger: logger}, nil
}

// Evaluate decides the next move for the meeting. Generation or parse
// failures degrade to continue; Evaluate never fails a turn. When the last
// message came from the chairperson itself, it continues without any
// generation call.
func (c *Chairperson) Evaluate(ctx context.Context, meeting *entities.Meeting, messages []*entities.MeetingMessage, participants []*entities.MeetingParticipant, timeCtx *TimeContext) *Decision {
	// Loop guard: never react to our own intervention
	if len(messages) > 0 && messages[len(messages)-1].SpeakerType == entities.SpeakerTypeChairperson {
		return &Decision{Action: DecisionContinue}
	}

	prompt := c.buildDecisionPrompt(meeting, messages, participants, timeCtx)

	raw, err := c.generator.GenerateContent(ctx, prompt, &ai.GenerateOptions{JSONResponse: true})
	if err != nil {
		c.logger.Warn("chairperson evaluation failed, continuing",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Error(err))
		return &Decision{Action: DecisionContinue}
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		c.logger.Warn("chairperson decision unparseable, continuing",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Error(err))
		return &Decision{Action: DecisionContinue}
	}

	return decision
}

// AuditConclusion evaluates a conclusion against SMART criteria. Failures
// degrade to a not-passed result with diagnostic feedback.
func (c *Chairperson) AuditConclusion(ctx context.Context, conclusion string) *AuditResult {
	prompt := fmt.Sprintf(`You are the SMART Auditor. Evaluate the following conclusion/action plan against the SMART criteria:
1. Specific: Is it clear what needs to be done?
2. Measurable: Are there metrics to track success?
3. Achievable: Is it realistic?
4. Relevant: Does it matter?
5. Time-bound: Is there a deadline?

Input Text:
%q

Output Format (JSON):
{
    "passed": boolean,
    "score": number,
    "feedback": "Concise feedback. Point out missing SMART elements if any."
}

Score from 0 to 100; passed means score >= %d.`, conclusion, smartPassScore)

	raw, err := c.generator.GenerateContent(ctx, prompt, &ai.GenerateOptions{JSONResponse: true})
	if err != nil {
		c.logger.Warn("SMART audit generation failed", zap.Error(err))
		return &AuditResult{Passed: false, Score: 0, Feedback: "Audit failed due to a technical error."}
	}

	result, err := ParseAuditResult(raw)
	if err != nil {
		c.logger.Warn("SMART audit result unparseable", zap.Error(err))
		return &AuditResult{Passed: false, Score: 0, Feedback: "Audit produced an unreadable result."}
	}

	return result
}

// buildDecisionPrompt assembles the moderation prompt: meeting state, time
// pressure, roster and the transcript tail, with a mode-dependent strategy.
func (c *Chairperson) buildDecisionPrompt(meeting *entities.Meeting, messages []*entities.MeetingMessage, participants []*entities.MeetingParticipant, timeCtx *TimeContext) string {
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "[%s (%s)]: %s\n", m.SpeakerName, m.SpeakerType, m.Content)
	}
	contextStr := transcript.String()
	if len(contextStr) > transcriptTailChars {
		cut := len(contextStr) - transcriptTailChars
		// Never cut in the middle of a multi-byte rune
		for cut < len(contextStr) && !utf8.RuneStart(contextStr[cut]) {
			cut++
		}
		contextStr = contextStr[cut:]
	}

	var roster strings.Builder
	for _, p := range participants {
		fmt.Fprintf(&roster, "- %s (%s) [ID: %s]\n", p.Name, p.ParticipantType, p.ID)
	}

	timeStatus := "Not specified"
	if timeCtx != nil {
		timeStatus = fmt.Sprintf("- Elapsed: %.1f mins\n- Total: %d mins\n- Remaining: %.1f mins\n- Progress: %.0f%%",
			timeCtx.ElapsedMinutes, timeCtx.TotalMinutes, timeCtx.RemainingMinutes, timeCtx.Progress)
	}

	var strategy string
	if meeting.Mode == entities.MeetingModeDeepDive {
		strategy = `[MODE: DEEP DIVE]
1. Goal: Explore all angles, uncover hidden risks and opportunities.
2. Strategy:
   - 0-60% (Diverge): Maximize variance. Ask "What are we missing?". Play devil's advocate.
   - 60-80% (Debate): Clash differing or conflicting views.
   - 80-100% (Converge): Synthesize insights.
3. Intervention style: facilitator/coach. Use questions like "Have you considered...?"`
	} else {
		strategy = `[MODE: STRATEGIC DECISION]
1. Goal: Reach a clear GO/NO-GO decision or a concrete action plan.
2. Strategy:
   - 0-30% (Diverge): Quick scan of options. Don't linger.
   - 30-70% (Debate): Weigh pros/cons, ROI and feasibility. Force participants to take a stance.
   - 70-100% (Converge/Audit): Draft the final decision. Strict SMART check.
3. Intervention style: decision maker/director. Be decisive.
   - If participants are deadlocked, intervene to propose a compromise or pick a side.
   - Demand concrete resource estimates.`
	}

	return fmt.Sprintf(`You are the Chairperson of a strategic meeting.
Your goal is to ensure the meeting is productive, focused, and results-oriented.

Meeting Info:
- Topic: %s
- Mode: %s
- Current Phase: %s (diverge -> debate -> converge -> audit)
- Turn Count: %d

Time Status:
%s

Participants in Room:
%s
Recent Transcript:
%s

Your Logic & Time Strategy:

%s

General Decision Rules:
- Time critical: if progress > 80%% and the phase is still diverge/debate, intervene and force a move to converge.
- Time critical: if progress > 90%% and there is no conclusion, intervene to summarize and wrap up.
- If a speaker was vague, intervene and ask for data or specifics.
- If the discussion is going in circles, intervene to force a phase change or a summary.
- If the last message was a good contribution and fits the phase, continue.
- If the goal is met (in strategic decision mode), wrap_up.
- Crucial: if you want a specific person to speak next, set "target_agent_id" to their ID.

Output Format (JSON):
{
    "action": "continue" | "intervene" | "wrap_up",
    "instruction": "Your message to the room (if intervening). Be authoritative but professional.",
    "target_agent_id": "Optional ID if addressing someone specific",
    "suggested_phase": "Optional new phase if a transition is needed (diverge|debate|converge|audit)"
}

Based on the transcript and time status, what is your decision?`,
		meeting.Topic, meeting.Mode, meeting.CurrentPhase, meeting.TurnCount,
		timeStatus, roster.String(), contextStr, strategy)
}
