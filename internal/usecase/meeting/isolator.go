package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// Similarity thresholds per silo kind. Department silos are larger and
// noisier, so they demand a closer match.
const (
	departmentMatchThreshold = 0.6
	consultantMatchThreshold = 0.5
)

// KnowledgeItem is one retrieved knowledge document
type KnowledgeItem struct {
	FileID     uuid.UUID
	Filename   string
	Summary    string
	Similarity float64
}

// KnowledgeSearcher performs semantic search scoped to one silo
type KnowledgeSearcher interface {
	SearchDepartment(ctx context.Context, departmentID uuid.UUID, query string, threshold float64, limit int) ([]KnowledgeItem, error)
	SearchAgent(ctx context.Context, agentID uuid.UUID, query string, threshold float64, limit int) ([]KnowledgeItem, error)
}

// Isolator builds participant prompts from silo-scoped knowledge. Each
// participant only ever sees its own silo; a department delegate cannot
// retrieve another department's documents, a consultant only its bound files.
type Isolator struct {
	searcher      KnowledgeSearcher
	knowledgeRepo repositories.KnowledgeRepository
	logger        *zap.Logger
	matchCount    int
}

// NewIsolator creates a knowledge isolator
func NewIsolator(searcher KnowledgeSearcher, knowledgeRepo repositories.KnowledgeRepository, matchCount int, logger *zap.Logger) *Isolator {
	if matchCount <= 0 {
		matchCount = 5
	}
	return &Isolator{
		searcher:      searcher,
		knowledgeRepo: knowledgeRepo,
		logger:        logger,
		matchCount:    matchCount,
	}
}

// BuildPrompt assembles the generation prompt for a participant's turn and
// returns the knowledge items it was grounded on (empty for an ungrounded
// prompt). Retrieval problems degrade to the ungrounded template; building a
// prompt never fails a turn.
func (iso *Isolator) BuildPrompt(ctx context.Context, participant *entities.MeetingParticipant, topic, meetingContext string) (string, []KnowledgeItem) {
	if participant.IsConsultant() {
		return iso.buildConsultantPrompt(ctx, participant, topic, meetingContext)
	}
	return iso.buildDepartmentPrompt(ctx, participant, topic, meetingContext)
}

func (iso *Isolator) buildDepartmentPrompt(ctx context.Context, participant *entities.MeetingParticipant, topic, meetingContext string) (string, []KnowledgeItem) {
	items := iso.departmentKnowledge(ctx, participant.ParticipantID, topic)
	if len(items) == 0 {
		return iso.ungroundedPrompt(participant, topic, meetingContext), nil
	}

	prompt := fmt.Sprintf(`You are the delegate of the "%s" department in a meeting on the following topic.

[Topic]
%s

[Your role and duties]
1. You represent %s and must speak from your department's perspective.
2. Your statements must be grounded in the documents of your department knowledge base below.
3. You may support or oppose other departments, but always with reasons.
4. Your goal is not to win the argument but to find the best outcome for the company.
5. Cite specific documents or figures to strengthen your case.

[Department knowledge base]
%s

[Speaking rules]
1. Keep each statement to 100-200 words.
2. State your department's stance explicitly (support / oppose / conditional support).
3. Cite at least one document as evidence.
4. Engage with the previous speaker's points instead of talking past them. If you are opening the meeting, address the topic directly.
5. Use professional but accessible language.
6. Output your statement directly as plain text, with no JSON or structural markup.

[Forbidden]
1. Do not invent data or documents that do not exist.
2. Do not pretend to know other departments' internal information.
3. Do not speak from any perspective other than your own company role.
4. Do not simply agree with everyone; hold your own position.
5. Do not use JSON or code blocks of any kind.

[Current meeting context]
%s

Based on the above, deliver your next statement (plain text only).`,
		participant.Name, topic, participant.Name, renderKnowledge(items), meetingContext)

	return prompt, items
}

func (iso *Isolator) buildConsultantPrompt(ctx context.Context, participant *entities.MeetingParticipant, topic, meetingContext string) (string, []KnowledgeItem) {
	agent, err := iso.knowledgeRepo.FindAgentByID(ctx, participant.ParticipantID)
	if err != nil {
		iso.logger.Warn("consultant persona lookup failed, using ungrounded prompt",
			zap.String("agent_id", participant.ParticipantID.String()),
			zap.Error(err))
		return iso.ungroundedPrompt(participant, topic, meetingContext), nil
	}

	items := iso.consultantKnowledge(ctx, participant.ParticipantID, topic)
	if len(items) == 0 {
		return iso.ungroundedPrompt(participant, topic, meetingContext), nil
	}

	prompt := fmt.Sprintf(`%s

---

You are attending a corporate meeting as an external consultant.

[Topic]
%s

[Your positioning]
1. You are "%s", participating as an independent consultant.
2. You represent no department's interests; you bring an outside expert view.
3. Your statements draw on your own expertise and published work.
4. You may challenge the departments and raise angles they have overlooked.
5. Your goal is to help the company make a wiser decision.

[Your knowledge base]
%s

[Speaking style]
1. Speak in your own distinctive framework of ideas.
2. Keep each statement to 100-200 words.
3. Cite your own works or principles as evidence.
4. Offer perspectives the department delegates may not have considered.
5. Engage with the previous speaker's points. If you are opening the meeting, address the topic directly.
6. Output your statement directly as plain text, with no JSON or structural markup.

[Forbidden]
1. Do not invent content that is not in your knowledge base.
2. Do not pretend to know the company's internal information.
3. Do not favor any particular department.
4. Do not use JSON or code blocks of any kind.

[Current meeting context]
%s

Based on the above, deliver your view as the consultant (plain text only).`,
		agent.SystemPrompt, topic, participant.Name, renderKnowledge(items), meetingContext)

	return prompt, items
}

// ungroundedPrompt is the template used when no silo knowledge is available.
// It forbids fabricated citations so an empty silo cannot produce invented
// document names.
func (iso *Isolator) ungroundedPrompt(participant *entities.MeetingParticipant, topic, meetingContext string) string {
	role := fmt.Sprintf(`the delegate of the "%s" department`, participant.Name)
	if participant.IsConsultant() {
		role = fmt.Sprintf(`"%s", an external consultant`, participant.Name)
	}

	return fmt.Sprintf(`You are %s in a meeting on the following topic.

[Topic]
%s

No knowledge base documents are available for you in this meeting.

[Speaking rules]
1. Keep each statement to 100-200 words.
2. State your stance explicitly (support / oppose / conditional support).
3. Reason from general professional judgement only.
4. Engage with the previous speaker's points. If you are opening the meeting, address the topic directly.
5. Output your statement directly as plain text, with no JSON or structural markup.

[Forbidden]
1. Do not cite, quote, or refer to any document, report, or file by name; you have none.
2. Do not invent data, figures, or sources.
3. Do not use JSON or code blocks of any kind.

[Current meeting context]
%s

Based on the above, deliver your next statement (plain text only).`, role, topic, meetingContext)
}

// departmentKnowledge searches the department silo, falling back to the
// silo's most recent documents when semantic search finds nothing
func (iso *Isolator) departmentKnowledge(ctx context.Context, departmentID uuid.UUID, topic string) []KnowledgeItem {
	items, err := iso.searcher.SearchDepartment(ctx, departmentID, topic, departmentMatchThreshold, iso.matchCount)
	if err != nil {
		iso.logger.Warn("department knowledge search failed",
			zap.String("department_id", departmentID.String()),
			zap.Error(err))
		return nil
	}
	if len(items) > 0 {
		return items
	}

	files, err := iso.knowledgeRepo.FindRecentFilesByDepartment(ctx, departmentID, iso.matchCount)
	if err != nil {
		iso.logger.Warn("department recent files lookup failed",
			zap.String("department_id", departmentID.String()),
			zap.Error(err))
		return nil
	}
	return filesToItems(files)
}

// consultantKnowledge searches the persona's bound file set, falling back to
// its most recent documents when semantic search finds nothing
func (iso *Isolator) consultantKnowledge(ctx context.Context, agentID uuid.UUID, topic string) []KnowledgeItem {
	items, err := iso.searcher.SearchAgent(ctx, agentID, topic, consultantMatchThreshold, iso.matchCount)
	if err != nil {
		iso.logger.Warn("consultant knowledge search failed",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
		return nil
	}
	if len(items) > 0 {
		return items
	}

	files, err := iso.knowledgeRepo.FindRecentFilesByAgent(ctx, agentID, iso.matchCount)
	if err != nil {
		iso.logger.Warn("consultant recent files lookup failed",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
		return nil
	}
	return filesToItems(files)
}

func filesToItems(files []*entities.KnowledgeFile) []KnowledgeItem {
	items := make([]KnowledgeItem, 0, len(files))
	for _, f := range files {
		summary := ""
		if f.Summary != nil {
			summary = *f.Summary
		}
		items = append(items, KnowledgeItem{
			FileID:   f.ID,
			Filename: f.Filename,
			Summary:  summary,
		})
	}
	return items
}

func renderKnowledge(items []KnowledgeItem) string {
	var sb strings.Builder
	for _, k := range items {
		summary := k.Summary
		if summary == "" {
			summary = "(no summary)"
		}
		fmt.Fprintf(&sb, "---\nDocument: %s\nSummary: %s\n---\n", k.Filename, summary)
	}
	return sb.String()
}
