package meeting

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/warroom/internal/domain/entities"
	"github.com/johnquangdev/warroom/internal/domain/repositories"
)

// citationPatterns match document titles referenced in generated statements:
// CJK title brackets and quoted titles ending in a document-type word.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`《([^》]+)》`),
	regexp.MustCompile(`「([^」]+)」`),
	regexp.MustCompile(`(?i)"([^"]+ (?:report|analysis|whitepaper|plan|policy|handbook|assessment|strategy|specification))"`),
}

// versionSuffix strips trailing -v1.2 style markers from filenames
var versionSuffix = regexp.MustCompile(`-v\d+\.?\d*$`)

// CitationValidation is the outcome of checking a statement's citations
// against the speaker's silo
type CitationValidation struct {
	HasSuspectedHallucinations bool     `json:"has_suspected_hallucinations"`
	ValidCitations             []string `json:"valid_citations"`
	InvalidCitations           []string `json:"invalid_citations"`
	WarningMessage             string   `json:"warning_message,omitempty"`
}

// CitationValidator detects statements citing documents that do not exist in
// the speaker's knowledge silo. Validation problems degrade to "no findings";
// it never blocks persistence of a turn.
type CitationValidator struct {
	knowledgeRepo repositories.KnowledgeRepository
	logger        *zap.Logger
}

// NewCitationValidator creates a citation validator
func NewCitationValidator(knowledgeRepo repositories.KnowledgeRepository, logger *zap.Logger) *CitationValidator {
	return &CitationValidator{knowledgeRepo: knowledgeRepo, logger: logger}
}

// Validate extracts cited titles from the text and checks them against the
// speaker's silo
func (v *CitationValidator) Validate(ctx context.Context, text string, participant *entities.MeetingParticipant) *CitationValidation {
	citations := extractCitations(text)
	if len(citations) == 0 {
		return &CitationValidation{ValidCitations: []string{}, InvalidCitations: []string{}}
	}

	var filenames []string
	var err error
	if participant.IsConsultant() {
		filenames, err = v.knowledgeRepo.FindFilenamesByAgent(ctx, participant.ParticipantID)
	} else {
		filenames, err = v.knowledgeRepo.FindFilenamesByDepartment(ctx, participant.ParticipantID)
	}
	if err != nil {
		v.logger.Warn("citation validation skipped, silo filename lookup failed",
			zap.String("participant_id", participant.ParticipantID.String()),
			zap.Error(err))
		return &CitationValidation{ValidCitations: []string{}, InvalidCitations: []string{}}
	}

	valid := make([]string, 0)
	invalid := make([]string, 0)
	for _, citation := range citations {
		if citationMatchesAny(citation, filenames) {
			valid = append(valid, citation)
		} else {
			invalid = append(invalid, citation)
		}
	}

	result := &CitationValidation{
		HasSuspectedHallucinations: len(invalid) > 0,
		ValidCitations:             valid,
		InvalidCitations:           invalid,
	}
	if result.HasSuspectedHallucinations {
		result.WarningMessage = fmt.Sprintf("This statement may cite documents that do not exist: %s", strings.Join(invalid, ", "))
	}
	return result
}

// extractCitations pulls unique cited titles out of a statement
func extractCitations(text string) []string {
	seen := make(map[string]bool)
	citations := make([]string, 0)
	for _, pattern := range citationPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			citation := strings.TrimSpace(match[1])
			if citation != "" && !seen[citation] {
				seen[citation] = true
				citations = append(citations, citation)
			}
		}
	}
	return citations
}

func citationMatchesAny(citation string, filenames []string) bool {
	for _, filename := range filenames {
		if strings.Contains(filename, citation) || strings.Contains(citation, filename) || fuzzyTitleMatch(citation, filename) {
			return true
		}
	}
	return false
}

// fuzzyTitleMatch tolerates extensions, version suffixes and word reordering
// between a cited title and a stored filename
func fuzzyTitleMatch(citation, filename string) bool {
	cleanFilename := strings.TrimSuffix(filename, ".md")
	cleanFilename = versionSuffix.ReplaceAllString(cleanFilename, "")

	words1 := splitTitleWords(citation)
	words2 := splitTitleWords(cleanFilename)

	common := 0
	for _, w1 := range words1 {
		if len(w1) <= 1 {
			continue
		}
		for _, w2 := range words2 {
			if strings.Contains(w2, w1) || strings.Contains(w1, w2) {
				common++
				break
			}
		}
	}
	return common >= 2
}

func splitTitleWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
}
