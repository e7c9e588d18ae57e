package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/warroom/internal/usecase/meeting"
)

// Embedder produces embedding vectors for search queries
type Embedder interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
}

// searchRow is the raw SQL scan target
type searchRow struct {
	ID         uuid.UUID `gorm:"column:id"`
	Filename   string    `gorm:"column:filename"`
	Summary    *string   `gorm:"column:summary"`
	Similarity float64   `gorm:"column:similarity"`
}

// Searcher performs semantic search over knowledge silos. Embeddings live in
// a pgvector column maintained by the ingestion pipeline; queries compare by
// cosine distance and never cross silo boundaries.
type Searcher struct {
	db       *gorm.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewSearcher creates a knowledge searcher
func NewSearcher(db *gorm.DB, embedder Embedder, logger *zap.Logger) *Searcher {
	return &Searcher{db: db, embedder: embedder, logger: logger}
}

// SearchDepartment searches a department silo
func (s *Searcher) SearchDepartment(ctx context.Context, departmentID uuid.UUID, query string, threshold float64, limit int) ([]meeting.KnowledgeItem, error) {
	vec, err := s.embedder.EmbedContent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	lit := vectorLiteral(vec)

	var rows []searchRow
	err = s.db.WithContext(ctx).Raw(`
		SELECT id, filename, summary,
		       1 - (embedding <=> ?::vector) AS similarity
		FROM knowledge_files
		WHERE department_id = ?
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> ?::vector) >= ?
		ORDER BY embedding <=> ?::vector
		LIMIT ?`,
		lit, departmentID, lit, threshold, lit, limit,
	).Scan(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("department search failed: %w", err)
	}

	s.logger.Debug("department knowledge search",
		zap.String("department_id", departmentID.String()),
		zap.Int("matches", len(rows)))
	return toItems(rows), nil
}

// SearchAgent searches the file set bound to a consultant persona
func (s *Searcher) SearchAgent(ctx context.Context, agentID uuid.UUID, query string, threshold float64, limit int) ([]meeting.KnowledgeItem, error) {
	vec, err := s.embedder.EmbedContent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	lit := vectorLiteral(vec)

	var rows []searchRow
	err = s.db.WithContext(ctx).Raw(`
		SELECT kf.id, kf.filename, kf.summary,
		       1 - (kf.embedding <=> ?::vector) AS similarity
		FROM knowledge_files kf
		JOIN agent_files af ON af.file_id = kf.id
		WHERE af.agent_id = ?
		  AND kf.embedding IS NOT NULL
		  AND 1 - (kf.embedding <=> ?::vector) >= ?
		ORDER BY kf.embedding <=> ?::vector
		LIMIT ?`,
		lit, agentID, lit, threshold, lit, limit,
	).Scan(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("agent search failed: %w", err)
	}

	s.logger.Debug("agent knowledge search",
		zap.String("agent_id", agentID.String()),
		zap.Int("matches", len(rows)))
	return toItems(rows), nil
}

func toItems(rows []searchRow) []meeting.KnowledgeItem {
	items := make([]meeting.KnowledgeItem, 0, len(rows))
	for _, r := range rows {
		summary := ""
		if r.Summary != nil {
			summary = *r.Summary
		}
		items = append(items, meeting.KnowledgeItem{
			FileID:     r.ID,
			Filename:   r.Filename,
			Summary:    summary,
			Similarity: r.Similarity,
		})
	}
	return items
}

// vectorLiteral renders a vector in pgvector input syntax: [0.1,0.2,...]
func vectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
