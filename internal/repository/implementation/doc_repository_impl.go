package implementation

import (
	"context"
	"fmt"

	"incentive-agent-be/pkg/docqa"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type docRepository struct {
	db *gorm.DB
}

// NewDocRepository runs the first-stage vector search over doc_chunks. The
// inner-product score is 1 + cosine for normalized embeddings.
func NewDocRepository(db *gorm.DB) docqa.Retriever {
	return &docRepository{db: db}
}

func (r *docRepository) Search(ctx context.Context, queryEmbedding []float32, k int) ([]docqa.Passage, error) {
	if k <= 0 {
		k = docqa.FirstStageK
	}

	vec := pgvector.NewVector(queryEmbedding)

	var rows []struct {
		File    string
		Section string
		Page    int
		Text    string
		Score   float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT d.file_name AS file,
		       c.section,
		       c.page,
		       c.text,
		       1 - (c.embedding <#> ?::vector) AS score
		FROM doc_chunks c
		JOIN doc_documents d ON d.id = c.document_id
		ORDER BY c.embedding <#> ?::vector
		LIMIT ?`, vec, vec, k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("doc chunk search: %w", err)
	}

	out := make([]docqa.Passage, 0, len(rows))
	for _, row := range rows {
		out = append(out, docqa.Passage{
			File:    row.File,
			Section: row.Section,
			Page:    row.Page,
			Text:    row.Text,
			Score:   row.Score,
		})
	}
	return out, nil
}
