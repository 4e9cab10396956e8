package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/embed"
)

type evaluationRepository struct {
	mu         sync.RWMutex
	rows       map[int64]*model.Evaluation
	embeddings map[int64][]float32
	nextID     int64
	embedDim   int
}

func newEvaluationRepository(embedDim int) *evaluationRepository {
	return &evaluationRepository{
		rows:       make(map[int64]*model.Evaluation),
		embeddings: make(map[int64][]float32),
		nextID:     1,
		embedDim:   embedDim,
	}
}

func copyEvaluation(e *model.Evaluation) *model.Evaluation {
	copied := *e
	if e.FinalJSON != nil {
		copied.FinalJSON = model.Document(e.FinalJSON).Clone()
	}
	return &copied
}

func (r *evaluationRepository) Save(ctx context.Context, eval *model.Evaluation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyEvaluation(eval)
	created.ID = r.nextID
	r.nextID++
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	r.rows[created.ID] = created

	if r.embedDim > 0 {
		r.embeddings[created.ID] = embed.Vector(created.ChapterText, r.embedDim)
	}
	return created.ID, nil
}

func (r *evaluationRepository) Get(ctx context.Context, id int64) (*model.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "evaluation not found", goerr.V("id", id))
	}
	return copyEvaluation(row), nil
}

func (r *evaluationRepository) Search(ctx context.Context, query string, topK int) ([]*model.EvaluationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if topK < 1 {
		topK = 5
	}

	if r.embedDim > 0 {
		return r.searchByDistance(query, topK), nil
	}
	return r.searchBySubstring(query, topK), nil
}

func (r *evaluationRepository) searchByDistance(query string, topK int) []*model.EvaluationSummary {
	queryVec := embed.Vector(query, r.embedDim)

	type scored struct {
		row  *model.Evaluation
		dist float64
	}

	var candidates []scored
	for id, vec := range r.embeddings {
		row, ok := r.rows[id]
		if !ok {
			continue
		}
		candidates = append(candidates, scored{
			row:  row,
			dist: embed.SquaredDistance(queryVec, vec),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	result := make([]*model.EvaluationSummary, topK)
	for i := 0; i < topK; i++ {
		result[i] = summarize(candidates[i].row)
	}
	return result
}

func (r *evaluationRepository) searchBySubstring(query string, topK int) []*model.EvaluationSummary {
	var matched []*model.Evaluation
	for _, row := range r.rows {
		if strings.Contains(row.ChapterText, query) {
			matched = append(matched, row)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if topK > len(matched) {
		topK = len(matched)
	}
	result := make([]*model.EvaluationSummary, topK)
	for i := 0; i < topK; i++ {
		result[i] = summarize(matched[i])
	}
	return result
}

func summarize(e *model.Evaluation) *model.EvaluationSummary {
	s := &model.EvaluationSummary{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Provider:  e.Provider,
		Model:     e.Model,
		Lang:      e.Lang,
		Rounds:    e.Rounds,
		FinalText: e.FinalText,
	}
	if e.FinalJSON != nil {
		s.FinalJSON = model.Document(e.FinalJSON).Clone()
	}
	return s
}
