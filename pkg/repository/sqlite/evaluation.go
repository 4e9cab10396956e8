package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/embed"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

type evaluationRepository struct {
	client *Client
}

func (r *evaluationRepository) Save(ctx context.Context, eval *model.Evaluation) (int64, error) {
	c := r.client
	c.mu.Lock()
	defer c.mu.Unlock()

	createdAt := eval.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var finalJSON sql.NullString
	if eval.FinalJSON != nil {
		raw, err := json.Marshal(eval.FinalJSON)
		if err != nil {
			return 0, goerr.Wrap(err, "failed to marshal final JSON")
		}
		finalJSON = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO evaluations(created_at, provider, model, lang, rounds,
			input_tokens, output_tokens, total_tokens, chapter_text,
			final_text, final_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(createdAt), eval.Provider, eval.Model, eval.Lang, eval.Rounds,
		eval.InputTokens, eval.OutputTokens, eval.TotalTokens, eval.ChapterText,
		eval.FinalText, finalJSON,
	)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert evaluation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read evaluation id")
	}

	// The embedding insert is independently fallible: the record commit
	// never waits on the index.
	if c.embeddingsEnabled {
		blob := embed.Encode(embed.Vector(eval.ChapterText, c.embedDim))
		if _, err := c.db.ExecContext(ctx,
			`INSERT INTO eval_embeddings(rowid, embedding) VALUES (?, ?)`,
			id, blob,
		); err != nil {
			logging.From(ctx).Warn("skipping embedding insert",
				"id", id,
				"error", err.Error(),
			)
		}
	}

	return id, nil
}

func (r *evaluationRepository) Get(ctx context.Context, id int64) (*model.Evaluation, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT id, created_at, provider, model, lang, rounds,
			input_tokens, output_tokens, total_tokens, chapter_text,
			final_text, final_json
		FROM evaluations WHERE id = ?`, id)

	var (
		eval      model.Evaluation
		createdAt string
		provider  sql.NullString
		modelName sql.NullString
		lang      sql.NullString
		finalText sql.NullString
		finalJSON sql.NullString
	)
	err := row.Scan(&eval.ID, &createdAt, &provider, &modelName, &lang,
		&eval.Rounds, &eval.InputTokens, &eval.OutputTokens, &eval.TotalTokens,
		&eval.ChapterText, &finalText, &finalJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "evaluation not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query evaluation", goerr.V("id", id))
	}

	eval.CreatedAt = parseTime(createdAt)
	eval.Provider = provider.String
	eval.Model = modelName.String
	eval.Lang = lang.String
	eval.FinalText = finalText.String
	if finalJSON.Valid {
		if err := json.Unmarshal([]byte(finalJSON.String), &eval.FinalJSON); err != nil {
			return nil, goerr.Wrap(err, "failed to decode stored final JSON", goerr.V("id", id))
		}
	}
	return &eval, nil
}

func (r *evaluationRepository) Search(ctx context.Context, query string, topK int) ([]*model.EvaluationSummary, error) {
	if topK < 1 {
		topK = 5
	}

	if r.client.embeddingsEnabled {
		results, err := r.searchByDistance(ctx, query, topK)
		if err == nil {
			return results, nil
		}
		// Degradation is silent to the caller and observable only here.
		logging.From(ctx).Warn("vector search unavailable; falling back to substring match",
			"error", err.Error(),
		)
	}

	return r.searchBySubstring(ctx, query, topK)
}

func (r *evaluationRepository) searchByDistance(ctx context.Context, query string, topK int) ([]*model.EvaluationSummary, error) {
	queryVec := embed.Vector(query, r.client.embedDim)

	rows, err := r.client.db.QueryContext(ctx,
		`SELECT rowid, embedding FROM eval_embeddings`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load embeddings")
	}
	defer rows.Close()

	type scored struct {
		id   int64
		dist float64
	}
	var candidates []scored
	for rows.Next() {
		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, goerr.Wrap(err, "failed to scan embedding row")
		}
		vec, err := embed.Decode(blob)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("id", id))
		}
		candidates = append(candidates, scored{
			id:   id,
			dist: embed.SquaredDistance(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate embeddings")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	if len(candidates) == 0 {
		return []*model.EvaluationSummary{}, nil
	}

	ids := make([]int64, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.id
	}
	byID, err := r.summariesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Preserve the distance ranking across hydration.
	results := make([]*model.EvaluationSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			results = append(results, s)
		}
	}
	return results, nil
}

func (r *evaluationRepository) summariesByID(ctx context.Context, ids []int64) (map[int64]*model.EvaluationSummary, error) {
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.client.db.QueryContext(ctx,
		`SELECT id, created_at, provider, model, lang, rounds, final_text, final_json
		FROM evaluations WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hydrate search results")
	}
	defer rows.Close()

	byID := make(map[int64]*model.EvaluationSummary, len(ids))
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate search results")
	}
	return byID, nil
}

func (r *evaluationRepository) searchBySubstring(ctx context.Context, query string, topK int) ([]*model.EvaluationSummary, error) {
	rows, err := r.client.db.QueryContext(ctx,
		`SELECT id, created_at, provider, model, lang, rounds, final_text, final_json
		FROM evaluations WHERE chapter_text LIKE ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		"%"+query+"%", topK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search evaluations")
	}
	defer rows.Close()

	results := []*model.EvaluationSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate evaluations")
	}
	return results, nil
}

func scanSummary(rows *sql.Rows) (*model.EvaluationSummary, error) {
	var (
		s         model.EvaluationSummary
		createdAt string
		provider  sql.NullString
		modelName sql.NullString
		lang      sql.NullString
		finalText sql.NullString
		finalJSON sql.NullString
	)
	if err := rows.Scan(&s.ID, &createdAt, &provider, &modelName, &lang,
		&s.Rounds, &finalText, &finalJSON); err != nil {
		return nil, goerr.Wrap(err, "failed to scan evaluation summary")
	}
	s.CreatedAt = parseTime(createdAt)
	s.Provider = provider.String
	s.Model = modelName.String
	s.Lang = lang.String
	s.FinalText = finalText.String
	if finalJSON.Valid {
		if err := json.Unmarshal([]byte(finalJSON.String), &s.FinalJSON); err != nil {
			return nil, goerr.Wrap(err, "failed to decode stored final JSON", goerr.V("id", s.ID))
		}
	}
	return &s, nil
}
