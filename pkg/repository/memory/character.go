package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
)

type naturalKey struct {
	lang string
	name string
}

type profileRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*model.CharacterProfile
	byKey  map[naturalKey]int64
	nextID int64
}

func newProfileRepository() *profileRepository {
	return &profileRepository{
		rows:   make(map[int64]*model.CharacterProfile),
		byKey:  make(map[naturalKey]int64),
		nextID: 1,
	}
}

func copyProfile(p *model.CharacterProfile) *model.CharacterProfile {
	copied := *p
	copied.Profile = p.Profile.Clone()
	return &copied
}

func (r *profileRepository) Save(ctx context.Context, lang, name string, doc model.Document) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := naturalKey{lang: lang, name: name}

	if id, exists := r.byKey[key]; exists {
		row := r.rows[id]
		row.Profile = doc.Clone()
		row.UpdatedAt = now
		return id, nil
	}

	id := r.nextID
	r.nextID++
	r.rows[id] = &model.CharacterProfile{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Lang:      lang,
		Name:      name,
		Profile:   doc.Clone(),
	}
	r.byKey[key] = id
	return id, nil
}

func (r *profileRepository) Get(ctx context.Context, id int64) (*model.CharacterProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "character profile not found", goerr.V("id", id))
	}
	return copyProfile(row), nil
}

func (r *profileRepository) GetByName(ctx context.Context, lang, name string) (*model.CharacterProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[naturalKey{lang: lang, name: name}]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "character profile not found",
			goerr.V("lang", lang), goerr.V("name", name),
		)
	}
	return copyProfile(r.rows[id]), nil
}

func (r *profileRepository) List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []*model.CharacterProfile
	for _, row := range r.rows {
		if lang != "" && row.Lang != lang {
			continue
		}
		rows = append(rows, row)
	}
	sortProfilesByRecency(rows)

	return profileSummaries(rows, limit), nil
}

func (r *profileRepository) Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []*model.CharacterProfile
	for _, row := range r.rows {
		if matchesQuery(query, row.Lang, row.Name, "", row.Profile) {
			rows = append(rows, row)
		}
	}
	sortProfilesByRecency(rows)

	return profileSummaries(rows, query.EffectiveLimit()), nil
}

func (r *profileRepository) Update(ctx context.Context, id int64, doc model.Document, name, lang string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}

	delete(r.byKey, naturalKey{lang: row.Lang, name: row.Name})
	row.Profile = doc.Clone()
	if name != "" {
		row.Name = name
	}
	if lang != "" {
		row.Lang = lang
	}
	row.UpdatedAt = time.Now().UTC()
	r.byKey[naturalKey{lang: row.Lang, name: row.Name}] = id
	return true, nil
}

type templateRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*model.CharacterTemplate
	byKey  map[naturalKey]int64
	nextID int64
}

func newTemplateRepository() *templateRepository {
	return &templateRepository{
		rows:   make(map[int64]*model.CharacterTemplate),
		byKey:  make(map[naturalKey]int64),
		nextID: 1,
	}
}

func copyTemplate(t *model.CharacterTemplate) *model.CharacterTemplate {
	copied := *t
	copied.Template = t.Template.Clone()
	return &copied
}

func (r *templateRepository) Save(ctx context.Context, lang, name, source string, doc model.Document) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := naturalKey{lang: lang, name: name}

	if id, exists := r.byKey[key]; exists {
		row := r.rows[id]
		row.Source = source
		row.Template = doc.Clone()
		row.UpdatedAt = now
		return id, nil
	}

	id := r.nextID
	r.nextID++
	r.rows[id] = &model.CharacterTemplate{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Lang:      lang,
		Name:      name,
		Source:    source,
		Template:  doc.Clone(),
	}
	r.byKey[key] = id
	return id, nil
}

func (r *templateRepository) Get(ctx context.Context, id int64) (*model.CharacterTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "character template not found", goerr.V("id", id))
	}
	return copyTemplate(row), nil
}

func (r *templateRepository) List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []*model.CharacterTemplate
	for _, row := range r.rows {
		if lang != "" && row.Lang != lang {
			continue
		}
		rows = append(rows, row)
	}
	sortTemplatesByRecency(rows)

	return templateSummaries(rows, limit), nil
}

func (r *templateRepository) Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []*model.CharacterTemplate
	for _, row := range r.rows {
		if matchesQuery(query, row.Lang, row.Name, row.Source, row.Template) {
			rows = append(rows, row)
		}
	}
	sortTemplatesByRecency(rows)

	return templateSummaries(rows, query.EffectiveLimit()), nil
}

func matchesQuery(q model.CharacterQuery, lang, name, source string, doc model.Document) bool {
	if q.Lang != "" && lang != q.Lang {
		return false
	}
	if q.NameLike != "" && !strings.Contains(name, q.NameLike) {
		return false
	}
	if q.Text != "" {
		raw, _ := json.Marshal(doc)
		if !strings.Contains(name, q.Text) &&
			!strings.Contains(string(raw), q.Text) &&
			!strings.Contains(source, q.Text) {
			return false
		}
	}
	if q.Field != "" && q.ValueLike != "" {
		val, ok := extractField(doc, q.Field)
		if !ok || !strings.Contains(renderValue(val), q.ValueLike) {
			return false
		}
	}
	return true
}

// extractField walks a dotted JSON path like "background.details".
func extractField(doc model.Document, field string) (any, bool) {
	var current any = map[string]any(doc)
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func renderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}

func sortProfilesByRecency(rows []*model.CharacterProfile) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
}

func sortTemplatesByRecency(rows []*model.CharacterTemplate) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
}

func profileSummaries(rows []*model.CharacterProfile, limit int) []*model.CharacterSummary {
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	result := make([]*model.CharacterSummary, len(rows))
	for i, row := range rows {
		result[i] = &model.CharacterSummary{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			Lang:      row.Lang,
			Name:      row.Name,
		}
	}
	return result
}

func templateSummaries(rows []*model.CharacterTemplate, limit int) []*model.CharacterSummary {
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	result := make([]*model.CharacterSummary, len(rows))
	for i, row := range rows {
		result[i] = &model.CharacterSummary{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			Lang:      row.Lang,
			Name:      row.Name,
			Source:    row.Source,
		}
	}
	return result
}
