package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
)

type profileRepository struct {
	client *Client
}

func marshalDocument(doc model.Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal document")
	}
	return string(raw), nil
}

func unmarshalDocument(raw sql.NullString) (model.Document, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode stored document")
	}
	return doc, nil
}

func (r *profileRepository) Save(ctx context.Context, lang, name string, doc model.Document) (int64, error) {
	c := r.client
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := marshalDocument(doc)
	if err != nil {
		return 0, err
	}
	now := formatTime(time.Now().UTC())

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO character_profiles(created_at, updated_at, lang, name, profile_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(lang, name) DO UPDATE SET
			profile_json = excluded.profile_json,
			updated_at = excluded.updated_at`,
		now, now, lang, name, raw,
	); err != nil {
		return 0, goerr.Wrap(err, "failed to upsert character profile",
			goerr.V("lang", lang), goerr.V("name", name),
		)
	}

	var id int64
	if err := c.db.QueryRowContext(ctx,
		`SELECT id FROM character_profiles WHERE lang = ? AND name = ?`,
		lang, name,
	).Scan(&id); err != nil {
		return 0, goerr.Wrap(err, "failed to read upserted profile id")
	}
	return id, nil
}

func (r *profileRepository) Get(ctx context.Context, id int64) (*model.CharacterProfile, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, lang, name, profile_json
		FROM character_profiles WHERE id = ?`, id)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "character profile not found", goerr.V("id", id))
	}
	return profile, err
}

func (r *profileRepository) GetByName(ctx context.Context, lang, name string) (*model.CharacterProfile, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, lang, name, profile_json
		FROM character_profiles WHERE lang = ? AND name = ?`, lang, name)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "character profile not found",
			goerr.V("lang", lang), goerr.V("name", name),
		)
	}
	return profile, err
}

func scanProfile(row *sql.Row) (*model.CharacterProfile, error) {
	var (
		p         model.CharacterProfile
		createdAt string
		updatedAt string
		raw       sql.NullString
	)
	if err := row.Scan(&p.ID, &createdAt, &updatedAt, &p.Lang, &p.Name, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to scan character profile")
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	doc, err := unmarshalDocument(raw)
	if err != nil {
		return nil, err
	}
	p.Profile = doc
	return &p, nil
}

func (r *profileRepository) List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	return r.Search(ctx, model.CharacterQuery{Lang: lang, Limit: limit})
}

func (r *profileRepository) Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	where, args := buildCharacterFilter(query, "profile_json", false)
	sqlText := `SELECT id, created_at, updated_at, lang, name FROM character_profiles ` +
		where + ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, query.EffectiveLimit())

	rows, err := r.client.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search character profiles")
	}
	defer rows.Close()

	results := []*model.CharacterSummary{}
	for rows.Next() {
		var (
			s         model.CharacterSummary
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&s.ID, &createdAt, &updatedAt, &s.Lang, &s.Name); err != nil {
			return nil, goerr.Wrap(err, "failed to scan profile summary")
		}
		s.CreatedAt = parseTime(createdAt)
		s.UpdatedAt = parseTime(updatedAt)
		results = append(results, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate profile summaries")
	}
	return results, nil
}

func (r *profileRepository) Update(ctx context.Context, id int64, doc model.Document, name, lang string) (bool, error) {
	c := r.client
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := marshalDocument(doc)
	if err != nil {
		return false, err
	}

	setParts := []string{"profile_json = ?", "updated_at = ?"}
	args := []any{raw, formatTime(time.Now().UTC())}
	if name != "" {
		setParts = append(setParts, "name = ?")
		args = append(args, name)
	}
	if lang != "" {
		setParts = append(setParts, "lang = ?")
		args = append(args, lang)
	}
	args = append(args, id)

	res, err := c.db.ExecContext(ctx,
		`UPDATE character_profiles SET `+strings.Join(setParts, ", ")+` WHERE id = ?`,
		args...)
	if err != nil {
		return false, goerr.Wrap(err, "failed to update character profile", goerr.V("id", id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to read update result")
	}
	return affected > 0, nil
}

type templateRepository struct {
	client *Client
}

func (r *templateRepository) Save(ctx context.Context, lang, name, source string, doc model.Document) (int64, error) {
	c := r.client
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := marshalDocument(doc)
	if err != nil {
		return 0, err
	}
	now := formatTime(time.Now().UTC())

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO character_templates(created_at, updated_at, lang, name, source, template_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(lang, name) DO UPDATE SET
			source = excluded.source,
			template_json = excluded.template_json,
			updated_at = excluded.updated_at`,
		now, now, lang, name, source, raw,
	); err != nil {
		return 0, goerr.Wrap(err, "failed to upsert character template",
			goerr.V("lang", lang), goerr.V("name", name),
		)
	}

	var id int64
	if err := c.db.QueryRowContext(ctx,
		`SELECT id FROM character_templates WHERE lang = ? AND name = ?`,
		lang, name,
	).Scan(&id); err != nil {
		return 0, goerr.Wrap(err, "failed to read upserted template id")
	}
	return id, nil
}

func (r *templateRepository) Get(ctx context.Context, id int64) (*model.CharacterTemplate, error) {
	row := r.client.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, lang, name, source, template_json
		FROM character_templates WHERE id = ?`, id)

	var (
		t         model.CharacterTemplate
		createdAt string
		updatedAt string
		source    sql.NullString
		raw       sql.NullString
	)
	err := row.Scan(&t.ID, &createdAt, &updatedAt, &t.Lang, &t.Name, &source, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "character template not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan character template")
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	t.Source = source.String

	doc, err := unmarshalDocument(raw)
	if err != nil {
		return nil, err
	}
	t.Template = doc
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	return r.Search(ctx, model.CharacterQuery{Lang: lang, Limit: limit})
}

func (r *templateRepository) Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	where, args := buildCharacterFilter(query, "template_json", true)
	sqlText := `SELECT id, created_at, updated_at, lang, name, source FROM character_templates ` +
		where + ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, query.EffectiveLimit())

	rows, err := r.client.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search character templates")
	}
	defer rows.Close()

	results := []*model.CharacterSummary{}
	for rows.Next() {
		var (
			s         model.CharacterSummary
			createdAt string
			updatedAt string
			source    sql.NullString
		)
		if err := rows.Scan(&s.ID, &createdAt, &updatedAt, &s.Lang, &s.Name, &source); err != nil {
			return nil, goerr.Wrap(err, "failed to scan template summary")
		}
		s.CreatedAt = parseTime(createdAt)
		s.UpdatedAt = parseTime(updatedAt)
		s.Source = source.String
		results = append(results, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate template summaries")
	}
	return results, nil
}

// buildCharacterFilter renders the conjunctive WHERE clause shared by profile
// and template search. docColumn names the JSON column; withSource widens the
// free-text match to the source label.
func buildCharacterFilter(query model.CharacterQuery, docColumn string, withSource bool) (string, []any) {
	var where []string
	var args []any

	if query.Lang != "" {
		where = append(where, "lang = ?")
		args = append(args, query.Lang)
	}
	if query.NameLike != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+query.NameLike+"%")
	}
	if query.Text != "" {
		pattern := "%" + query.Text + "%"
		if withSource {
			where = append(where, "(name LIKE ? OR "+docColumn+" LIKE ? OR source LIKE ?)")
			args = append(args, pattern, pattern, pattern)
		} else {
			where = append(where, "(name LIKE ? OR "+docColumn+" LIKE ?)")
			args = append(args, pattern, pattern)
		}
	}
	if query.Field != "" && query.ValueLike != "" {
		where = append(where, "json_extract("+docColumn+", ?) LIKE ?")
		args = append(args, "$."+query.Field, "%"+query.ValueLike+"%")
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}
