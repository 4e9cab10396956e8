package usecase

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
)

// CharacterUseCase handles character profile and template operations,
// including template instantiation.
type CharacterUseCase struct {
	repo interfaces.Repository
}

func (u *CharacterUseCase) SaveProfile(ctx context.Context, lang, name string, doc model.Document) (int64, error) {
	if name == "" {
		name = "(unnamed)"
	}
	return u.repo.Profiles().Save(ctx, lang, name, doc)
}

func (u *CharacterUseCase) GetProfile(ctx context.Context, id int64) (*model.CharacterProfile, error) {
	return u.repo.Profiles().Get(ctx, id)
}

func (u *CharacterUseCase) GetProfileByName(ctx context.Context, lang, name string) (*model.CharacterProfile, error) {
	return u.repo.Profiles().GetByName(ctx, lang, name)
}

func (u *CharacterUseCase) ListProfiles(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	return u.repo.Profiles().List(ctx, lang, limit)
}

func (u *CharacterUseCase) SearchProfiles(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	return u.repo.Profiles().Search(ctx, query)
}

func (u *CharacterUseCase) UpdateProfile(ctx context.Context, id int64, doc model.Document, name, lang string) (bool, error) {
	return u.repo.Profiles().Update(ctx, id, doc, name, lang)
}

func (u *CharacterUseCase) SaveTemplate(ctx context.Context, lang, name, source string, doc model.Document) (int64, error) {
	if name == "" {
		name = "(unnamed)"
	}
	return u.repo.Templates().Save(ctx, lang, name, source, doc)
}

func (u *CharacterUseCase) GetTemplate(ctx context.Context, id int64) (*model.CharacterTemplate, error) {
	return u.repo.Templates().Get(ctx, id)
}

func (u *CharacterUseCase) ListTemplates(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error) {
	return u.repo.Templates().List(ctx, lang, limit)
}

func (u *CharacterUseCase) SearchTemplates(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error) {
	return u.repo.Templates().Search(ctx, query)
}

// InstantiateOverrides carries the optional fields a caller may replace when
// creating a profile from a template.
type InstantiateOverrides struct {
	Lang          string
	Backstory     any
	Relationships any
}

// InstantiateFromTemplate copies a template's document into a new profile
// under the given name, applying overrides. The new profile keeps no link to
// the template. A relationships override given as a map is flattened into a
// single list of its values in sorted key order; lists and scalars pass
// through unchanged.
func (u *CharacterUseCase) InstantiateFromTemplate(ctx context.Context, templateID int64, newName string, overrides InstantiateOverrides) (*model.CharacterProfile, error) {
	if newName == "" {
		return nil, goerr.New("new character name is required")
	}

	tmpl, err := u.repo.Templates().Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	doc := tmpl.Template.Clone()
	if doc == nil {
		doc = model.Document{}
	}
	doc["name"] = newName
	if overrides.Backstory != nil {
		doc["backstory"] = overrides.Backstory
	}
	if overrides.Relationships != nil {
		doc["relationships"] = FlattenRelationships(overrides.Relationships)
	}

	lang := overrides.Lang
	if lang == "" {
		lang = tmpl.Lang
	}

	id, err := u.repo.Profiles().Save(ctx, lang, newName, doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save instantiated profile")
	}

	return u.repo.Profiles().Get(ctx, id)
}

// FlattenRelationships normalizes a relationships override. A map collapses
// to one flat list of its values, map keys visited in sorted order and list
// values spliced in element by element. Anything else is returned as is.
func FlattenRelationships(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := []any{}
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}
	return flat
}
