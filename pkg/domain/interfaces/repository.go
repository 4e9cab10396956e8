package interfaces

import (
	"context"

	"github.com/inkfold/writerstudio/pkg/domain/model"
)

// Repository defines the interface for data persistence
type Repository interface {
	Evaluations() EvaluationRepository
	Profiles() ProfileRepository
	Templates() TemplateRepository
	Close() error
}

// EvaluationRepository defines the interface for evaluation records and
// their best-effort similarity search.
type EvaluationRepository interface {
	// Save inserts one evaluation record and independently attempts to
	// index its pseudo-embedding. The embedding insert may fail without
	// failing the save.
	Save(ctx context.Context, eval *model.Evaluation) (int64, error)

	// Get retrieves an evaluation by id. Returns model.ErrNotFound when
	// the id matches nothing.
	Get(ctx context.Context, id int64) (*model.Evaluation, error)

	// Search returns up to topK summaries ranked by ascending pseudo-
	// embedding distance, silently falling back to a substring match over
	// chapter text ordered by recency when the vector path is unavailable.
	Search(ctx context.Context, query string, topK int) ([]*model.EvaluationSummary, error)
}

// ProfileRepository defines the interface for character profile access
type ProfileRepository interface {
	// Save upserts by the (lang, name) natural key and returns the row id
	// either way. A collision updates the document and refreshes the
	// update timestamp.
	Save(ctx context.Context, lang, name string, doc model.Document) (int64, error)

	// Get retrieves a profile by id. Returns model.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*model.CharacterProfile, error)

	// GetByName retrieves a profile by its natural key.
	GetByName(ctx context.Context, lang, name string) (*model.CharacterProfile, error)

	// List returns recent profiles, optionally filtered by language.
	List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error)

	// Search applies the query filters conjunctively, ordered by recency.
	Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error)

	// Update partially updates by id: the document always, name and lang
	// only when non-empty. The boolean reports whether a row matched;
	// false is not an error.
	Update(ctx context.Context, id int64, doc model.Document, name, lang string) (bool, error)
}

// TemplateRepository defines the interface for character template access
type TemplateRepository interface {
	// Save upserts by (lang, name) and returns the row id.
	Save(ctx context.Context, lang, name, source string, doc model.Document) (int64, error)

	// Get retrieves a template by id. Returns model.ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*model.CharacterTemplate, error)

	// List returns recent templates, optionally filtered by language.
	List(ctx context.Context, lang string, limit int) ([]*model.CharacterSummary, error)

	// Search applies the query filters conjunctively, ordered by recency.
	Search(ctx context.Context, query model.CharacterQuery) ([]*model.CharacterSummary, error)
}
