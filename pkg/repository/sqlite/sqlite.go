// Package sqlite implements the repository interfaces over a single-process
// SQLite database, including the best-effort pseudo-embedding index used by
// evaluation search.
package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/embed"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

// ErrNotFound is returned when a lookup matches nothing. It wraps
// model.ErrNotFound so callers can check either.
var ErrNotFound = goerr.Wrap(model.ErrNotFound, "not found in sqlite repository")

const timeFormat = time.RFC3339Nano

// Client is the SQLite-backed Repository. Writes are serialized with a
// mutex; SQLite itself holds a single writer anyway.
type Client struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string

	embedDim int
	// embeddingsEnabled is fixed at initialization: when false, evaluation
	// search always takes the substring path.
	embeddingsEnabled bool

	evaluations *evaluationRepository
	profiles    *profileRepository
	templates   *templateRepository
}

var _ interfaces.Repository = &Client{}

// Option configures the SQLite client
type Option func(*Client)

// WithEmbedDim overrides the pseudo-embedding dimension (default 384).
func WithEmbedDim(dim int) Option {
	return func(c *Client) {
		if dim > 0 {
			c.embedDim = dim
		}
	}
}

// WithoutEmbeddings disables the embedding index entirely.
func WithoutEmbeddings() Option {
	return func(c *Client) {
		c.embeddingsEnabled = false
	}
}

// New opens (creating if needed) the database at path and initializes the
// schema. The caller is responsible for calling Close.
func New(ctx context.Context, path string, opts ...Option) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	client := &Client{
		db:                db,
		dbPath:            path,
		embedDim:          embed.DefaultDim,
		embeddingsEnabled: true,
	}
	for _, opt := range opts {
		opt(client)
	}

	if err := client.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	client.evaluations = &evaluationRepository{client: client}
	client.profiles = &profileRepository{client: client}
	client.templates = &templateRepository{client: client}

	logging.From(ctx).Info("sqlite repository initialized",
		"path", path,
		"embed_dim", client.embedDim,
		"embeddings", client.embeddingsEnabled,
	)
	return client, nil
}

func (c *Client) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			provider TEXT,
			model TEXT,
			lang TEXT,
			rounds INTEGER,
			input_tokens INTEGER,
			output_tokens INTEGER,
			total_tokens INTEGER,
			chapter_text TEXT,
			final_text TEXT,
			final_json TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS character_profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			lang TEXT NOT NULL,
			name TEXT NOT NULL,
			profile_json TEXT,
			UNIQUE(lang, name)
		)`,
		`CREATE TABLE IF NOT EXISTS character_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			lang TEXT NOT NULL,
			name TEXT NOT NULL,
			source TEXT,
			template_json TEXT,
			UNIQUE(lang, name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to create table")
		}
	}

	if c.embeddingsEnabled {
		stmt := `CREATE TABLE IF NOT EXISTS eval_embeddings (
			rowid INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL
		)`
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			// Record inserts must not depend on the index being available.
			logging.From(ctx).Warn("could not create eval_embeddings table; vector search disabled",
				"error", err.Error(),
			)
			c.embeddingsEnabled = false
		}
	}
	return nil
}

func (c *Client) Evaluations() interfaces.EvaluationRepository {
	return c.evaluations
}

func (c *Client) Profiles() interfaces.ProfileRepository {
	return c.profiles
}

func (c *Client) Templates() interfaces.TemplateRepository {
	return c.templates
}

// Close closes the underlying database
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
