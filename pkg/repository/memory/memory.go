package memory

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/embed"
)

// ErrNotFound is returned when a lookup matches nothing. It wraps
// model.ErrNotFound so callers can check either.
var ErrNotFound = goerr.Wrap(model.ErrNotFound, "not found in memory repository")

// Memory is an in-memory Repository for tests and development mode.
type Memory struct {
	evaluations *evaluationRepository
	profiles    *profileRepository
	templates   *templateRepository
}

var _ interfaces.Repository = &Memory{}

// Option configures the memory repository
type Option func(*Memory)

// WithoutEmbeddings disables the pseudo-embedding index, forcing evaluation
// search onto the substring fallback path.
func WithoutEmbeddings() Option {
	return func(m *Memory) {
		m.evaluations.embedDim = 0
	}
}

// New creates an in-memory repository
func New(opts ...Option) *Memory {
	m := &Memory{
		evaluations: newEvaluationRepository(embed.DefaultDim),
		profiles:    newProfileRepository(),
		templates:   newTemplateRepository(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Evaluations() interfaces.EvaluationRepository {
	return m.evaluations
}

func (m *Memory) Profiles() interfaces.ProfileRepository {
	return m.profiles
}

func (m *Memory) Templates() interfaces.TemplateRepository {
	return m.templates
}

func (m *Memory) Close() error {
	return nil
}
