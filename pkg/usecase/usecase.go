package usecase

import (
	"context"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/service/task"
)

// ClientFactory builds per-agent completion clients. Empty model or provider
// arguments fall back to process-wide defaults.
type ClientFactory interface {
	Build(ctx context.Context, modelName string, provider types.Provider) (model.CompletionClient, error)
}

// Defaults are the process-wide run parameters applied when a request omits
// them.
type Defaults struct {
	Provider types.Provider
	Model    string
	Lang     string
}

func (d Defaults) lang(lang string) string {
	if lang != "" {
		return lang
	}
	if d.Lang != "" {
		return d.Lang
	}
	return "en"
}

type UseCases struct {
	repo     interfaces.Repository
	factory  ClientFactory
	defaults Defaults

	Evaluate  *EvaluateUseCase
	Character *CharacterUseCase
}

type Option func(*UseCases)

// WithCharacterTasks points the character review flow at its task family
// directory.
func WithCharacterTasks(loader *task.Loader) Option {
	return func(uc *UseCases) {
		uc.Evaluate.characterTasks = loader
	}
}

func New(repo interfaces.Repository, factory ClientFactory, novelTasks *task.Loader, defaults Defaults, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		factory:  factory,
		defaults: defaults,
	}

	uc.Evaluate = &EvaluateUseCase{
		repo:       repo,
		factory:    factory,
		defaults:   defaults,
		novelTasks: novelTasks,
	}
	uc.Character = &CharacterUseCase{repo: repo}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Evaluations exposes read access to stored evaluation records.
func (u *UseCases) Evaluations() interfaces.EvaluationRepository {
	return u.repo.Evaluations()
}
