package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/memory"
)

func TestEvaluationLifecycle(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	id, err := repo.Evaluations().Save(ctx, &model.Evaluation{
		Provider:    "openai",
		Lang:        "en",
		ChapterText: "Mystery tale about a missing lantern.",
		FinalText:   `{"notes": "tight pacing"}`,
		FinalJSON:   map[string]any{"notes": "tight pacing"},
	})
	gt.NoError(t, err).Required()

	got, err := repo.Evaluations().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.ChapterText).Equal("Mystery tale about a missing lantern.")
	gt.Value(t, got.FinalJSON["notes"]).Equal("tight pacing")

	_, err = repo.Evaluations().Get(ctx, 9999)
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)
}

func TestEvaluationSearchExactTextRanksFirst(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	target := "Mystery tale about a missing lantern."
	targetID, err := repo.Evaluations().Save(ctx, &model.Evaluation{ChapterText: target})
	gt.NoError(t, err).Required()
	_, err = repo.Evaluations().Save(ctx, &model.Evaluation{ChapterText: "A quiet harbor town in winter."})
	gt.NoError(t, err).Required()

	results, err := repo.Evaluations().Search(ctx, target, 1)
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].ID).Equal(targetID)
}

func TestEvaluationSearchSubstringWithoutEmbeddings(t *testing.T) {
	repo := memory.New(memory.WithoutEmbeddings())
	ctx := context.Background()

	id, err := repo.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: "Mystery tale about a missing lantern.",
	})
	gt.NoError(t, err).Required()

	results, err := repo.Evaluations().Search(ctx, "Mystery tale", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].ID).Equal(id)
}

func TestProfileUpsertAndIsolation(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	doc := model.Document{"traits": []any{"brave"}}
	first, err := repo.Profiles().Save(ctx, "en", "Kara", doc)
	gt.NoError(t, err).Required()

	// Mutating the caller's document must not leak into the stored row.
	doc["traits"].([]any)[0] = "timid"
	got, err := repo.Profiles().Get(ctx, first)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Profile["traits"].([]any)[0]).Equal("brave")

	second, err := repo.Profiles().Save(ctx, "en", "Kara", model.Document{"traits": []any{"loyal"}})
	gt.NoError(t, err).Required()
	gt.Value(t, second).Equal(first)

	items, err := repo.Profiles().List(ctx, "en", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(1)
}

func TestProfileUpdateRekeysNaturalIndex(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	id, err := repo.Profiles().Save(ctx, "en", "Kara", model.Document{"voice": "dry"})
	gt.NoError(t, err).Required()

	ok, err := repo.Profiles().Update(ctx, id, model.Document{"voice": "warm"}, "Karina", "")
	gt.NoError(t, err).Required()
	gt.Value(t, ok).Equal(true)

	_, err = repo.Profiles().GetByName(ctx, "en", "Kara")
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)

	got, err := repo.Profiles().GetByName(ctx, "en", "Karina")
	gt.NoError(t, err).Required()
	gt.Value(t, got.ID).Equal(id)
	gt.Value(t, got.Profile["voice"]).Equal("warm")

	ok, err = repo.Profiles().Update(ctx, 9999, model.Document{}, "", "")
	gt.NoError(t, err).Required()
	gt.Value(t, ok).Equal(false)
}

func TestProfileSearchConjunctiveFilters(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.Profiles().Save(ctx, "en", "Kara", model.Document{
		"traits":    []any{"brave", "loyal"},
		"backstory": map[string]any{"origin": "north"},
	})
	gt.NoError(t, err).Required()
	_, err = repo.Profiles().Save(ctx, "zh-CN", "Milo", model.Document{
		"traits": []any{"timid"},
	})
	gt.NoError(t, err).Required()

	byField, err := repo.Profiles().Search(ctx, model.CharacterQuery{
		Field: "backstory.origin", ValueLike: "north",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, byField).Length(1)
	gt.Value(t, byField[0].Name).Equal("Kara")

	byText, err := repo.Profiles().Search(ctx, model.CharacterQuery{Text: "timid"})
	gt.NoError(t, err).Required()
	gt.Array(t, byText).Length(1)
	gt.Value(t, byText[0].Name).Equal("Milo")

	conflict, err := repo.Profiles().Search(ctx, model.CharacterQuery{
		Lang: "en", Text: "timid",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, conflict).Length(0)
}

func TestTemplateUpsertKeepsLatestSource(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	id, err := repo.Templates().Save(ctx, "en", "Wandering Knight", "history", model.Document{
		"traits": []any{"stoic"},
	})
	gt.NoError(t, err).Required()

	again, err := repo.Templates().Save(ctx, "en", "Wandering Knight", "novel", model.Document{
		"traits": []any{"stoic", "wry"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, again).Equal(id)

	got, err := repo.Templates().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Source).Equal("novel")
	gt.Array(t, got.Template["traits"].([]any)).Length(2)

	items, err := repo.Templates().List(ctx, "", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(1)
	gt.Value(t, items[0].Source).Equal("novel")
}

func TestTemplateSearchMatchesSource(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	_, err := repo.Templates().Save(ctx, "en", "Wandering Knight", "history", model.Document{})
	gt.NoError(t, err).Required()

	found, err := repo.Templates().Search(ctx, model.CharacterQuery{Text: "history"})
	gt.NoError(t, err).Required()
	gt.Array(t, found).Length(1)
}
