package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/repository/sqlite"
)

func newClient(t *testing.T, opts ...sqlite.Option) *sqlite.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	client, err := sqlite.New(context.Background(), path, opts...)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, client.Close())
	})
	return client
}

func TestEvaluationSaveAndGet(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	id, err := client.Evaluations().Save(ctx, &model.Evaluation{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Lang:         "en",
		Rounds:       1,
		InputTokens:  42,
		OutputTokens: 100,
		TotalTokens:  142,
		ChapterText:  "Mystery tale about a missing lantern.",
		FinalText:    `{"overall_score": 7}`,
		FinalJSON:    map[string]any{"overall_score": float64(7)},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, id > 0).Equal(true)

	got, err := client.Evaluations().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.ID).Equal(id)
	gt.Value(t, got.Provider).Equal("openai")
	gt.Value(t, got.Model).Equal("gpt-4o-mini")
	gt.Value(t, got.Lang).Equal("en")
	gt.Value(t, got.Rounds).Equal(1)
	gt.Value(t, got.TotalTokens).Equal(142)
	gt.Value(t, got.ChapterText).Equal("Mystery tale about a missing lantern.")
	gt.Value(t, got.FinalJSON["overall_score"]).Equal(float64(7))
	gt.Value(t, got.CreatedAt.IsZero()).Equal(false)
}

func TestEvaluationGetNotFound(t *testing.T) {
	client := newClient(t)

	_, err := client.Evaluations().Get(context.Background(), 9999)
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)
}

func TestEvaluationSaveWithoutFinalJSON(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	id, err := client.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: "plain prose finale",
		FinalText:   "The chapter reads well overall.",
	})
	gt.NoError(t, err).Required()

	got, err := client.Evaluations().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.FinalJSON == nil).Equal(true)
	gt.Value(t, got.FinalText).Equal("The chapter reads well overall.")
}

func TestEvaluationSearchRanksByDistance(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	target := "Mystery tale about a missing lantern."
	targetID, err := client.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: target, FinalText: "summary one",
	})
	gt.NoError(t, err).Required()
	_, err = client.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: "A quiet harbor town in winter.", FinalText: "summary two",
	})
	gt.NoError(t, err).Required()

	// Identical text yields an identical pseudo-embedding, so the exact
	// chapter always ranks first.
	results, err := client.Evaluations().Search(ctx, target, 2)
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(2)
	gt.Value(t, results[0].ID).Equal(targetID)
}

func TestEvaluationSearchSubstringWithoutEmbeddings(t *testing.T) {
	client := newClient(t, sqlite.WithoutEmbeddings())
	ctx := context.Background()

	id, err := client.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: "Mystery tale about a missing lantern.",
	})
	gt.NoError(t, err).Required()
	_, err = client.Evaluations().Save(ctx, &model.Evaluation{
		ChapterText: "A quiet harbor town in winter.",
	})
	gt.NoError(t, err).Required()

	results, err := client.Evaluations().Search(ctx, "Mystery tale", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].ID).Equal(id)

	none, err := client.Evaluations().Search(ctx, "no such phrase", 5)
	gt.NoError(t, err).Required()
	gt.Array(t, none).Length(0)
}

func TestProfileUpsertByNaturalKey(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	first, err := client.Profiles().Save(ctx, "en", "Kara", model.Document{
		"traits": []any{"brave"},
	})
	gt.NoError(t, err).Required()

	second, err := client.Profiles().Save(ctx, "en", "Kara", model.Document{
		"traits": []any{"brave", "loyal"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, second).Equal(first)

	items, err := client.Profiles().List(ctx, "en", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(1)

	got, err := client.Profiles().GetByName(ctx, "en", "Kara")
	gt.NoError(t, err).Required()
	gt.Array(t, got.Profile["traits"].([]any)).Length(2)
}

func TestProfileDistinctLanguagesKeepSeparateRows(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	enID, err := client.Profiles().Save(ctx, "en", "Kara", model.Document{"voice": "dry"})
	gt.NoError(t, err).Required()
	zhID, err := client.Profiles().Save(ctx, "zh-CN", "Kara", model.Document{"voice": "wry"})
	gt.NoError(t, err).Required()
	gt.Value(t, enID == zhID).Equal(false)

	all, err := client.Profiles().List(ctx, "", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(2)

	en, err := client.Profiles().List(ctx, "en", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, en).Length(1)
	gt.Value(t, en[0].ID).Equal(enID)
}

func TestProfileGetNotFound(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	_, err := client.Profiles().Get(ctx, 9999)
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)

	_, err = client.Profiles().GetByName(ctx, "en", "Nobody")
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)
}

func TestProfileSearchFilters(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	_, err := client.Profiles().Save(ctx, "en", "Kara", model.Document{
		"traits":    []any{"brave", "loyal"},
		"backstory": map[string]any{"origin": "north"},
	})
	gt.NoError(t, err).Required()
	_, err = client.Profiles().Save(ctx, "en", "Milo", model.Document{
		"traits": []any{"timid"},
	})
	gt.NoError(t, err).Required()

	byName, err := client.Profiles().Search(ctx, model.CharacterQuery{NameLike: "Kar"})
	gt.NoError(t, err).Required()
	gt.Array(t, byName).Length(1)
	gt.Value(t, byName[0].Name).Equal("Kara")

	byText, err := client.Profiles().Search(ctx, model.CharacterQuery{Text: "loyal"})
	gt.NoError(t, err).Required()
	gt.Array(t, byText).Length(1)
	gt.Value(t, byText[0].Name).Equal("Kara")

	byField, err := client.Profiles().Search(ctx, model.CharacterQuery{
		Field: "backstory.origin", ValueLike: "nor",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, byField).Length(1)
	gt.Value(t, byField[0].Name).Equal("Kara")

	miss, err := client.Profiles().Search(ctx, model.CharacterQuery{
		Lang: "zh-CN", NameLike: "Kar",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, miss).Length(0)
}

func TestProfileUpdate(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	id, err := client.Profiles().Save(ctx, "en", "Kara", model.Document{"voice": "dry"})
	gt.NoError(t, err).Required()

	ok, err := client.Profiles().Update(ctx, id, model.Document{"voice": "warm"}, "", "")
	gt.NoError(t, err).Required()
	gt.Value(t, ok).Equal(true)

	got, err := client.Profiles().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Name).Equal("Kara")
	gt.Value(t, got.Profile["voice"]).Equal("warm")

	ok, err = client.Profiles().Update(ctx, id, model.Document{"voice": "warm"}, "Karina", "zh-CN")
	gt.NoError(t, err).Required()
	gt.Value(t, ok).Equal(true)

	got, err = client.Profiles().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Name).Equal("Karina")
	gt.Value(t, got.Lang).Equal("zh-CN")

	ok, err = client.Profiles().Update(ctx, 9999, model.Document{}, "", "")
	gt.NoError(t, err).Required()
	gt.Value(t, ok).Equal(false)
}

func TestTemplateSaveAndSearch(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	id, err := client.Templates().Save(ctx, "en", "Wandering Knight", "history", model.Document{
		"traits": []any{"stoic"},
	})
	gt.NoError(t, err).Required()

	got, err := client.Templates().Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Source).Equal("history")
	gt.Value(t, got.Name).Equal("Wandering Knight")

	again, err := client.Templates().Save(ctx, "en", "Wandering Knight", "novel", model.Document{
		"traits": []any{"stoic", "wry"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, again).Equal(id)

	items, err := client.Templates().List(ctx, "en", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(1)
	gt.Value(t, items[0].Source).Equal("novel")

	found, err := client.Templates().Search(ctx, model.CharacterQuery{Text: "Knight"})
	gt.NoError(t, err).Required()
	gt.Array(t, found).Length(1)

	_, err = client.Templates().Get(ctx, 9999)
	gt.Value(t, errors.Is(err, model.ErrNotFound)).Equal(true)
}
