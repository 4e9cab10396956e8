package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	server "github.com/inkfold/writerstudio/pkg/controller/http"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/repository/memory"
	"github.com/inkfold/writerstudio/pkg/service/task"
	"github.com/inkfold/writerstudio/pkg/usecase"
)

type stubClient struct {
	reply func(transcript model.Transcript) (string, error)
}

func (s *stubClient) Complete(ctx context.Context, systemMessage string, transcript model.Transcript) (string, error) {
	return s.reply(transcript)
}

func (s *stubClient) Provider() types.Provider { return types.ProviderOpenAI }
func (s *stubClient) Model() string            { return "stub" }

type stubFactory struct {
	reply func(transcript model.Transcript) (string, error)
}

func (f *stubFactory) Build(ctx context.Context, modelName string, provider types.Provider) (model.CompletionClient, error) {
	return &stubClient{reply: f.reply}, nil
}

func newServer(t *testing.T, reply func(transcript model.Transcript) (string, error)) (*server.Server, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	uc := usecase.New(repo, &stubFactory{reply: reply}, task.NewLoader(t.TempDir()), usecase.Defaults{
		Provider: types.ProviderOpenAI,
		Model:    "gpt-4o-mini",
		Lang:     "en",
	})
	return server.New(uc), repo
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body)).Required()
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out)).Required()
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, decode(t, rec)["status"]).Equal("ok")
}

func TestEvaluateEndpoint(t *testing.T) {
	srv, repo := newServer(t, func(transcript model.Transcript) (string, error) {
		if len(transcript) == 4 {
			return `{"overall_score": 9}`, nil
		}
		return "Score: 8", nil
	})

	rec := doJSON(t, srv, http.MethodPost, "/evaluate", map[string]any{
		"chapter_text":    "The lighthouse went dark at midnight.",
		"return_messages": true,
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	out := decode(t, rec)
	gt.Value(t, out["final_text"]).Equal(`{"overall_score": 9}`)
	finalJSON, ok := out["final_json"].(map[string]any)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, finalJSON["overall_score"]).Equal(float64(9))

	messages, ok := out["messages"].([]any)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, messages).Length(5)

	// Persisted by default; the record is retrievable.
	id := int64(out["id"].(float64))
	record, err := repo.Evaluations().Get(context.Background(), id)
	gt.NoError(t, err).Required()
	gt.Value(t, record.ChapterText).Equal("The lighthouse went dark at midnight.")
}

func TestEvaluateRequiresChapterText(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/evaluate", map[string]any{})
	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestGetEvaluationNotFound(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/evaluations/42", nil)
	gt.Value(t, rec.Code).Equal(http.StatusNotFound)
}

func TestSearchEndpoint(t *testing.T) {
	srv, repo := newServer(t, nil)

	_, err := repo.Evaluations().Save(context.Background(), &model.Evaluation{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Lang:        "en",
		ChapterText: "Mystery tale",
		FinalText:   `{"score":8}`,
		FinalJSON:   map[string]any{"score": float64(8)},
	})
	gt.NoError(t, err).Required()

	rec := doJSON(t, srv, http.MethodGet, "/search?q=Mystery&top_k=5", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	results, ok := decode(t, rec)["results"].([]any)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, results).Length(1)
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/search", nil)
	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestProfileLifecycle(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/profiles", map[string]any{
		"language": "en",
		"name":     "Mira",
		"profile":  map[string]any{"traits": []string{"stubborn"}},
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	id := int64(decode(t, rec)["id"].(float64))
	gt.Value(t, id != 0).Equal(true)

	rec = doJSON(t, srv, http.MethodGet, "/profiles/by_name?language=en&name=Mira", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, decode(t, rec)["name"]).Equal("Mira")

	rec = doJSON(t, srv, http.MethodPut, "/profiles/1", map[string]any{
		"profile": map[string]any{"traits": []string{"stubborn", "loyal"}},
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, decode(t, rec)["updated"]).Equal(true)

	rec = doJSON(t, srv, http.MethodGet, "/profiles/?language=en", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	profiles, ok := decode(t, rec)["profiles"].([]any)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, profiles).Length(1)

	rec = doJSON(t, srv, http.MethodGet, "/profiles/search?q=loyal", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	found, ok := decode(t, rec)["profiles"].([]any)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, found).Length(1)

	rec = doJSON(t, srv, http.MethodGet, "/profiles/9999", nil)
	gt.Value(t, rec.Code).Equal(http.StatusNotFound)
}

func TestTemplateUse(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/templates", map[string]any{
		"language": "en",
		"name":     "The Wanderer",
		"source":   "novel",
		"template": map[string]any{
			"backstory":     "Left home young.",
			"relationships": []string{"old friend"},
		},
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	id := int64(decode(t, rec)["id"].(float64))
	path := fmt.Sprintf("/templates/%d/use", id)

	rec = doJSON(t, srv, http.MethodPost, path, map[string]any{
		"name":          "Kara",
		"relationships": map[string]any{"allies": []string{"Ally1"}},
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	out := decode(t, rec)
	gt.Value(t, out["name"]).Equal("Kara")
	profile, ok := out["profile"].(map[string]any)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, profile["relationships"]).Equal([]any{"Ally1"})

	// The template itself is untouched.
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/templates/%d", id), nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	tmpl := decode(t, rec)
	gt.Value(t, tmpl["name"]).Equal("The Wanderer")
}

func TestUseTemplateRequiresName(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/templates/1/use", map[string]any{})
	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}
