package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/service/llm"
)

func TestBuildUnsupportedProvider(t *testing.T) {
	factory := llm.NewFactory(llm.Config{})

	_, err := factory.Build(context.Background(), "gpt-4o", types.Provider("cohere"))
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, llm.ErrUnsupportedProvider)).Equal(true)
}

func TestBuildMissingCredential(t *testing.T) {
	factory := llm.NewFactory(llm.Config{})

	cases := []types.Provider{
		types.ProviderOpenAI,
		types.ProviderAnthropic,
		types.ProviderGemini,
	}
	for _, provider := range cases {
		t.Run(provider.String(), func(t *testing.T) {
			_, err := factory.Build(context.Background(), "some-model", provider)
			gt.Error(t, err)
			gt.Value(t, errors.Is(err, llm.ErrMissingCredential)).Equal(true)
		})
	}
}

func TestBuildDefaultsFromConfig(t *testing.T) {
	factory := llm.NewFactory(llm.Config{
		Provider: types.ProviderOllama,
		Model:    "llama3",
	})

	client, err := factory.Build(context.Background(), "", "")
	gt.NoError(t, err).Required()
	gt.Value(t, client.Provider()).Equal(types.ProviderOllama)
	gt.Value(t, client.Model()).Equal("llama3")
}

func TestOllamaUnreachable(t *testing.T) {
	factory := llm.NewFactory(llm.Config{
		OllamaHost: "http://127.0.0.1:1",
		Timeout:    time.Second,
	})

	client, err := factory.Build(context.Background(), "llama3", types.ProviderOllama)
	gt.NoError(t, err).Required()

	_, err = client.Complete(context.Background(), "be terse", model.Transcript{
		{Speaker: model.SpeakerUser, Content: "hello"},
	})
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, llm.ErrDependencyUnavailable)).Equal(true)
}

func TestOllamaChatRoundTrip(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "a fine chapter"},
		}))
	}))
	defer srv.Close()

	factory := llm.NewFactory(llm.Config{OllamaHost: srv.URL})
	client, err := factory.Build(context.Background(), "llama3", types.ProviderOllama)
	gt.NoError(t, err).Required()

	out, err := client.Complete(context.Background(), "be terse", model.Transcript{
		{Speaker: model.SpeakerUser, Content: "review this"},
		{Speaker: "LiteraryCritic", Content: "strong opening"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, out).Equal("a fine chapter")
	gt.Value(t, gotPath).Equal("/api/chat")

	messages, ok := gotBody["messages"].([]any)
	gt.Value(t, ok).Equal(true)
	gt.Array(t, messages).Length(3)
	first, ok := messages[0].(map[string]any)
	gt.Value(t, ok).Equal(true)
	gt.Value(t, first["role"]).Equal("system")
}

func TestRenderTranscript(t *testing.T) {
	prompt := llm.RenderTranscript(model.Transcript{
		{Speaker: model.SpeakerUser, Content: "task text"},
		{Speaker: "CopyEditor", Content: "fix the comma"},
	})
	gt.Value(t, prompt).Equal("user: task text\n\nCopyEditor: fix the comma")
}
