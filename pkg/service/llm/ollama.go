package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
)

// ollamaClient talks to a local ollama server over its chat API. No
// credential is required; an unreachable server surfaces as
// ErrDependencyUnavailable at call time.
type ollamaClient struct {
	endpoint string
	model    string
	client   *http.Client
}

func newOllamaClient(endpoint, modelName string, timeout time.Duration) *ollamaClient {
	return &ollamaClient{
		endpoint: endpoint,
		model:    modelName,
		client:   &http.Client{Timeout: timeout},
	}
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (c *ollamaClient) Complete(ctx context.Context, systemMessage string, transcript model.Transcript) (string, error) {
	messages := make([]ollamaChatMessage, 0, len(transcript)+1)
	if systemMessage != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemMessage})
	}
	for _, msg := range transcript {
		role := "assistant"
		if msg.Speaker == model.SpeakerUser {
			role = "user"
		}
		messages = append(messages, ollamaChatMessage{
			Role:    role,
			Content: msg.Speaker + ": " + msg.Content,
		})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal ollama request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to create ollama request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", goerr.Wrap(ErrDependencyUnavailable, "ollama server is not reachable",
			goerr.V("endpoint", c.endpoint),
			goerr.V("cause", err.Error()),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", goerr.New("ollama returned an error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(detail)),
		)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", goerr.Wrap(err, "failed to decode ollama response")
	}

	return result.Message.Content, nil
}

func (c *ollamaClient) Provider() types.Provider { return types.ProviderOllama }

func (c *ollamaClient) Model() string { return c.model }
