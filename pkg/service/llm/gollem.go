package llm

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
)

// gollemClient adapts a gollem.LLMClient to the round-robin completion
// contract. Each Complete call opens a fresh session: the full transcript is
// replayed as a single prompt, so provider-side conversation state is never
// relied on.
type gollemClient struct {
	llm      gollem.LLMClient
	provider types.Provider
	model    string
	timeout  time.Duration
}

func (c *gollemClient) Complete(ctx context.Context, systemMessage string, transcript model.Transcript) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemMessage),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session",
			goerr.V("provider", c.provider.String()),
			goerr.V("model", c.model),
		)
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(RenderTranscript(transcript)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content",
			goerr.V("provider", c.provider.String()),
			goerr.V("model", c.model),
		)
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("empty completion response",
			goerr.V("provider", c.provider.String()),
			goerr.V("model", c.model),
		)
	}

	return strings.Join(resp.Texts, "\n"), nil
}

func (c *gollemClient) Provider() types.Provider { return c.provider }

func (c *gollemClient) Model() string { return c.model }

// RenderTranscript flattens a transcript into a single prompt, one
// speaker-prefixed block per message. The task message keeps its "user"
// label so the next agent sees who said what.
func RenderTranscript(transcript model.Transcript) string {
	var sb strings.Builder
	for i, msg := range transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(msg.Speaker)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}
