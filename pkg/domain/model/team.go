package model

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/types"
)

// CompletionClient abstracts a text-generation service identified by a
// provider and model name. Complete sends the agent's system instruction and
// the accumulated transcript, and returns exactly one message of content.
type CompletionClient interface {
	Complete(ctx context.Context, systemMessage string, transcript Transcript) (string, error)
	Provider() types.Provider
	Model() string
}

// Agent is a configured role participating in round-robin turns. Each agent
// owns its completion client, so a team may mix providers and models.
type Agent struct {
	Name          string
	SystemMessage string
	Client        CompletionClient
}

// DefaultMaxMessages is the message budget used when a run does not
// configure one: one turn per agent in the common four-agent team.
const DefaultMaxMessages = 4

// Team runs a fixed ordered list of agents in strict rotation until the
// message budget is exhausted.
type Team struct {
	agents      []*Agent
	maxMessages int
}

// NewTeam constructs a team from an ordered agent list. maxMessages counts
// produced agent messages, independent of the agent count; values < 1 fall
// back to DefaultMaxMessages.
func NewTeam(agents []*Agent, maxMessages int) (*Team, error) {
	if len(agents) == 0 {
		return nil, goerr.New("team requires at least one agent")
	}
	if maxMessages < 1 {
		maxMessages = DefaultMaxMessages
	}
	return &Team{agents: agents, maxMessages: maxMessages}, nil
}

// Size returns the number of agents in the team.
func (t *Team) Size() int {
	return len(t.agents)
}

// MaxMessages returns the effective message budget.
func (t *Team) MaxMessages() int {
	return t.maxMessages
}

// Run executes the round-robin conversation. The transcript starts with the
// injected task message; each turn the next agent in rotation receives the
// entire transcript so far and appends exactly one message. A failed
// completion call aborts the whole run; there is no retry, skip or
// substitution. On success the returned transcript holds the task message
// followed by exactly maxMessages agent messages.
func (t *Team) Run(ctx context.Context, task string) (Transcript, error) {
	transcript := Transcript{{Speaker: SpeakerUser, Content: task}}

	for produced := 0; produced < t.maxMessages; produced++ {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "evaluation run canceled",
				goerr.V("produced", produced),
			)
		}

		agent := t.agents[produced%len(t.agents)]
		content, err := agent.Client.Complete(ctx, agent.SystemMessage, transcript)
		if err != nil {
			return nil, goerr.Wrap(err, "agent turn failed",
				goerr.V("agent", agent.Name),
				goerr.V("turn", produced),
			)
		}

		transcript = append(transcript, Message{Speaker: agent.Name, Content: content})
	}

	return transcript, nil
}
