package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/service/task"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

// EvaluateUseCase runs the round-robin review teams and persists their
// results.
type EvaluateUseCase struct {
	repo           interfaces.Repository
	factory        ClientFactory
	defaults       Defaults
	novelTasks     *task.Loader
	characterTasks *task.Loader
}

// EvaluateInput describes one chapter evaluation request. Empty optional
// fields fall back to process defaults.
type EvaluateInput struct {
	ChapterText string
	Model       string
	Provider    types.Provider
	Lang        string
	MaxMessages int
	Persist     bool
}

// EvaluateOutput is the full result of one evaluation run. ID is zero when
// the run was not persisted.
type EvaluateOutput struct {
	ID         int64
	FinalText  string
	FinalJSON  map[string]any
	Transcript model.Transcript

	Rounds       int
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Chapter evaluation roles, in speaking order. The last role aggregates the
// prior reviews into the structured summary.
const (
	roleLiteraryCritic    = "LiteraryCritic"
	roleCopyEditor        = "CopyEditor"
	roleContinuityChecker = "ContinuityChecker"
	roleSummarizer        = "Summarizer"
)

func defaultCriticMessage(lang string) string {
	return `You are a seasoned literary critic.
Analyze theme, character development, pacing, and narrative voice.
Output:
- Strengths (bulleted)
- Weaknesses (bulleted)
- Suggestions (short)
End with 'Score: <number>' for 'literary_quality'.
Respond in language: ` + lang
}

func defaultCopyEditorMessage(lang string) string {
	return `You are a copy editor.
Evaluate grammar, clarity, and readability.
Provide concise edits (quote short spans only).
End with 'Score: <number>' for 'readability_quality'.
Respond in language: ` + lang
}

func defaultContinuityMessage(lang string) string {
	return `You are a continuity checker.
Identify plot holes, contradictions, timeline or POV issues.
Mark issues with short references.
End with 'Score: <number>' for 'continuity_quality'.
Respond in language: ` + lang
}

func defaultSummarizerMessage(lang string) string {
	return `You aggregate prior agents' findings into a concise JSON.
Parse their 'Score: <number>' lines.
Output ONLY valid JSON with keys:
{
  "scores": {
    "literary_quality": <0-10>,
    "readability_quality": <0-10>,
    "continuity_quality": <0-10>
  },
  "overall_score": <0-10 average>,
  "strengths": ["Summarize 3-5 bullets"],
  "weaknesses": ["Summarize 3-5 bullets"],
  "action_items": ["Concrete edits the author can make"],
  "notes": "One short paragraph"
}
All natural-language fields MUST be written in: ` + lang
}

// buildAgent resolves the per-agent override and constructs the agent with
// its own completion client.
func (u *EvaluateUseCase) buildAgent(ctx context.Context, cfg model.TaskConfig, name, defaultMessage, fallbackModel string, fallbackProvider types.Provider) (*model.Agent, error) {
	override := cfg.Agent(name)

	message := override.SystemMessage
	if message == "" {
		message = defaultMessage
	}
	modelName := override.Model
	if modelName == "" {
		modelName = fallbackModel
	}
	provider := fallbackProvider
	if override.Provider != "" {
		provider = types.ParseProvider(override.Provider)
	}

	client, err := u.factory.Build(ctx, modelName, provider)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build agent client", goerr.V("agent", name))
	}

	return &model.Agent{Name: name, SystemMessage: message, Client: client}, nil
}

// Run evaluates a chapter with the four-role review team and optionally
// persists the result.
func (u *EvaluateUseCase) Run(ctx context.Context, input EvaluateInput) (*EvaluateOutput, error) {
	if strings.TrimSpace(input.ChapterText) == "" {
		return nil, goerr.New("chapter text is empty")
	}

	lang := u.defaults.lang(input.Lang)
	fallbackModel := input.Model
	if fallbackModel == "" {
		fallbackModel = u.defaults.Model
	}
	fallbackProvider := input.Provider
	if fallbackProvider == "" {
		fallbackProvider = u.defaults.Provider
	}

	cfg := u.novelTasks.Load(ctx, lang)

	roles := []struct {
		name    string
		message string
	}{
		{roleLiteraryCritic, defaultCriticMessage(lang)},
		{roleCopyEditor, defaultCopyEditorMessage(lang)},
		{roleContinuityChecker, defaultContinuityMessage(lang)},
		{roleSummarizer, defaultSummarizerMessage(lang)},
	}

	agents := make([]*model.Agent, 0, len(roles))
	for _, role := range roles {
		agent, err := u.buildAgent(ctx, cfg, role.name, role.message, fallbackModel, fallbackProvider)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	maxMessages := input.MaxMessages
	if maxMessages < 1 {
		maxMessages = cfg.MaxRounds
	}
	team, err := model.NewTeam(agents, maxMessages)
	if err != nil {
		return nil, err
	}

	taskText := buildChapterTask(cfg, lang, input.ChapterText)

	logging.From(ctx).Info("running chapter evaluation",
		slog.String("provider", fallbackProvider.String()),
		slog.String("model", fallbackModel),
		slog.String("lang", lang),
		slog.Int("max_messages", team.MaxMessages()),
	)

	started := time.Now()
	transcript, err := team.Run(ctx, taskText)
	if err != nil {
		return nil, err
	}

	out := interpret(transcript)
	out.InputTokens = estimateTokens(input.ChapterText)
	for _, msg := range transcript[1:] {
		out.OutputTokens += estimateTokens(msg.Content)
	}
	out.TotalTokens = out.InputTokens + out.OutputTokens
	out.Rounds = (len(transcript) - 1) / team.Size()

	logging.From(ctx).Info("chapter evaluation finished",
		slog.Int("messages", len(transcript)-1),
		slog.Int("rounds", out.Rounds),
		slog.Duration("elapsed", time.Since(started)),
	)

	if input.Persist {
		record := &model.Evaluation{
			Provider:     fallbackProvider.String(),
			Model:        fallbackModel,
			Lang:         lang,
			Rounds:       out.Rounds,
			InputTokens:  out.InputTokens,
			OutputTokens: out.OutputTokens,
			TotalTokens:  out.TotalTokens,
			ChapterText:  input.ChapterText,
			FinalText:    out.FinalText,
			FinalJSON:    out.FinalJSON,
		}
		id, err := u.repo.Evaluations().Save(ctx, record)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to persist evaluation")
		}
		out.ID = id
	}

	return out, nil
}

func buildChapterTask(cfg model.TaskConfig, lang, chapterText string) string {
	preamble := cfg.Task.Preamble
	if preamble == "" {
		preamble = fmt.Sprintf(
			"All agents must answer in %s. Keep outputs concise and follow your role rules.\n\n"+
				"Evaluate the following novel chapter. Each agent speaks once, stays concise, and follows their output rules.\n",
			lang,
		)
	}

	parts := []string{preamble}
	if cfg.Task.Schema != "" {
		parts = append(parts, "Schema:\n"+cfg.Task.Schema)
	}
	parts = append(parts, "CHAPTER:\n\n"+chapterText+"\n")
	return strings.Join(parts, "\n\n")
}

// Character review roles, in speaking order.
const (
	rolePsychologist       = "LiteraryPsychologist"
	roleNarrativeAnalyst   = "NarrativeRoleAnalyst"
	roleContinuityReviewer = "ContinuityReviewer"
)

// ReviewCharacterInput describes one character review request.
type ReviewCharacterInput struct {
	ChapterText string
	Profile     model.Document
	Model       string
	Provider    types.Provider
	Lang        string
}

// ReviewCharacter discusses a character against a chapter using the review
// team of the character_profile task family. The result is returned, not
// persisted.
func (u *EvaluateUseCase) ReviewCharacter(ctx context.Context, input ReviewCharacterInput) (*EvaluateOutput, error) {
	if strings.TrimSpace(input.ChapterText) == "" {
		return nil, goerr.New("chapter text is empty")
	}
	if u.characterTasks == nil {
		return nil, goerr.New("character task directory is not configured")
	}

	lang := u.defaults.lang(input.Lang)
	fallbackModel := input.Model
	if fallbackModel == "" {
		fallbackModel = u.defaults.Model
	}
	fallbackProvider := input.Provider
	if fallbackProvider == "" {
		fallbackProvider = u.defaults.Provider
	}

	cfg := u.characterTasks.Load(ctx, lang)

	roles := []struct {
		name    string
		message string
	}{
		{rolePsychologist, "Analyze identity and psychology."},
		{roleNarrativeAnalyst, "Analyze role, symbolism, and function."},
		{roleContinuityReviewer, "Check continuity and relationships."},
		{roleSummarizer, "Output a single JSON matching the template keys."},
	}

	agents := make([]*model.Agent, 0, len(roles))
	for _, role := range roles {
		agent, err := u.buildAgent(ctx, cfg, role.name, role.message, fallbackModel, fallbackProvider)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	team, err := model.NewTeam(agents, cfg.MaxRounds)
	if err != nil {
		return nil, err
	}

	profileJSON, err := json.Marshal(input.Profile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal character profile")
	}

	preamble := cfg.Task.Preamble
	if preamble == "" {
		preamble = "Discuss character based on the chapter and provided profile; summarizer outputs JSON."
	}
	taskText := preamble + "\n\n" +
		"Chapter:\n" + input.ChapterText + "\n\n" +
		"Character Profile (JSON):\n" + string(profileJSON) + "\n"

	transcript, err := team.Run(ctx, taskText)
	if err != nil {
		return nil, err
	}

	out := interpret(transcript)
	out.Rounds = (len(transcript) - 1) / team.Size()
	return out, nil
}

// interpret extracts the last message and attempts the strict JSON decode.
// A missing structured result is routine.
func interpret(transcript model.Transcript) *EvaluateOutput {
	return &EvaluateOutput{
		FinalText:  transcript.FinalText(),
		FinalJSON:  transcript.FinalJSON(),
		Transcript: transcript,
	}
}

// estimateTokens is a whitespace-split word count. Display-only; never used
// for billing.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}
