package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/inkfold/writerstudio/pkg/cli/config"
	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/usecase"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
	"github.com/inkfold/writerstudio/pkg/utils/safe"
)

func cmdEvaluate() *cli.Command {
	var jsonOnly bool
	var persist bool
	var maxMessages int
	var dbCfg config.Database
	var llmCfg config.LLM
	var tasksCfg config.Tasks

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print only the final JSON summary if available",
			Destination: &jsonOnly,
		},
		&cli.BoolFlag{
			Name:        "persist",
			Usage:       "Persist the evaluation record",
			Value:       true,
			Destination: &persist,
		},
		&cli.IntFlag{
			Name:        "max-messages",
			Usage:       "Message budget for the agent conversation",
			Destination: &maxMessages,
		},
	}
	flags = append(flags, dbCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, tasksCfg.Flags()...)

	return &cli.Command{
		Name:      "evaluate",
		Aliases:   []string{"e"},
		Usage:     "Evaluate a novel chapter with the review team",
		ArgsUsage: "<chapter-file>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("exactly one chapter file argument is required")
			}
			chapterPath := c.Args().First()

			text, err := os.ReadFile(chapterPath)
			if err != nil {
				return goerr.Wrap(err, "failed to read chapter file", goerr.V("path", chapterPath))
			}

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo, llmCfg.Configure(), tasksCfg.NovelLoader(), usecase.Defaults{
				Provider: llmCfg.Provider(),
				Model:    llmCfg.Model(),
				Lang:     llmCfg.Lang(),
			})

			out, err := uc.Evaluate.Run(ctx, usecase.EvaluateInput{
				ChapterText: string(text),
				MaxMessages: maxMessages,
				Persist:     persist,
			})
			if err != nil {
				return goerr.Wrap(err, "evaluation failed")
			}

			if jsonOnly {
				if out.FinalJSON != nil {
					data, err := json.MarshalIndent(out.FinalJSON, "", "  ")
					if err != nil {
						return goerr.Wrap(err, "failed to render final JSON")
					}
					fmt.Println(string(data))
				} else if out.FinalText != "" {
					fmt.Println(out.FinalText)
				} else {
					fmt.Println("{}")
				}
			} else {
				fmt.Println("=== Team Messages ===")
				for _, msg := range out.Transcript {
					fmt.Printf("\n[%s]\n%s\n", msg.Speaker, msg.Content)
				}
			}

			// Keep stdout clean in JSON mode; metrics go to stderr.
			metrics := fmt.Sprintf(
				"=== Token Usage (estimated) ===\n"+
					"provider: %s\nmodel: %s\nrounds: %d\n"+
					"input_tokens: %d\noutput_tokens: %d\ntotal_tokens: %d\n",
				providerLabel(llmCfg.Provider()), llmCfg.Model(), out.Rounds,
				out.InputTokens, out.OutputTokens, out.TotalTokens,
			)
			if jsonOnly {
				fmt.Fprint(os.Stderr, "\n"+metrics)
			} else {
				fmt.Print("\n" + metrics)
			}

			if out.ID != 0 {
				logging.Default().Info("evaluation persisted", "id", out.ID)
			}
			return nil
		},
	}
}

func providerLabel(p types.Provider) string {
	if p == "" {
		return "openai"
	}
	return p.String()
}
