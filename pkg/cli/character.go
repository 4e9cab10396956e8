package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/inkfold/writerstudio/pkg/cli/config"
	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/usecase"
	"github.com/inkfold/writerstudio/pkg/utils/safe"
)

// loadDocument reads a structured document from a JSON or YAML file. A
// single "character_profile" root key is unwrapped so exported files can be
// fed back directly.
func loadDocument(path string) (model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document file", goerr.V("path", path))
	}

	var doc model.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, goerr.Wrap(err, "failed to parse YAML document", goerr.V("path", path))
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, goerr.Wrap(err, "failed to parse JSON document", goerr.V("path", path))
		}
	}

	if len(doc) == 1 {
		if inner, ok := doc["character_profile"].(map[string]any); ok {
			return model.Document(inner), nil
		}
	}
	return doc, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to render JSON")
	}
	fmt.Println(string(data))
	return nil
}

func printSummaries(items []*model.CharacterSummary) {
	if len(items) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, it := range items {
		line := fmt.Sprintf("[%d] %s :: %s", it.ID, it.Lang, it.Name)
		if it.Source != "" {
			line += " source=" + it.Source
		}
		fmt.Printf("%s (updated %s)\n", line, it.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

// withRepository opens the configured repository, runs fn, and closes it.
func withRepository(ctx context.Context, dbCfg *config.Database, fn func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error) error {
	repo, err := dbCfg.Configure(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize repository")
	}
	defer safe.Close(ctx, repo)

	uc := usecase.New(repo, nil, nil, usecase.Defaults{})
	return fn(repo, uc.Character)
}

func cmdCharacter() *cli.Command {
	var dbCfg config.Database
	dbFlags := dbCfg.Flags()

	var lang, name, file string

	createCmd := &cli.Command{
		Name:  "create",
		Usage: "Create or replace a character profile from a document file",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Value: "zh-CN", Usage: "Language code", Destination: &lang},
			&cli.StringFlag{Name: "name", Usage: "Character name (defaults to the document's name field)", Destination: &name},
			&cli.StringFlag{Name: "file", Required: true, Usage: "JSON or YAML document file", Destination: &file},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := loadDocument(file)
			if err != nil {
				return err
			}
			profileName := name
			if profileName == "" {
				profileName, _ = doc["name"].(string)
			}
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				id, err := uc.SaveProfile(ctx, lang, profileName, doc)
				if err != nil {
					return err
				}
				fmt.Printf("Saved: id=%d lang=%s name=%s\n", id, lang, profileName)
				return nil
			})
		},
	}

	showCmd := &cli.Command{
		Name:  "show",
		Usage: "Show a saved profile by name and language",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Required: true, Usage: "Language code", Destination: &lang},
			&cli.StringFlag{Name: "name", Required: true, Usage: "Character name", Destination: &name},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				profile, err := uc.GetProfileByName(ctx, lang, name)
				if err != nil {
					return err
				}
				return printJSON(profile)
			})
		},
	}

	listCmd := &cli.Command{
		Name:  "list",
		Usage: "List saved profiles, optionally by language",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Usage: "Filter by language", Destination: &lang},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				items, err := uc.ListProfiles(ctx, lang, 100)
				if err != nil {
					return err
				}
				printSummaries(items)
				return nil
			})
		},
	}

	var nameLike, q, field, value string
	var limit int
	searchCmd := &cli.Command{
		Name:  "search",
		Usage: "Search profiles by name or JSON fields",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Usage: "Filter by language", Destination: &lang},
			&cli.StringFlag{Name: "name-like", Usage: "Partial name match", Destination: &nameLike},
			&cli.StringFlag{Name: "q", Usage: "Free-text search in name and raw JSON", Destination: &q},
			&cli.StringFlag{Name: "field", Usage: "JSON field path (e.g. traits or background.details)", Destination: &field},
			&cli.StringFlag{Name: "value", Usage: "Partial value to match in the specified JSON field", Destination: &value},
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "Max results", Destination: &limit},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				items, err := uc.SearchProfiles(ctx, model.CharacterQuery{
					Lang:      lang,
					NameLike:  nameLike,
					Text:      q,
					Field:     field,
					ValueLike: value,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				printSummaries(items)
				return nil
			})
		},
	}

	var id int
	updateCmd := &cli.Command{
		Name:  "update",
		Usage: "Update a profile by id from a document file",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "id", Required: true, Usage: "Profile id", Destination: &id},
			&cli.StringFlag{Name: "file", Required: true, Usage: "JSON or YAML document file", Destination: &file},
			&cli.StringFlag{Name: "name", Usage: "New name (optional)", Destination: &name},
			&cli.StringFlag{Name: "language", Usage: "New language (optional)", Destination: &lang},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := loadDocument(file)
			if err != nil {
				return err
			}
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				updated, err := uc.UpdateProfile(ctx, int64(id), doc, name, lang)
				if err != nil {
					return err
				}
				if updated {
					fmt.Printf("Updated: id=%d\n", id)
				} else {
					fmt.Println("No update performed (row not found)")
				}
				return nil
			})
		},
	}

	var source string
	templateCreateCmd := &cli.Command{
		Name:  "create",
		Usage: "Create or replace a character template from a document file",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Value: "zh-CN", Usage: "Language code", Destination: &lang},
			&cli.StringFlag{Name: "name", Usage: "Template name (defaults to the document's name field)", Destination: &name},
			&cli.StringFlag{Name: "source", Usage: "Origin (history/novel/person)", Destination: &source},
			&cli.StringFlag{Name: "file", Required: true, Usage: "JSON or YAML document file", Destination: &file},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := loadDocument(file)
			if err != nil {
				return err
			}
			tmplName := name
			if tmplName == "" {
				tmplName, _ = doc["name"].(string)
			}
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				tmplID, err := uc.SaveTemplate(ctx, lang, tmplName, source, doc)
				if err != nil {
					return err
				}
				fmt.Printf("Saved template: id=%d lang=%s name=%s\n", tmplID, lang, tmplName)
				return nil
			})
		},
	}

	templateListCmd := &cli.Command{
		Name:  "list",
		Usage: "List saved templates, optionally by language",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "language", Usage: "Filter by language", Destination: &lang},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				items, err := uc.ListTemplates(ctx, lang, 100)
				if err != nil {
					return err
				}
				printSummaries(items)
				return nil
			})
		},
	}

	templateShowCmd := &cli.Command{
		Name:  "show",
		Usage: "Show a template by id",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "id", Required: true, Usage: "Template id", Destination: &id},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				tmpl, err := uc.GetTemplate(ctx, int64(id))
				if err != nil {
					return err
				}
				return printJSON(tmpl)
			})
		},
	}

	var backstory, relationships string
	useTemplateCmd := &cli.Command{
		Name:  "use-template",
		Usage: "Create a character profile from a template",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "id", Required: true, Usage: "Template id", Destination: &id},
			&cli.StringFlag{Name: "name", Required: true, Usage: "New character name", Destination: &name},
			&cli.StringFlag{Name: "language", Usage: "Override language (default: template lang)", Destination: &lang},
			&cli.StringFlag{Name: "backstory", Usage: "Backstory override text", Destination: &backstory},
			&cli.StringFlag{Name: "relationships", Usage: "Relationships override as JSON (object, list, or string)", Destination: &relationships},
		}, dbFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			overrides := usecase.InstantiateOverrides{Lang: lang}
			if backstory != "" {
				overrides.Backstory = backstory
			}
			if relationships != "" {
				var rel any
				if err := json.Unmarshal([]byte(relationships), &rel); err != nil {
					// Not JSON; treat the raw string as a scalar override.
					rel = relationships
				}
				overrides.Relationships = rel
			}

			return withRepository(ctx, &dbCfg, func(repo interfaces.Repository, uc *usecase.CharacterUseCase) error {
				profile, err := uc.InstantiateFromTemplate(ctx, int64(id), name, overrides)
				if err != nil {
					return err
				}
				fmt.Printf("Saved: id=%d lang=%s name=%s\n", profile.ID, profile.Lang, profile.Name)
				return printJSON(profile)
			})
		},
	}

	return &cli.Command{
		Name:    "character",
		Aliases: []string{"c"},
		Usage:   "Manage character profiles and templates",
		Commands: []*cli.Command{
			createCmd,
			showCmd,
			listCmd,
			searchCmd,
			updateCmd,
			{
				Name:  "template",
				Usage: "Manage character templates",
				Commands: []*cli.Command{
					templateCreateCmd,
					templateListCmd,
					templateShowCmd,
				},
			},
			useTemplateCmd,
		},
	}
}
