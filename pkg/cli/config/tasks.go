package config

import (
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/inkfold/writerstudio/pkg/service/task"
)

// Tasks holds CLI flags for task configuration directories
type Tasks struct {
	novelDir     string
	characterDir string
}

// Flags returns CLI flags for task directory configuration
func (t *Tasks) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "novel-tasks-dir",
			Usage:       "Directory of novel evaluation task configs",
			Value:       filepath.Join("tasks", "novel_eval"),
			Sources:     cli.EnvVars("WRITERSTUDIO_NOVEL_TASKS_DIR"),
			Destination: &t.novelDir,
		},
		&cli.StringFlag{
			Name:        "character-tasks-dir",
			Usage:       "Directory of character profile task configs",
			Value:       filepath.Join("tasks", "character_profile"),
			Sources:     cli.EnvVars("WRITERSTUDIO_CHARACTER_TASKS_DIR"),
			Destination: &t.characterDir,
		},
	}
}

// NovelLoader returns the loader for the novel evaluation task family
func (t *Tasks) NovelLoader() *task.Loader {
	return task.NewLoader(t.novelDir)
}

// CharacterLoader returns the loader for the character profile task family
func (t *Tasks) CharacterLoader() *task.Loader {
	return task.NewLoader(t.characterDir)
}
