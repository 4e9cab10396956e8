// Package task loads language-specific task configuration documents.
//
// A task family is a directory of YAML files named by language code,
// for example tasks/novel_eval/en.yaml. Lookup falls back to English
// when the requested language has no document, and degrades to a zero
// configuration (callers' built-in defaults) when nothing is readable.
package task

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

const fallbackLang = "en"

// Loader resolves task configuration documents under a base directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load returns the configuration for lang, falling back to English and
// then to a zero TaskConfig. Load never fails: a missing or malformed
// document is logged and treated as absent.
func (l *Loader) Load(ctx context.Context, lang string) model.TaskConfig {
	if lang != "" {
		if cfg, ok := l.read(ctx, lang); ok {
			return cfg
		}
	}
	if lang != fallbackLang {
		if cfg, ok := l.read(ctx, fallbackLang); ok {
			return cfg
		}
	}
	return model.TaskConfig{}
}

func (l *Loader) read(ctx context.Context, lang string) (model.TaskConfig, bool) {
	path := filepath.Join(l.dir, lang+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.From(ctx).Warn("failed to read task config",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return model.TaskConfig{}, false
	}

	var cfg model.TaskConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		logging.From(ctx).Warn("malformed task config, ignoring",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.TaskConfig{}, false
	}
	return cfg, true
}
