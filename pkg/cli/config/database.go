package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/inkfold/writerstudio/pkg/domain/interfaces"
	"github.com/inkfold/writerstudio/pkg/repository/memory"
	"github.com/inkfold/writerstudio/pkg/repository/sqlite"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
)

// fallbackDir receives the database file when the configured directory
// cannot be created.
const fallbackDir = "data"

// Database holds CLI flags for storage backend configuration
type Database struct {
	backend      string
	path         string
	noEmbeddings bool
}

// Flags returns CLI flags for database configuration
func (d *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db-backend",
			Usage:       "Storage backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("WRITERSTUDIO_DB_BACKEND"),
			Destination: &d.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "SQLite database file path",
			Value:       filepath.Join("data", "writerstudio.db"),
			Sources:     cli.EnvVars("WRITERSTUDIO_DB_PATH"),
			Destination: &d.path,
		},
		&cli.BoolFlag{
			Name:        "db-no-embeddings",
			Usage:       "Disable the pseudo-embedding index (substring search only)",
			Sources:     cli.EnvVars("WRITERSTUDIO_DB_NO_EMBEDDINGS"),
			Destination: &d.noEmbeddings,
		},
	}
}

// ResolveStoragePath ensures the directory of the configured database path
// exists. When the directory cannot be created, the file is relocated into
// the process-local fallback directory, keeping the configured filename. The
// boolean reports whether the fallback was taken.
func ResolveStoragePath(configured string) (string, bool) {
	dir := filepath.Dir(configured)
	if dir == "." || os.MkdirAll(dir, 0o755) == nil {
		return configured, false
	}

	effective := filepath.Join(fallbackDir, filepath.Base(configured))
	if err := os.MkdirAll(fallbackDir, 0o755); err != nil {
		// Last resort: current directory.
		return filepath.Base(configured), true
	}
	return effective, true
}

// Configure initializes and returns a repository based on the configured
// backend. The caller is responsible for calling Close() on the returned
// repository.
func (d *Database) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch d.backend {
	case "sqlite":
		effective, usedFallback := ResolveStoragePath(d.path)
		if usedFallback {
			logging.Default().Warn("database directory unavailable, relocated",
				"configured", d.path,
				"effective", effective,
			)
		}

		var opts []sqlite.Option
		if d.noEmbeddings {
			opts = append(opts, sqlite.WithoutEmbeddings())
		}
		repo, err := sqlite.New(ctx, effective, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", effective)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		var opts []memory.Option
		if d.noEmbeddings {
			opts = append(opts, memory.WithoutEmbeddings())
		}
		return memory.New(opts...), nil

	default:
		return nil, goerr.New("invalid database backend", goerr.V("backend", d.backend))
	}
}
