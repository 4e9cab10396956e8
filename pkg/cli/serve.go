package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/inkfold/writerstudio/pkg/cli/config"
	httpctrl "github.com/inkfold/writerstudio/pkg/controller/http"
	"github.com/inkfold/writerstudio/pkg/usecase"
	"github.com/inkfold/writerstudio/pkg/utils/logging"
	"github.com/inkfold/writerstudio/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var dbCfg config.Database
	var llmCfg config.LLM
	var tasksCfg config.Tasks

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("WRITERSTUDIO_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, dbCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, tasksCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo, llmCfg.Configure(), tasksCfg.NovelLoader(), usecase.Defaults{
				Provider: llmCfg.Provider(),
				Model:    llmCfg.Model(),
				Lang:     llmCfg.Lang(),
			}, usecase.WithCharacterTasks(tasksCfg.CharacterLoader()))

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "llm", llmCfg)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
