package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rafabene/avantpro-avatars/internal/bootstrap"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/config"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "worker",
		Short:         "Tarefas de manutenção de avatares",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "arquivo .env opcional")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Executa a varredura e a atualização de gravatars nos horários configurados",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), envFile, func(ctx context.Context, app *bootstrap.App) error {
					return runScheduler(ctx, app)
				})
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Executa uma varredura de consistência e imprime o relatório",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), envFile, func(ctx context.Context, app *bootstrap.App) error {
					report, err := app.Sweeper.EnsureConsistency(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), report)
				})
			},
		},
		&cobra.Command{
			Use:   "refresh-stale",
			Short: "Atualiza uma vez os gravatars vencidos e imprime o relatório",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), envFile, func(ctx context.Context, app *bootstrap.App) error {
					report, err := app.StaleRefresher.RefreshStale(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), report)
				})
			},
		},
	)

	return root
}

// withApp carrega a configuração, monta a aplicação e cancela o contexto em SIGINT/SIGTERM
func withApp(parent context.Context, envFile string, fn func(context.Context, *bootstrap.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewSlogLogger(cfg.Logging.Level)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Warmer.Start(ctx)
	defer app.Warmer.Stop()

	return fn(ctx, app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
