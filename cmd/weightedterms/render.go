package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/config"
	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	logpkg "github.com/kailas-cloud/weightedterms/internal/logger"
	"github.com/kailas-cloud/weightedterms/internal/render"
	paneluc "github.com/kailas-cloud/weightedterms/internal/usecase/panel"
)

var (
	flagRenderPanel string
	flagRenderChart string
)

func init() {
	renderCmd.Flags().StringVarP(&flagRenderPanel, "panel", "p", "", "render only this panel id")
	renderCmd.Flags().StringVarP(&flagRenderChart, "chart", "c", "", "override chart type (table, bar, pie)")

	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load the configured panels once and print them",
	Long: `Load every configured panel (weights, then data) and print the weighted,
ranked terms as tables.

Examples:
  weightedterms render
  weightedterms render --panel status --chart pie`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRender(cmd.Context(), cmd)
	},
}

func runRender(ctx context.Context, cmd *cobra.Command) error {
	env := env()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	var chart dompanel.Chart
	if flagRenderChart != "" {
		if chart, err = dompanel.ParseChart(flagRenderChart); err != nil {
			return err
		}
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	panels := a.dashboard.Panels()
	if flagRenderPanel != "" {
		p, err := a.dashboard.Panel(flagRenderPanel)
		if err != nil {
			return err
		}
		panels = []*paneluc.Service{p}
	}

	out := cmd.OutOrStdout()
	for _, p := range panels {
		if err := p.Initialize(ctx); err != nil {
			logger.Warn("Panel failed to load", zap.String("panel", p.ID()), zap.Error(err))
			fmt.Fprintf(out, "%s: %v\n\n", p.ID(), err)
			continue
		}
		snap := p.Snapshot()
		for _, m := range snap.Messages {
			fmt.Fprintf(out, "[%s] %s\n", m.Severity, m.Text)
		}
		fmt.Fprintln(out, render.Text(render.Build(p.Definition(), snap, chart)))
		fmt.Fprintln(out)
	}
	return nil
}
