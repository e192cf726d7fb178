package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/internal/server"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/internal/service"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/internal/usecase"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/engine"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, cleanup, err := engine.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		defer eng.Wait()

		klog := logger.NewKratosLogger()

		var repo usecase.AnalysisRepo
		if s := eng.Store(); s != nil {
			repo = s
		}
		analyses := usecase.NewAnalysisUseCase(repo, klog)
		if g := eng.Graph(); g != nil {
			analyses.WithAnnotator(g)
		}
		svc := service.NewRadarService(eng, analyses, klog)

		checks := make(map[string]server.Check)
		for name, probe := range eng.Probes() {
			checks[name] = server.Check(probe)
		}
		srv := server.NewHTTPServer(cfg.Server, svc, server.NewHealth(checks), klog)

		app := kratos.New(
			kratos.Name("narrative_radar"),
			kratos.Logger(klog),
			kratos.Server(srv),
		)
		logger.Log.Info("启动叙事雷达服务...")
		return app.Run()
	},
}
