package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "narrative_radar",
	Short: "按时间段追踪新闻叙事并生成有证据支撑的反驳文本",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("无法加载配置文件: %w", err)
		}
		if err := logger.InitLogger(c.Log.Level, c.Log.File); err != nil {
			return fmt.Errorf("无法初始化日志: %w", err)
		}
		cfg = c
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "配置文件路径")
	rootCmd.AddCommand(serveCmd, trendCmd, counterCmd, showCmd, compareCmd, groundTruthCmd)
}

// printJSON 以缩进 JSON 输出结果
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
