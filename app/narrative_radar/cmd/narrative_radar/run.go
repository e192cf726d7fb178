package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/engine"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/report"
)

var (
	totalDays int
	chunkDays int
	htmlOut   string

	daysBack int
	topK     int
	keywords string

	mediaText string
)

// withEngine 初始化引擎并在结束后释放资源
func withEngine(cmd *cobra.Command, fn func(*engine.Engine) error) error {
	eng, cleanup, err := engine.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer eng.Wait()
	return fn(eng)
}

var trendCmd = &cobra.Command{
	Use:   "trend <keywords>",
	Short: "分段检索并生成趋势报告",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			resp, err := eng.Trend(cmd.Context(), engine.TrendRequest{
				Keywords:  strings.Join(args, " "),
				TotalDays: totalDays,
				ChunkDays: chunkDays,
			})
			if err != nil {
				var nr *model.NoResultsError
				if errors.As(err, &nr) {
					logger.Log.Warnf("没有可用文章，可尝试扩大时间范围 (当前 %d 天)", nr.WindowDays)
				}
				return err
			}
			if htmlOut != "" {
				page := report.NewPage(resp.Report, resp.Periods, resp.Degraded, time.Now())
				if err := report.WriteFile(htmlOut, page); err != nil {
					return fmt.Errorf("生成 HTML 失败: %w", err)
				}
				abs, _ := filepath.Abs(htmlOut)
				logger.Log.Infof("报告已生成: %s", abs)
			}
			return printJSON(resp)
		})
	},
}

var counterCmd = &cobra.Command{
	Use:   "counterspeech <statement>",
	Short: "检索证据并生成反驳文本",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			resp, err := eng.Counterspeech(cmd.Context(), engine.CounterRequest{
				Statement: strings.Join(args, " "),
				DaysBack:  daysBack,
				TopK:      topK,
				Keywords:  keywords,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "读取已保存的分析",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			doc, err := eng.LoadAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(doc)
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <intended message>",
	Short: "分析意图信息与媒体叙事的差距",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			out, err := eng.CompareNarratives(cmd.Context(), strings.Join(args, " "), mediaText)
			if err != nil {
				return err
			}
			return printJSON(out)
		})
	},
}

var groundTruthCmd = &cobra.Command{
	Use:   "ground-truth <question>",
	Short: "基于事实图谱回答问题",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(eng *engine.Engine) error {
			ans, err := eng.GroundTruth(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(ans)
		})
	},
}

func init() {
	trendCmd.Flags().IntVar(&totalDays, "days", 30, "回溯天数")
	trendCmd.Flags().IntVar(&chunkDays, "chunk", 7, "每个时间段的天数")
	trendCmd.Flags().StringVar(&htmlOut, "html", "", "同时输出 HTML 报告到指定路径")

	counterCmd.Flags().IntVar(&daysBack, "days", 30, "检索最近多少天，0 表示不限")
	counterCmd.Flags().IntVar(&topK, "top-k", engine.DefaultTopK, "证据条数")
	counterCmd.Flags().StringVar(&keywords, "keywords", "", "检索词，默认从陈述中提取")

	compareCmd.Flags().StringVar(&mediaText, "media", "", "媒体报道文本")
}
