package trend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

const reportPrompt = `You are a senior media intelligence analyst delivering a high-level briefing on media coverage of "%s". Your analysis must be insightful, professional, and directly supported by the data provided.

MEDIA INTELLIGENCE REPORT:
%s
YOUR TASK:
1. Executive Summary: summarise the overall coverage in a few sentences.
2. Trend Analysis: analyse how the narrative evolves from one period to the next and why it may be shifting. Cite brief examples from the supporting raw text. Interpret the sentiment scores rather than restating them.
3. Mitigation Strategies: propose 2-3 distinct, actionable strategies, each with a "name", a "description" of concrete actions and a "justification" tied to the trends you identified.

OUTPUT FORMAT:
Return a single valid JSON object with exactly these keys: "executive_summary" (string), "trend_analysis" (string), "mitigation_strategies" (array of objects with "name", "description", "justification"). Do not include any text before or after the JSON.`

// Synthesizer 跨时间段的趋势报告生成
type Synthesizer struct {
	gen     llm.Generator
	excerpt int
}

// New 创建报告生成器，excerpt 为每个时间段引用的语料长度
func New(gen llm.Generator, excerpt int) *Synthesizer {
	return &Synthesizer{gen: gen, excerpt: excerpt}
}

// Briefing 按时间顺序拼接各时间段的叙事、情感均值与语料摘录
func Briefing(buckets []model.PeriodBucket, excerpt int) string {
	sorted := make([]model.PeriodBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PeriodLabel < sorted[j].PeriodLabel })

	var sb strings.Builder
	for _, b := range sorted {
		fmt.Fprintf(&sb, "--- Analysis for Period Starting %s ---\n", b.PeriodLabel)
		fmt.Fprintf(&sb, "Dominant Narratives:\n%s\n", b.NarrativeSummary)
		fmt.Fprintf(&sb, "Overall Sentiment Score: %.3f\n", b.AverageSentiment)
		corpus := b.CorpusText
		if excerpt > 0 {
			corpus = model.Truncate(corpus, excerpt)
		}
		fmt.Fprintf(&sb, "Supporting Raw Text for this period:\n%s\n\n", corpus)
	}
	return sb.String()
}

// reportSchema 模型输出的固定结构
type reportSchema struct {
	ExecutiveSummary     string                     `json:"executive_summary"`
	TrendAnalysis        *string                    `json:"trend_analysis"`
	AnalysisOfTrend      *string                    `json:"analysis_of_trend"`
	MitigationStrategies []model.MitigationStrategy `json:"mitigation_strategies"`
}

// ParseReport 严格解析报告 JSON：三个键缺一不可，且不允许出现其它键
func ParseReport(raw string) (model.TrendReport, error) {
	clean := llm.CleanJSON(raw)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &keys); err != nil {
		return model.TrendReport{}, &llm.MalformedError{Raw: raw, Err: err}
	}
	_, hasTrend := keys["trend_analysis"]
	_, hasAlias := keys["analysis_of_trend"]
	if hasTrend == hasAlias {
		return model.TrendReport{}, &llm.MalformedError{Raw: raw, Err: fmt.Errorf("expected exactly one of trend_analysis, analysis_of_trend")}
	}
	for _, k := range []string{"executive_summary", "mitigation_strategies"} {
		if _, ok := keys[k]; !ok {
			return model.TrendReport{}, &llm.MalformedError{Raw: raw, Err: fmt.Errorf("missing key %q", k)}
		}
	}

	var s reportSchema
	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return model.TrendReport{}, &llm.MalformedError{Raw: raw, Err: err}
	}

	r := model.TrendReport{
		ExecutiveSummary:     s.ExecutiveSummary,
		MitigationStrategies: s.MitigationStrategies,
	}
	if s.TrendAnalysis != nil {
		r.TrendAnalysis = *s.TrendAnalysis
	} else {
		r.TrendAnalysis = *s.AnalysisOfTrend
	}
	for i, m := range r.MitigationStrategies {
		if strings.TrimSpace(m.Name) == "" {
			return model.TrendReport{}, &llm.MalformedError{Raw: raw, Err: fmt.Errorf("mitigation_strategies[%d] has no name", i)}
		}
	}
	if r.MitigationStrategies == nil {
		r.MitigationStrategies = []model.MitigationStrategy{}
	}
	return r, nil
}

// Synthesize 生成趋势报告；解析失败或调用失败返回 failed 结果并保留原始响应
func (s *Synthesizer) Synthesize(ctx context.Context, keyword string, buckets []model.PeriodBucket) model.Result[model.TrendReport] {
	if len(buckets) == 0 {
		return model.Failed[model.TrendReport]("", &model.NoResultsError{Query: keyword, Stage: "trend"})
	}
	if s.gen == nil {
		return model.Failed[model.TrendReport]("", fmt.Errorf("%w: generator not configured", model.ErrUpstream))
	}

	prompt := fmt.Sprintf(reportPrompt, keyword, Briefing(buckets, s.excerpt))
	raw, err := s.gen.Generate(ctx, llm.Request{Prompt: prompt, JSON: true})
	if err != nil {
		return model.Failed[model.TrendReport](raw, err)
	}

	report, err := ParseReport(raw)
	if err != nil {
		return model.Failed[model.TrendReport](raw, err)
	}
	report.Keyword = keyword
	for _, b := range buckets {
		report.Periods = append(report.Periods, b.PeriodLabel)
	}
	sort.Strings(report.Periods)
	return model.OK(report)
}
