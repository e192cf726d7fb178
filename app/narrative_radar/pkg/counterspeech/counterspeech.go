package counterspeech

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// ClosingSentence 模板回退的固定结尾
const ClosingSentence = "Before sharing or acting on this claim, verify it against reliable sources and official records."

const hedgeSentence = "Independent coverage of this claim is limited, so it should be treated with caution until more evidence is available."

const noEvidenceSentence = "No credible reporting was found that supports this statement as written."

const prompt = `You are a careful fact-checker writing a calm, respectful counterspeech response to a statement circulating online.

STATEMENT:
"%s"

EVIDENCE (numbered):
%s
INSTRUCTIONS:
- Write exactly three short paragraphs.
- Ground every factual sentence in the evidence and cite it inline by number, e.g. [1].
- Do not invent facts that are not in the evidence.

Return strict JSON with exactly two keys: "counterspeech" (string, the three paragraphs separated by blank lines) and "citations" (array of objects with "rank", "title", "url" for every evidence item you cited).`

// Output 反驳文本及核对后的引用
type Output struct {
	Text      string               `json:"counterspeech"`
	Citations []model.EvidenceItem `json:"citations"`
}

// Generator 反驳文本生成
type Generator struct {
	gen llm.Generator
}

// New 创建生成器，gen 为 nil 时总是走模板
func New(gen llm.Generator) *Generator {
	return &Generator{gen: gen}
}

// EvidenceList 把证据编号为提示词中的列表
func EvidenceList(evidence []model.EvidenceItem) string {
	if len(evidence) == 0 {
		return "(no evidence available)\n"
	}
	var sb strings.Builder
	for _, e := range evidence {
		fmt.Fprintf(&sb, "[%d] %s (%s", e.Rank, e.Title, e.SourceDomain)
		if e.PublishedHint != "" {
			fmt.Fprintf(&sb, ", %s", e.PublishedHint)
		}
		fmt.Fprintf(&sb, ")\nURL: %s\nSnippet: %s\n\n", e.URL, e.Snippet)
	}
	return sb.String()
}

// Template 确定性的三句话回退文本
func Template(evidence []model.EvidenceItem) string {
	first := noEvidenceSentence
	if len(evidence) > 0 && strings.TrimSpace(evidence[0].Snippet) != "" {
		first = fmt.Sprintf(`Reporting from %s states: "%s" [1].`, sourceLabel(evidence[0]), quote(evidence[0].Snippet))
	}
	second := hedgeSentence
	if len(evidence) > 1 && strings.TrimSpace(evidence[1].Snippet) != "" {
		second = fmt.Sprintf(`Further coverage from %s adds: "%s" [2].`, sourceLabel(evidence[1]), quote(evidence[1].Snippet))
	}
	return strings.Join([]string{first, second, ClosingSentence}, " ")
}

func sourceLabel(e model.EvidenceItem) string {
	if e.SourceDomain != "" {
		return e.SourceDomain
	}
	return "a credible outlet"
}

func quote(snippet string) string {
	s := strings.Join(strings.Fields(snippet), " ")
	return strings.TrimRight(s, ".")
}

type modelOutput struct {
	Counterspeech string            `json:"counterspeech"`
	Citations     []json.RawMessage `json:"citations"`
}

type modelCitation struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Generate 生成反驳文本；模型不可用或输出不合规时回退到模板
func (g *Generator) Generate(ctx context.Context, statement string, evidence []model.EvidenceItem) model.Result[Output] {
	if evidence == nil {
		evidence = []model.EvidenceItem{}
	}
	fallback := func(raw string, err error) model.Result[Output] {
		logger.Log.Warnf("反驳文本生成失败，使用模板: %v", err)
		res := model.Fallback(Output{Text: Template(evidence), Citations: evidence}, err)
		res.Raw = raw
		return res
	}
	if g.gen == nil {
		return fallback("", fmt.Errorf("%w: generator not configured", model.ErrUpstream))
	}

	raw, err := g.gen.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(prompt, statement, EvidenceList(evidence)),
		JSON:   true,
	})
	if err != nil {
		return fallback(raw, err)
	}

	var out modelOutput
	if err := llm.DecodeStrict(raw, &out, "counterspeech", "citations"); err != nil {
		return fallback(raw, err)
	}
	text := strings.TrimSpace(out.Counterspeech)
	if text == "" {
		return fallback(raw, &llm.MalformedError{Raw: raw, Err: fmt.Errorf("empty counterspeech")})
	}

	res := model.OK(Output{Text: text, Citations: Reconcile(out.Citations, evidence)})
	res.Raw = raw
	return res
}

// Reconcile 以本地证据为准核对模型引用：按编号或 URL 匹配，都匹配不上且缺标题时按位置替换，
// 模型未给出引用时返回全部本地证据
func Reconcile(cited []json.RawMessage, evidence []model.EvidenceItem) []model.EvidenceItem {
	out := []model.EvidenceItem{}
	if len(evidence) == 0 {
		return out
	}
	if len(cited) == 0 {
		return append(out, evidence...)
	}

	byURL := make(map[string]int, len(evidence))
	for i, e := range evidence {
		byURL[e.URL] = i
	}
	used := make(map[int]bool)
	add := func(i int) {
		if i < 0 || i >= len(evidence) || used[i] {
			return
		}
		used[i] = true
		out = append(out, evidence[i])
	}

	for pos, raw := range cited {
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			add(n - 1)
			continue
		}
		var c modelCitation
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		i, ok := byURL[c.URL]
		switch {
		case c.Rank >= 1 && c.Rank <= len(evidence):
			add(c.Rank - 1)
		case ok:
			add(i)
		case strings.TrimSpace(c.Title) == "":
			add(pos)
		}
	}
	return out
}
