package factgraph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// maxTopics 每篇文章保留的主题数
const maxTopics = 10

const annotatePrompt = `Read the following news article and list the named entities and main topics it mentions.
Use the exact wording from the text.

TEXT:
"%s"

Return JSON of the form {"people": [], "locations": [], "organizations": [], "topics": []}.`

var sentenceEnd = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

// Annotate 抽取文章中的人物、地点、机构与主题，并挑出提到这些实体的句子
func (g *Graph) Annotate(ctx context.Context, text string) (*model.ArticleAnalysis, error) {
	if g.gen == nil {
		return nil, fmt.Errorf("%w: generator not configured", model.ErrUpstream)
	}
	raw, err := g.gen.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(annotatePrompt, model.Truncate(text, relationTextLimit)),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	var out model.ArticleAnalysis
	if err := llm.DecodeLoose(raw, &out); err != nil {
		return nil, err
	}

	out.People = uniqueSorted(out.People)
	out.Locations = uniqueSorted(out.Locations)
	out.Organizations = uniqueSorted(out.Organizations)
	out.Topics = uniqueSorted(append(out.Topics, out.Organizations...))
	if len(out.Topics) > maxTopics {
		out.Topics = out.Topics[:maxTopics]
	}
	out.RelevantSentences = relevantSentences(text, out.People, out.Locations, out.Organizations)
	return &out, nil
}

// relevantSentences 包含任一实体的句子，去重后排序
func relevantSentences(text string, groups ...[]string) []string {
	var ents []string
	for _, g := range groups {
		ents = append(ents, g...)
	}
	var hits []string
	for _, sent := range sentenceEnd.FindAllString(text, -1) {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		for _, e := range ents {
			if strings.Contains(sent, e) {
				hits = append(hits, sent)
				break
			}
		}
	}
	return uniqueSorted(hits)
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
