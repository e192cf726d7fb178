package factgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/evidence"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// NoFactsAnswer 事实库中没有相关事实时的回答
const NoFactsAnswer = "I couldn't find any direct relationships for that query in my knowledge base."

// relationTextLimit 关系抽取时引用的正文长度
const relationTextLimit = 4000

const relationPrompt = `From the following text, extract all key factual relationships as a list of JSON objects.
Each object should have three keys: "subject", "predicate", and "object".
Focus on clear, simple relationships.

TEXT:
"%s"

Return JSON of the form {"relations": [{"subject": "...", "predicate": "...", "object": "..."}]}.`

const entityPrompt = `Extract the named entities (people, organisations, places, things) mentioned in the following question, most important first.
Return JSON of the form {"entities": ["...", "..."]}.

QUESTION: "%s"`

const answerPrompt = `You are a fact-checking AI. Based ONLY on the following verified facts from our knowledge graph, provide a direct answer to the user's query. If the facts don't answer the question, say so.

USER'S QUERY: "%s"

VERIFIED FACTS FROM KNOWLEDGE GRAPH:
- %s

YOUR DIRECT ANSWER:`

// Answer 事实查询的回答
type Answer struct {
	Answer   string       `json:"answer"`
	Evidence []string     `json:"evidence"`
	Status   model.Status `json:"status"`
}

// Graph 事实图谱：写入时抽取关系，查询时按实体检索并由模型作答
type Graph struct {
	gen   llm.Generator
	store Store
}

// New 创建事实图谱
func New(gen llm.Generator, store Store) *Graph {
	return &Graph{gen: gen, store: store}
}

// ExtractRelations 调用模型抽取关系，兼容数组或包含数组的对象
func (g *Graph) ExtractRelations(ctx context.Context, text string) ([]Relation, error) {
	raw, err := g.gen.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(relationPrompt, model.Truncate(text, relationTextLimit)),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	return parseRelations(raw)
}

func parseRelations(raw string) ([]Relation, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))

	var list []Relation
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, &llm.MalformedError{Raw: raw, Err: err}
		}
		return complete(list), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(llm.CleanJSON(s)), &obj); err != nil {
		return nil, &llm.MalformedError{Raw: raw, Err: err}
	}
	if v, ok := obj["relations"]; ok {
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, &llm.MalformedError{Raw: raw, Err: err}
		}
		return complete(list), nil
	}
	for _, v := range obj {
		if err := json.Unmarshal(v, &list); err == nil {
			return complete(list), nil
		}
	}
	return nil, nil
}

// complete 只保留三元组齐全的关系
func complete(rels []Relation) []Relation {
	out := rels[:0]
	for _, r := range rels {
		r.Subject = strings.TrimSpace(r.Subject)
		r.Predicate = strings.TrimSpace(r.Predicate)
		r.Object = strings.TrimSpace(r.Object)
		if r.Subject != "" && r.Predicate != "" && r.Object != "" {
			out = append(out, r)
		}
	}
	return out
}

// Ingest 抽取文章中的关系并以文章 URL 为来源写入
func (g *Graph) Ingest(ctx context.Context, articleID, text string) (int, error) {
	if g.gen == nil || g.store == nil {
		return 0, fmt.Errorf("%w: fact graph not configured", model.ErrUpstream)
	}
	rels, err := g.ExtractRelations(ctx, text)
	if err != nil {
		return 0, err
	}
	if len(rels) == 0 {
		logger.Log.Debugf("文章未抽取到事实: %s", articleID)
		return 0, nil
	}
	n, err := g.store.AddRelations(ctx, articleID, rels)
	if err != nil {
		return 0, err
	}
	logger.Log.Infof("事实图谱写入 %d 条关系: %s", n, articleID)
	return n, nil
}

// Entities 从问题中提取实体，模型失败时回退到关键词
func (g *Graph) Entities(ctx context.Context, query string) []string {
	var out struct {
		Entities []string `json:"entities"`
	}
	raw, err := g.gen.Generate(ctx, llm.Request{Prompt: fmt.Sprintf(entityPrompt, query), JSON: true})
	if err == nil {
		err = llm.DecodeLoose(raw, &out)
	}
	if err != nil {
		logger.Log.Warnf("实体抽取失败，使用关键词: %v", err)
		return evidence.ExtractKeywords(query)
	}
	var ents []string
	for _, e := range out.Entities {
		if e = strings.TrimSpace(e); e != "" {
			ents = append(ents, e)
		}
	}
	return ents
}

// GroundTruth 用事实图谱回答问题
func (g *Graph) GroundTruth(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.InvalidInput("query is empty")
	}
	if g.gen == nil || g.store == nil {
		return nil, fmt.Errorf("%w: fact graph not configured", model.ErrUpstream)
	}

	ents := g.Entities(ctx, query)
	if len(ents) == 0 {
		return nil, model.InvalidInput("could not identify any key entities in the query")
	}

	var facts []Relation
	if len(ents) >= 2 {
		var err error
		facts, err = g.store.Connecting(ctx, ents[0], ents[1], 10)
		if err != nil {
			return nil, err
		}
	}
	if len(facts) == 0 {
		return &Answer{Answer: NoFactsAnswer, Evidence: []string{}, Status: model.StatusFallback}, nil
	}

	lines := make([]string, len(facts))
	for i, f := range facts {
		lines[i] = f.String()
	}
	out, err := g.gen.Generate(ctx, llm.Request{Prompt: fmt.Sprintf(answerPrompt, query, strings.Join(lines, "\n- "))})
	if err != nil {
		logger.Log.Warnf("事实问答生成失败: %v", err)
		return &Answer{
			Answer:   "Relevant facts were found but an answer could not be generated; see the evidence list.",
			Evidence: lines,
			Status:   model.StatusFallback,
		}, nil
	}
	return &Answer{Answer: strings.TrimSpace(out), Evidence: lines, Status: model.StatusOK}, nil
}
