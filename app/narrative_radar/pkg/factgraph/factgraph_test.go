package factgraph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
)

func init() { logger.Discard() }

func tempStore(t *testing.T) *SQLStore {
	t.Helper()
	db, dialect, err := storage.Open(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "facts.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewSQLStore(db, dialect)
	require.NoError(t, err)
	return s
}

func TestParseRelations(t *testing.T) {
	tests := map[string]int{
		`[{"subject":"City","predicate":"inspected","object":"Bridge"}]`:                                        1,
		"```json\n{\"relations\":[{\"subject\":\"A\",\"predicate\":\"p\",\"object\":\"B\"},{\"subject\":\"\"}]}\n```": 1,
		`{"facts":[{"subject":"A","predicate":"p","object":"B"}]}`:                                              1,
		`{"note":"nothing"}`: 0,
	}
	for raw, want := range tests {
		rels, err := parseRelations(raw)
		require.NoError(t, err, raw)
		assert.Len(t, rels, want, raw)
	}
	_, err := parseRelations("no facts here")
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestSQLStoreConnecting(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	rels := []Relation{
		{Subject: "City Council", Predicate: "ordered inspection of", Object: "Harbor Bridge"},
		{Subject: "Harbor Bridge", Predicate: "was certified by", Object: "State Engineers"},
	}
	n, err := s.AddRelations(ctx, "https://bbc.com/a", rels)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AddRelations(ctx, "https://bbc.com/a", rels[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.Connecting(ctx, "bridge", "council", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://bbc.com/a", got[0].Source)
	assert.Equal(t, "(City Council)-[ordered inspection of]->(Harbor Bridge)", got[0].String())

	got, err = s.Connecting(ctx, "volcano", "bridge", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func scripted(replies map[string]string) llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		for marker, reply := range replies {
			if strings.Contains(req.Prompt, marker) {
				return reply, nil
			}
		}
		return "", errors.New("unexpected prompt")
	})
}

func TestIngestAndGroundTruth(t *testing.T) {
	s := tempStore(t)
	g := New(scripted(map[string]string{
		"extract all key factual relationships": `{"relations":[{"subject":"Harbor Bridge","predicate":"was certified by","object":"State Engineers"}]}`,
		"Extract the named entities":            `{"entities":["Harbor Bridge","State Engineers"]}`,
		"VERIFIED FACTS":                        "Yes, State Engineers certified the Harbor Bridge.",
	}), s)

	n, err := g.Ingest(context.Background(), "https://reuters.com/x", "Harbor Bridge was certified by State Engineers.")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ans, err := g.GroundTruth(context.Background(), "Was the Harbor Bridge checked by State Engineers?")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, ans.Status)
	assert.Equal(t, "Yes, State Engineers certified the Harbor Bridge.", ans.Answer)
	assert.Equal(t, []string{"(Harbor Bridge)-[was certified by]->(State Engineers)"}, ans.Evidence)
}

func TestGroundTruthNoFacts(t *testing.T) {
	g := New(scripted(map[string]string{
		"Extract the named entities": `{"entities":["Mars","Bridge"]}`,
	}), tempStore(t))
	ans, err := g.GroundTruth(context.Background(), "Is there a bridge on Mars?")
	require.NoError(t, err)
	assert.Equal(t, NoFactsAnswer, ans.Answer)
	assert.Equal(t, model.StatusFallback, ans.Status)
	assert.Empty(t, ans.Evidence)
}

func TestGroundTruthRejectsEmpty(t *testing.T) {
	g := New(scripted(nil), tempStore(t))
	_, err := g.GroundTruth(context.Background(), "  ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	g = New(scripted(map[string]string{"Extract the named entities": `{"entities":[]}`}), tempStore(t))
	_, err = g.GroundTruth(context.Background(), "hmm?")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAnnotate(t *testing.T) {
	text := "Mayor Lee opened the bridge in Springfield. Rain fell all day.\nThe Transit Authority praised Lee. Mayor Lee opened the bridge in Springfield."
	g := New(scripted(map[string]string{
		"named entities and main topics": "```json\n" +
			`{"people":["Lee","Lee"],"locations":["Springfield"],"organizations":["Transit Authority"],"topics":["bridge"," "]}` +
			"\n```",
	}), nil)

	got, err := g.Annotate(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lee"}, got.People)
	assert.Equal(t, []string{"Springfield"}, got.Locations)
	assert.Equal(t, []string{"Transit Authority"}, got.Organizations)
	assert.Equal(t, []string{"Transit Authority", "bridge"}, got.Topics)
	assert.Equal(t, []string{
		"Mayor Lee opened the bridge in Springfield.",
		"The Transit Authority praised Lee.",
	}, got.RelevantSentences)
}

func TestAnnotateMalformed(t *testing.T) {
	g := New(scripted(map[string]string{"named entities and main topics": "not json"}), nil)
	_, err := g.Annotate(context.Background(), "text")
	assert.ErrorIs(t, err, model.ErrMalformed)

	_, err = New(nil, nil).Annotate(context.Background(), "text")
	assert.ErrorIs(t, err, model.ErrUpstream)
}
