package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	db, dialect, err := Open(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nr.db")})
	require.NoError(t, err)
	s, err := New(db, dialect)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	assert.Equal(t, `SELECT a FROM t WHERE x = $1 AND y = $2`, Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	body, _ := json.Marshal(map[string]any{"extracted_keyword": "bridge"})
	id, err := s.Save(ctx, Document{
		Kind:  "analyze-query",
		Query: "was the bridge inspected?",
		Body:  body,
		Articles: []model.Article{
			{URL: "https://bbc.com/a", Title: "A\x00", SourceDomain: "bbc.com", SentimentScore: 0.5, EmotionLabel: "joy", BodyText: "x"},
			{URL: "https://apnews.com/b", Title: "B", SourceDomain: "apnews.com", PeriodLabel: "2025-01-01"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "analyze-query", doc.Kind)
	assert.Equal(t, "was the bridge inspected?", doc.Query)
	assert.JSONEq(t, string(body), string(doc.Body))
	require.Len(t, doc.Articles, 2)
	assert.Equal(t, "A", doc.Articles[0].Title)
	assert.Equal(t, 0.5, doc.Articles[0].SentimentScore)
	assert.Equal(t, "2025-01-01", doc.Articles[1].PeriodLabel)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestLoadMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveDuplicateIDRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_, err := s.Save(ctx, Document{ID: "fixed", Kind: "trend"})
	require.NoError(t, err)
	_, err = s.Save(ctx, Document{ID: "fixed", Kind: "trend", Articles: []model.Article{{URL: "u"}}})
	assert.Error(t, err)

	db, _ := s.DB()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM analysis_articles`).Scan(&n))
	assert.Equal(t, 0, n)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ab", sanitize("a\x00b"))
	assert.Equal(t, "ab", sanitize("a\xffb"))
}
