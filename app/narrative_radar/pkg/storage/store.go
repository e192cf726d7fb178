package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// ErrNotFound 文档不存在
var ErrNotFound = errors.New("document not found")

// Document 一次分析运行的持久化文档
type Document struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Query     string          `json:"query"`
	Body      json.RawMessage `json:"body"`
	Articles  []model.Article `json:"articles,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store 分析文档的存取
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New 创建存储并初始化表结构
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close 关闭连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 底层连接，供同库的其它存储复用
func (s *Store) DB() (*sql.DB, Dialect) {
	return s.db, s.dialect
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			query TEXT,
			body TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_articles (
			analysis_id TEXT NOT NULL REFERENCES analyses(id),
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			source_domain TEXT,
			published_hint TEXT,
			period_label TEXT,
			sentiment_score REAL,
			emotion_label TEXT,
			body_text TEXT,
			PRIMARY KEY (analysis_id, position)
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Save 保存文档，返回生成的 ID
func (s *Store) Save(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	rollback := func(err error) (string, error) {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %v", err, rerr)
		}
		return "", err
	}

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO analyses (id, kind, query, body, created_at) VALUES (?, ?, ?, ?, ?)`),
		doc.ID, doc.Kind, sanitize(doc.Query), sanitize(string(doc.Body)), doc.CreatedAt,
	); err != nil {
		return rollback(err)
	}

	for i, a := range doc.Articles {
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
			`INSERT INTO analysis_articles (analysis_id, position, url, title, source_domain, published_hint,
				period_label, sentiment_score, emotion_label, body_text) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			doc.ID, i, a.URL, sanitize(a.Title), a.SourceDomain, a.PublishedHint,
			a.PeriodLabel, a.SentimentScore, a.EmotionLabel, sanitize(a.BodyText),
		); err != nil {
			return rollback(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Load 读取文档，不存在时返回 ErrNotFound
func (s *Store) Load(ctx context.Context, id string) (*Document, error) {
	doc := Document{ID: id}
	var query, body sql.NullString
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT kind, query, body, created_at FROM analyses WHERE id = ?`), id,
	).Scan(&doc.Kind, &query, &body, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Query = query.String
	if body.Valid && body.String != "" {
		doc.Body = json.RawMessage(body.String)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT url, title, source_domain, published_hint, period_label, sentiment_score, emotion_label, body_text
		FROM analysis_articles WHERE analysis_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Article
		var title, domain, hint, label, emotion, text sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&a.URL, &title, &domain, &hint, &label, &score, &emotion, &text); err != nil {
			return nil, err
		}
		a.Title, a.SourceDomain, a.PublishedHint = title.String, domain.String, hint.String
		a.PeriodLabel, a.SentimentScore, a.EmotionLabel, a.BodyText = label.String, score.Float64, emotion.String, text.String
		doc.Articles = append(doc.Articles, a)
	}
	return &doc, rows.Err()
}

// sanitize 去掉无效 UTF-8 与 NULL 字节，PostgreSQL 文本字段不接受 NULL 字节
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
