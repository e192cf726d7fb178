package factgraph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
)

// Relation 一条 (主语, 谓语, 宾语) 事实，Source 为来源文章 URL
type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Source    string `json:"source,omitempty"`
}

// String 以 (s)-[p]->(o) 形式展示
func (r Relation) String() string {
	return fmt.Sprintf("(%s)-[%s]->(%s)", r.Subject, r.Predicate, r.Object)
}

// Store 事实存储
type Store interface {
	AddRelations(ctx context.Context, source string, rels []Relation) (int, error)
	Connecting(ctx context.Context, a, b string, limit int) ([]Relation, error)
}

// SQLStore 基于关系表的事实存储，与分析文档共用数据库
type SQLStore struct {
	db      *sql.DB
	dialect storage.Dialect
}

// NewSQLStore 创建事实存储并初始化表
func NewSQLStore(db *sql.DB, dialect storage.Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS fact_relations (
		subject TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (subject, predicate, object, source)
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fact_relations: %w", err)
	}
	return s, nil
}

var _ Store = (*SQLStore)(nil)

// AddRelations 写入事实，重复事实忽略
func (s *SQLStore) AddRelations(ctx context.Context, source string, rels []Relation) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	q := s.dialect.Rebind(`INSERT INTO fact_relations (subject, predicate, object, source) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	n := 0
	for _, r := range rels {
		res, err := tx.ExecContext(ctx, q, r.Subject, r.Predicate, r.Object, source)
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				err = fmt.Errorf("%w: %v", err, rerr)
			}
			return 0, err
		}
		if affected, err := res.RowsAffected(); err == nil {
			n += int(affected)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Connecting 查找两端分别包含 a、b 的事实（不区分方向与大小写）
func (s *SQLStore) Connecting(ctx context.Context, a, b string, limit int) ([]Relation, error) {
	if limit <= 0 {
		limit = 10
	}
	pa := "%" + strings.ToLower(a) + "%"
	pb := "%" + strings.ToLower(b) + "%"
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT subject, predicate, object, source FROM fact_relations
		WHERE (LOWER(subject) LIKE ? AND LOWER(object) LIKE ?) OR (LOWER(subject) LIKE ? AND LOWER(object) LIKE ?)
		ORDER BY created_at LIMIT ?`), pa, pb, pb, pa, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Subject, &r.Predicate, &r.Object, &r.Source); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
