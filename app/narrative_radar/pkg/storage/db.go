package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
)

// Dialect SQL 方言差异
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind 把 ? 占位符改写为当前方言的形式
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Open 按配置打开数据库连接
func Open(cfg config.DBConfig) (*sql.DB, Dialect, error) {
	var (
		db      *sql.DB
		err     error
		dialect Dialect
	)
	switch cfg.Driver {
	case "sqlite":
		dialect = SQLite
		db, err = sql.Open("sqlite", cfg.Path)
		if err == nil {
			// sqlite 单写者
			db.SetMaxOpenConns(1)
		}
	case "postgres", "":
		dialect = Postgres
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		db, err = sql.Open("postgres", connStr)
	default:
		return nil, "", fmt.Errorf("unknown db driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}
