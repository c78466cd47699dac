package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/fieldtype"
)

// Postgres pulls tables out of a PostgreSQL schema for catalog import.
type Postgres struct {
	cfg    *config.SourceConfig
	pool   *pgxpool.Pool
	schema string
}

// NewPostgres creates a PostgreSQL importer for the configured source.
func NewPostgres(cfg *config.SourceConfig) *Postgres {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	return &Postgres{cfg: cfg, schema: s}
}

func (p *Postgres) Connect(ctx context.Context) error {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s default_query_exec_mode=simple_protocol",
		p.cfg.Host, p.cfg.Port, p.cfg.Database, p.cfg.Username, p.cfg.Password,
	)
	if p.cfg.SSL {
		connStr += " sslmode=require"
	} else {
		connStr += " sslmode=disable"
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.MaxConns = int32(p.cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

// ListTables returns the names of all ordinary tables in the schema.
func (p *Postgres) ListTables(ctx context.Context) ([]string, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}
	rows, err := p.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, p.schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Fetch reads one table's columns and rows. Source types are mapped to
// catalog field types; unknown types degrade to text.
func (p *Postgres) Fetch(ctx context.Context, tableName string) (*Dataset, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	colRows, err := p.pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, p.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", tableName, err)
	}
	defer colRows.Close()

	var cols []catalog.Column
	for colRows.Next() {
		var name, dataType string
		if err := colRows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		cols = append(cols, catalog.Column{Name: name, Type: fieldtype.FromSource(dataType)})
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", p.schema, tableName)
	}

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = pgIdent(col.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(names, ", "), pgIdent(p.schema), pgIdent(tableName))

	dataRows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading rows of %s: %w", tableName, err)
	}
	defer dataRows.Close()

	var rows [][]any
	for dataRows.Next() {
		vals, err := dataRows.Values()
		if err != nil {
			return nil, err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = normalizeValue(v, cols[i].Type)
		}
		rows = append(rows, row)
	}
	if err := dataRows.Err(); err != nil {
		return nil, err
	}

	return &Dataset{Name: tableName, Columns: cols, Rows: rows}, nil
}

// normalizeValue flattens pgx-specific value types into something the
// SQLite driver can bind directly.
func normalizeValue(v any, typ fieldtype.Type) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		if typ == fieldtype.Structured {
			return fmt.Sprintf("%v", x)
		}
		return x
	}
}

func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
