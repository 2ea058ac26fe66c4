package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/table"
)

// CopyFrom bulk-inserts rows using the PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, c Copier, ident pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", ident.Sanitize())
	}
	return n, nil
}

// SinkConfig describes the target of WriteTable.
type SinkConfig struct {
	// Table is the target, optionally schema-qualified ("results.cast_movies").
	Table string
	// Keys become the primary key of a created table. When set, rows are
	// upserted on them instead of appended.
	Keys []string
	// Truncate empties the target before an append load. Ignored with Keys.
	Truncate bool
}

// WriteTable creates the target if needed and loads t into it inside one
// transaction. It returns the number of rows written.
func WriteTable(ctx context.Context, pool Pool, cfg SinkConfig, t *table.Table) (int64, error) {
	if cfg.Table == "" {
		return 0, eris.New("db: write table: no table specified")
	}
	if _, err := t.Schema().Columns("write table", cfg.Keys...); err != nil {
		return 0, eris.Wrap(err, "db: write table")
	}
	if len(cfg.Keys) > 0 {
		if clean, err := t.DropMissing(cfg.Keys...); err == nil && clean.Len() != t.Len() {
			return 0, eris.Errorf("db: write table: %d rows have a missing key", t.Len()-clean.Len())
		}
	}

	target := identifier(cfg.Table)
	columns := t.Columns()
	rows := tableRows(t)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: write table: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, createTableSQL(target, t, cfg.Keys)); err != nil {
		return 0, eris.Wrapf(err, "db: write table: create %s", cfg.Table)
	}

	var n int64
	if len(cfg.Keys) == 0 {
		if cfg.Truncate {
			if _, err := tx.Exec(ctx, "TRUNCATE "+target.Sanitize()); err != nil {
				return 0, eris.Wrapf(err, "db: write table: truncate %s", cfg.Table)
			}
		}
		if n, err = CopyFrom(ctx, tx, target, columns, rows); err != nil {
			return 0, err
		}
	} else {
		if n, err = upsert(ctx, tx, target, columns, cfg.Keys, rows); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: write table: commit tx")
	}

	zap.L().Info("table written to postgres",
		zap.String("table", cfg.Table),
		zap.Int64("rows", n),
		zap.Bool("upsert", len(cfg.Keys) > 0),
	)
	return n, nil
}

// upsert loads rows into a temp table shaped like target, then merges them
// with INSERT ... ON CONFLICT.
func upsert(ctx context.Context, tx pgx.Tx, target pgx.Identifier, columns, keys []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	temp := pgx.Identifier{"_tmp_upsert_" + strings.Join(target, "_")}

	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		temp.Sanitize(), target.Sanitize())
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", target.Sanitize())
	}
	if _, err := CopyFrom(ctx, tx, temp, columns, rows); err != nil {
		return 0, err
	}

	var set []string
	for _, c := range columns {
		if slices.Contains(keys, c) {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		set = append(set, q+" = EXCLUDED."+q)
	}
	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}

	colList := quoteAndJoin(columns)
	upsertSQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		target.Sanitize(), colList, colList, temp.Sanitize(), quoteAndJoin(keys), action)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", target.Sanitize())
	}
	return tag.RowsAffected(), nil
}

func createTableSQL(target pgx.Identifier, t *table.Table, keys []string) string {
	defs := make([]string, 0, t.Schema().Len()+1)
	for i, c := range t.Columns() {
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" "+columnType(t, i))
	}
	if len(keys) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteAndJoin(keys)+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", target.Sanitize(), strings.Join(defs, ", "))
}

// columnType picks the narrowest Postgres type holding every present value.
func columnType(t *table.Table, col int) string {
	seen := make(map[table.Kind]bool)
	for _, r := range t.Records() {
		if k := r.At(col).Kind(); k != table.KindMissing {
			seen[k] = true
		}
	}
	switch {
	case len(seen) == 1 && seen[table.KindInt]:
		return "BIGINT"
	case len(seen) == 1 && seen[table.KindBool]:
		return "BOOLEAN"
	case len(seen) > 0 && len(seen) <= 2 && !seen[table.KindString] && !seen[table.KindBool]:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// tableRows converts t to driver values, stringifying cells of TEXT columns
// that hold non-string values.
func tableRows(t *table.Table) [][]any {
	types := make([]string, t.Schema().Len())
	for i := range types {
		types[i] = columnType(t, i)
	}
	rows := make([][]any, t.Len())
	for i, r := range t.Records() {
		row := make([]any, len(types))
		for j, typ := range types {
			v := r.At(j)
			switch {
			case v.IsMissing():
				row[j] = nil
			case typ == "TEXT":
				row[j] = v.String()
			case typ == "DOUBLE PRECISION":
				f, _ := v.Number()
				row[j] = f
			default:
				row[j] = v.Any()
			}
		}
		rows[i] = row
	}
	return rows
}

// identifier handles schema-qualified table names like "results.cast_movies".
func identifier(name string) pgx.Identifier {
	if schema, tbl, ok := strings.Cut(name, "."); ok {
		return pgx.Identifier{schema, tbl}
	}
	return pgx.Identifier{name}
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
