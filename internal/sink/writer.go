// Package sink materializes accepted changes into the local Postgres store.
// Statements are synthesized from the static schema descriptors with
// parameter placeholders; one statement per message is its own commit point.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/nkapur/syncbridge/internal/resolver"
)

// Columns excluded from the ON CONFLICT update set: the primary key,
// sync_source (preserved from the original insert), and updated_at (set to
// server time so local updated_at never moves backwards).
var conflictImmutable = map[string]bool{
	"id":          true,
	"sync_source": true,
	"updated_at":  true,
}

// Writer executes sink mutations and reads local row state.
type Writer struct {
	Pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{Pool: pool}
}

// ReadRow implements resolver.StateReader against the local store.
func (w *Writer) ReadRow(ctx context.Context, table string, id any) (*resolver.LocalRow, error) {
	t, ok := Schema[table]
	if !ok {
		return nil, &SchemaError{Table: table, Column: "id"}
	}

	var updatedAt time.Time
	var version int64
	q := fmt.Sprintf(`SELECT updated_at, COALESCE(version, 0) FROM %s WHERE id = $1`, t.Name)
	err := w.Pool.QueryRow(ctx, q, id).Scan(&updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s row: %w", table, err)
	}
	return &resolver.LocalRow{UpdatedAtMs: updatedAt.UnixMilli(), Version: version}, nil
}

// Delete removes the row; deleting an absent row is a no-op.
func (w *Writer) Delete(ctx context.Context, table string, id any) error {
	t, ok := Schema[table]
	if !ok {
		return &SchemaError{Table: table, Column: "id"}
	}
	tag, err := w.Pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.Name), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	log.Debug().Str("table", table).Interface("id", id).Int64("rows", tag.RowsAffected()).Msg("sink delete")
	return nil
}

// Upsert inserts or updates one row from the filtered (columns, values) pair.
func (w *Writer) Upsert(ctx context.Context, table string, cols []string, vals []any) error {
	t, ok := Schema[table]
	if !ok {
		return &SchemaError{Table: table, Column: "id"}
	}

	stmt, args, err := buildUpsert(t, cols, vals)
	if err != nil {
		return err
	}
	if _, err := w.Pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	return nil
}

// buildUpsert synthesizes INSERT ... ON CONFLICT (id) DO UPDATE from the
// whitelisted column subset. Values are converted per column kind; every
// value binds through a placeholder.
func buildUpsert(t Table, cols []string, vals []any) (string, []any, error) {
	if len(cols) != len(vals) {
		return "", nil, fmt.Errorf("column/value length mismatch: %d vs %d", len(cols), len(vals))
	}

	hasID := false
	args := make([]any, len(vals))
	placeholders := make([]string, len(cols))
	var updates []string

	for i, col := range cols {
		kind, ok := t.Columns[col]
		if !ok {
			return "", nil, &SchemaError{Table: t.Name, Column: col}
		}
		if col == "id" {
			hasID = true
		}
		args[i] = convert(kind, vals[i])
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if !conflictImmutable[col] {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	if !hasID {
		return "", nil, &SchemaError{Table: t.Name, Column: "id"}
	}

	// updated_at always moves to server time on conflict, never backwards.
	updates = append(updates, "updated_at = NOW()")

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.Name,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	return stmt, args, nil
}

// convert adapts a filtered value to its column's Postgres binding.
func convert(kind ColumnKind, v any) any {
	if v == nil {
		return nil
	}
	if kind == KindTimestamp {
		switch ms := v.(type) {
		case int64:
			return time.UnixMilli(ms).UTC()
		case float64:
			return time.UnixMilli(int64(ms)).UTC()
		}
	}
	return v
}
