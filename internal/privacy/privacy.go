// Package privacy strips and nulls columns that must not cross regions, and
// normalizes the temporal encodings in a CDC post-image before SQL synthesis.
package privacy

import (
	"sort"
	"strings"
	"time"

	"github.com/nkapur/syncbridge/internal/envelope"
)

// removed columns never reach local storage and never appear in an INSERT
// column list. Personally identifying data stays in its home region.
var removed = map[string]bool{
	"username":          true,
	"email":             true,
	"full_name":         true,
	"phone":             true,
	"user_email":        true,
	"user_phone":        true,
	"user_name":         true,
	"creator_name":      true,
	"creator_email":     true,
	"creator_phone":     true,
	"salesperson_name":  true,
	"salesperson_email": true,
	"salesperson_phone": true,
}

// nulled columns stay in the column list but are written as NULL: the schema
// shape survives while the cross-region user FK is erased.
var nulled = map[string]bool{
	"created_by_user_id":  true,
	"salesperson_user_id": true,
}
// epochDayMax bounds the epoch-day date encoding (days since 1970-01-01).
const epochDayMax = 1e5

// Filtered is the (columns, values) pair ready for SQL synthesis. Columns
// are in a stable sorted order.
type Filtered struct {
	Columns []string
	Values  []any
}

// Apply filters one post-image. Metadata columns (leading underscore) and
// the removed set disappear; the nulled set is forced to NULL; temporal
// encodings are normalized per column naming convention.
func Apply(after map[string]any) Filtered {
	cols := make([]string, 0, len(after))
	for col := range after {
		if strings.HasPrefix(col, "_") || removed[col] {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	vals := make([]any, len(cols))
	for i, col := range cols {
		if nulled[col] {
			vals[i] = nil
			continue
		}
		vals[i] = normalize(col, after[col])
	}
	return Filtered{Columns: cols, Values: vals}
}

// normalize applies the temporal encodings: *_at columns carry microsecond
// epoch timestamps (reduced to milliseconds), and columns named like dates
// carry epoch-day integers (rendered as ISO dates).
func normalize(col string, v any) any {
	if strings.HasSuffix(col, "_at") {
		if ms, ok := envelope.EpochMillis(v); ok {
			return ms
		}
		return v
	}
	if strings.Contains(col, "date") {
		if days, ok := envelope.EpochMillis(v); ok && float64(days) < epochDayMax {
			return time.Unix(0, 0).UTC().AddDate(0, 0, int(days)).Format("2006-01-02")
		}
	}
	return v
}
