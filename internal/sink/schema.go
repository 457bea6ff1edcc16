package sink

import "fmt"

// ColumnKind drives parameter conversion when binding filtered values.
type ColumnKind int

const (
	// KindPlain values bind as-is.
	KindPlain ColumnKind = iota
	// KindTimestamp values arrive as epoch milliseconds and bind as timestamps.
	KindTimestamp
	// KindDate values arrive as ISO date strings.
	KindDate
)

// Table describes one replicated table: the column whitelist and the
// per-column binding kind. Dynamic SQL is only ever synthesized from these
// descriptors, never from payload-supplied names.
type Table struct {
	Name    string
	Columns map[string]ColumnKind
}

// Schema is the closed set of tables the sink may write. users is absent on
// purpose: the core never writes user rows.
var Schema = map[string]Table{
	"products": {
		Name: "products",
		Columns: map[string]ColumnKind{
			"id":                   KindPlain,
			"product_name":         KindPlain,
			"description":          KindPlain,
			"price":                KindPlain,
			"stock_quantity":       KindPlain,
			"category":             KindPlain,
			"manufacturer_country": KindPlain,
			"created_by_user_id":   KindPlain,
			"sync_source":          KindPlain,
			"version":              KindPlain,
			"created_at":           KindTimestamp,
			"updated_at":           KindTimestamp,
		},
	},
	"sales": {
		Name: "sales",
		Columns: map[string]ColumnKind{
			"id":                  KindPlain,
			"sale_date":           KindDate,
			"product_id":          KindPlain,
			"product_name":        KindPlain,
			"quantity":            KindPlain,
			"unit_price":          KindPlain,
			"total_amount":        KindPlain,
			"customer_name":       KindPlain,
			"sale_region":         KindPlain,
			"sync_source":         KindPlain,
			"salesperson_user_id": KindPlain,
			"version":             KindPlain,
			"created_at":          KindTimestamp,
			"updated_at":          KindTimestamp,
		},
	},
}

// SchemaError marks a payload column that the local schema does not carry.
// The consumer logs it and skips the message rather than aborting.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
}
