package privacy

import (
	"reflect"
	"testing"
)

func find(f Filtered, col string) (any, bool) {
	for i, c := range f.Columns {
		if c == col {
			return f.Values[i], true
		}
	}
	return nil, false
}

func TestApplyRemovesPrivateColumns(t *testing.T) {
	f := Apply(map[string]any{
		"id":             float64(7),
		"username":       "alice",
		"email":          "a@example.com",
		"creator_phone":  "+91-1234",
		"stock_quantity": float64(8),
	})

	want := []string{"id", "stock_quantity"}
	if !reflect.DeepEqual(f.Columns, want) {
		t.Errorf("Columns = %v, want %v", f.Columns, want)
	}
}

func TestApplyNullsCrossRegionFKs(t *testing.T) {
	f := Apply(map[string]any{
		"id":                  float64(7),
		"created_by_user_id":  float64(42),
		"salesperson_user_id": float64(9),
	})

	for _, col := range []string{"created_by_user_id", "salesperson_user_id"} {
		v, ok := find(f, col)
		if !ok {
			t.Errorf("%s missing from column list", col)
			continue
		}
		if v != nil {
			t.Errorf("%s = %v, want nil", col, v)
		}
	}
}

func TestApplyStripsMetadataColumns(t *testing.T) {
	f := Apply(map[string]any{
		"id":           float64(1),
		"_sync_origin": "india",
		"_txid":        float64(99),
	})
	if len(f.Columns) != 1 || f.Columns[0] != "id" {
		t.Errorf("Columns = %v", f.Columns)
	}
}

func TestApplyNormalizesMicrosecondTimestamps(t *testing.T) {
	f := Apply(map[string]any{
		"id":         float64(7),
		"updated_at": float64(1704067205000000),
	})
	v, _ := find(f, "updated_at")
	if v != int64(1704067205000) {
		t.Errorf("updated_at = %v (%T)", v, v)
	}
}

func TestApplyConvertsEpochDayDates(t *testing.T) {
	f := Apply(map[string]any{
		"id":        float64(9),
		"sale_date": float64(19723),
	})
	v, _ := find(f, "sale_date")
	if v != "2024-01-01" {
		t.Errorf("sale_date = %v", v)
	}
}

func TestApplyPassesLargeDateValuesThrough(t *testing.T) {
	// A date column already carrying a real timestamp is left alone.
	f := Apply(map[string]any{
		"id":        float64(9),
		"sale_date": "2024-01-04",
	})
	v, _ := find(f, "sale_date")
	if v != "2024-01-04" {
		t.Errorf("sale_date = %v", v)
	}
}

func TestApplyStableOrder(t *testing.T) {
	after := map[string]any{"b": 1.0, "a": 2.0, "c": 3.0}
	f1 := Apply(after)
	f2 := Apply(after)
	if !reflect.DeepEqual(f1.Columns, f2.Columns) {
		t.Errorf("column order not stable: %v vs %v", f1.Columns, f2.Columns)
	}
	if !reflect.DeepEqual(f1.Columns, []string{"a", "b", "c"}) {
		t.Errorf("Columns = %v", f1.Columns)
	}
}
