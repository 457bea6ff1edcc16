package envelope

import (
	"errors"
	"testing"
)

func TestDecodeWrapped(t *testing.T) {
	value := []byte(`{"payload":{"op":"u","after":{"id":7,"stock_quantity":8,"updated_at":1704067205000000},"_sync_origin":"india"}}`)
	key := []byte(`{"id":7}`)

	ch, err := Decode("sync.products", key, value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ch.Table != "products" {
		t.Errorf("Table = %q", ch.Table)
	}
	if ch.Op != OpUpdate {
		t.Errorf("Op = %q", ch.Op)
	}
	if ch.Origin != "india" {
		t.Errorf("Origin = %q", ch.Origin)
	}
	if id, ok := ch.Key.(int64); !ok || id != 7 {
		t.Errorf("Key = %v (%T)", ch.Key, ch.Key)
	}
	// 1704067205000000 µs = 1704067205000 ms
	if ch.SourceMs != 1704067205000 {
		t.Errorf("SourceMs = %d", ch.SourceMs)
	}
}

func TestDecodeFlat(t *testing.T) {
	value := []byte(`{"op":"c","after":{"id":9,"quantity":2},"_sync_origin":"china"}`)

	ch, err := Decode("sync.sales", []byte(`{"id":9}`), value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ch.Table != "sales" || ch.Op != OpCreate || ch.Origin != "china" {
		t.Errorf("unexpected change: %+v", ch)
	}
	if ch.SourceMs != 0 {
		t.Errorf("SourceMs = %d, want 0 for payload without timestamps", ch.SourceMs)
	}
}

func TestDecodeTombstone(t *testing.T) {
	if _, err := Decode("sync.products", []byte(`{"id":1}`), nil); !errors.Is(err, ErrTombstone) {
		t.Errorf("nil value: err = %v", err)
	}
	if _, err := Decode("sync.products", []byte(`{"id":1}`), []byte(`{{not json`)); !errors.Is(err, ErrTombstone) {
		t.Errorf("malformed value: err = %v", err)
	}
}

func TestDecodeMissingOrigin(t *testing.T) {
	value := []byte(`{"op":"u","after":{"id":7}}`)
	if _, err := Decode("sync.products", []byte(`{"id":7}`), value); !errors.Is(err, ErrMissingOrigin) {
		t.Errorf("err = %v, want ErrMissingOrigin", err)
	}
}

func TestDecodeMissingID(t *testing.T) {
	value := []byte(`{"op":"u","after":{"stock_quantity":3},"_sync_origin":"india"}`)
	if _, err := Decode("sync.products", nil, value); !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}
}

func TestDecodeEmptyAfterCreate(t *testing.T) {
	value := []byte(`{"op":"c","after":{},"_sync_origin":"india"}`)
	if _, err := Decode("sync.products", []byte(`{"id":4}`), value); !errors.Is(err, ErrEmptyAfter) {
		t.Errorf("err = %v, want ErrEmptyAfter", err)
	}
}

func TestDecodeDeleteWithKeyOnly(t *testing.T) {
	value := []byte(`{"op":"d","_sync_origin":"india"}`)
	ch, err := Decode("sync.products", []byte(`{"id":7}`), value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ch.Op != OpDelete {
		t.Errorf("Op = %q", ch.Op)
	}
	if id, ok := ch.Key.(int64); !ok || id != 7 {
		t.Errorf("Key = %v", ch.Key)
	}
}

func TestDecodeKeyFallsBackToAfter(t *testing.T) {
	value := []byte(`{"op":"u","after":{"id":12,"price":3.5},"_sync_origin":"india"}`)
	ch, err := Decode("sync.products", nil, value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if id, ok := ch.Key.(int64); !ok || id != 12 {
		t.Errorf("Key = %v", ch.Key)
	}
}

func TestDecodePrefersUpdatedAt(t *testing.T) {
	value := []byte(`{"op":"u","after":{"id":1,"created_at":1700000000000000,"updated_at":1700000001000000},"_sync_origin":"india"}`)
	ch, err := Decode("sync.products", nil, value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ch.SourceMs != 1700000001000 {
		t.Errorf("SourceMs = %d", ch.SourceMs)
	}
}

func TestEpochMillis(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{float64(1704067205000000), 1704067205000, true}, // microseconds, divided down
		{float64(19723), 19723, true},                    // small value passes through
		{int64(1700000000000000), 1700000000000, true},
		{"2024-01-01", 0, false}, // non-numeric
	}
	for _, c := range cases {
		got, ok := EpochMillis(c.in)
		if ok != c.ok {
			t.Errorf("EpochMillis(%v) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("EpochMillis(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
