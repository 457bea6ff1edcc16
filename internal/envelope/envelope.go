// Package envelope decodes raw CDC messages from the bus into normalized
// change records.
//
// Two layouts appear on the wire: the wrapped form
// {"payload": {"op", "after", "_sync_origin"}} emitted by the connector, and
// the flat form with those fields at the top level. Both decode to the same
// Change.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nkapur/syncbridge/internal/region"
)

// Op is a CDC operation code.
type Op string

const (
	OpCreate Op = "c"
	OpUpdate Op = "u"
	OpDelete Op = "d"
)

// TopicPrefix is stripped from topic names to recover the table identifier.
const TopicPrefix = "sync."

// Skippable decode conditions. The consumer logs these and advances the
// offset; none of them is a handler failure.
var (
	ErrTombstone     = errors.New("tombstone message")
	ErrMissingOrigin = errors.New("envelope has no _sync_origin")
	ErrMissingID     = errors.New("envelope has no record id")
	ErrEmptyAfter    = errors.New("non-delete envelope has empty after image")
)

// Change is the normalized form of one CDC event.
type Change struct {
	Table string
	Key   any
	Op    Op
	After map[string]any
	// Origin is the region where the change was originally written.
	Origin region.Region
	// SourceMs is the source row timestamp in Unix milliseconds, 0 when the
	// payload carries no usable timestamp.
	SourceMs int64
}

// Decode parses one bus message. A nil or unparseable value is a tombstone.
func Decode(topic string, key, value []byte) (*Change, error) {
	if len(value) == 0 {
		return nil, ErrTombstone
	}

	var raw map[string]any
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTombstone, err)
	}

	// Wrapped envelopes carry the event under "payload"; flat ones don't.
	body := raw
	if p, ok := getMap(raw, "payload"); ok {
		body = p
	}

	op, _ := getString(body, "op")
	after, _ := getMap(body, "after")

	origin, ok := getString(body, "_sync_origin")
	if !ok || origin == "" {
		return nil, ErrMissingOrigin
	}

	ch := &Change{
		Table:  strings.TrimPrefix(topic, TopicPrefix),
		Op:     Op(op),
		After:  after,
		Origin: region.Region(origin),
	}

	// Primary key: message key first, post-image fallback.
	if len(key) > 0 {
		var k map[string]any
		if err := json.Unmarshal(key, &k); err == nil {
			if id, ok := k["id"]; ok {
				ch.Key = normalizeScalar(id)
			}
		}
	}
	if ch.Key == nil && after != nil {
		if id, ok := after["id"]; ok {
			ch.Key = normalizeScalar(id)
		}
	}
	if ch.Key == nil {
		return nil, ErrMissingID
	}

	if ch.Op != OpDelete && len(after) == 0 {
		return nil, ErrEmptyAfter
	}

	ch.SourceMs = sourceMillis(after)
	return ch, nil
}

// sourceMillis derives the source row timestamp from the post-image,
// preferring updated_at over created_at.
func sourceMillis(after map[string]any) int64 {
	for _, col := range []string{"updated_at", "created_at"} {
		if v, ok := after[col]; ok {
			if ms, ok := EpochMillis(v); ok {
				return ms
			}
		}
	}
	return 0
}

// EpochMillis normalizes a numeric epoch value to milliseconds. Values above
// 10^11 are microsecond timestamps (the Debezium wire form) and are divided
// down; smaller values are taken as milliseconds already.
func EpochMillis(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	if f > 1e11 {
		return int64(f / 1000), true
	}
	return int64(f), true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalizeScalar converts integral JSON numbers to int64 so ids bind as
// integers rather than float8 in SQL parameters.
func normalizeScalar(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int64(f)
	}
	return v
}

func getString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

func getMap(m map[string]any, k string) (map[string]any, bool) {
	if v, ok := m[k]; ok {
		if mm, ok2 := v.(map[string]any); ok2 {
			return mm, true
		}
	}
	return nil, false
}
