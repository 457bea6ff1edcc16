// Package resolver decides whether an inbound change is applied to the local
// store or skipped, using last-write-wins with loop suppression.
//
// The loop rule: a near-simultaneous echo (timestamps within one second) is
// assumed to be our own write returning through CDC and is skipped. The
// version tie-break only fires on an exact millisecond tie.
package resolver

import (
	"context"

	"github.com/nkapur/syncbridge/internal/envelope"
)

// Decision windows, in milliseconds.
const (
	loopWindowMs = 1000
	tieWindowMs  = 100
)

// Apply/skip reasons, logged verbatim.
const (
	ReasonNewRecord          = "new_record"
	ReasonDeleteOfAbsent     = "delete_of_absent"
	ReasonDeleteOperation    = "delete_operation"
	ReasonLoopPrevention     = "loop_prevention_rapid_update"
	ReasonNewerTimestamp     = "newer_timestamp"
	ReasonHigherVersion      = "higher_version"
	ReasonSameOrOlderVersion = "same_or_older_version"
	ReasonOlderTimestamp     = "older_timestamp"
)

// LocalRow is the conflict-relevant slice of the locally stored row.
type LocalRow struct {
	UpdatedAtMs int64
	Version     int64
}

// StateReader reads the local row state for a (table, id). A nil row with a
// nil error means the row does not exist locally.
type StateReader interface {
	ReadRow(ctx context.Context, table string, id any) (*LocalRow, error)
}

// Decision is the resolver's verdict for one change.
type Decision struct {
	Apply  bool
	Reason string
}

func apply(reason string) Decision { return Decision{Apply: true, Reason: reason} }
func skip(reason string) Decision  { return Decision{Reason: reason} }

// Decide runs the LWW decision procedure. local is nil when the row does not
// exist; incomingMs and incomingVersion come from the filtered post-image
// (version defaults to 0 when the payload has none).
func Decide(op envelope.Op, local *LocalRow, incomingMs, incomingVersion int64) Decision {
	if local == nil {
		if op == envelope.OpDelete {
			return apply(ReasonDeleteOfAbsent)
		}
		return apply(ReasonNewRecord)
	}
	if op == envelope.OpDelete {
		return apply(ReasonDeleteOperation)
	}

	delta := incomingMs - local.UpdatedAtMs
	if delta < 0 {
		delta = -delta
	}

	// An exact tie is not a rapid echo; it falls through to the version
	// tie-break below.
	if delta > 0 && delta < loopWindowMs {
		return skip(ReasonLoopPrevention)
	}
	if incomingMs > local.UpdatedAtMs {
		return apply(ReasonNewerTimestamp)
	}
	if delta < tieWindowMs {
		if incomingVersion > local.Version {
			return apply(ReasonHigherVersion)
		}
		return skip(ReasonSameOrOlderVersion)
	}
	return skip(ReasonOlderTimestamp)
}
