// Package policy decides whether an inbound change is eligible to be applied
// in this region. The gate is a pure function of (table, source region,
// operation) plus the instance's region binding; it performs no I/O.
package policy

import (
	"github.com/nkapur/syncbridge/internal/envelope"
	"github.com/nkapur/syncbridge/internal/region"
)

// Rejection reasons, logged verbatim.
const (
	ReasonUsersNeverSync          = "privacy_users_never_sync"
	ReasonProductsCreateLocalOnly = "directional_products_create_local_only"
	ReasonSalesOneWay             = "directional_sales_one_way"
	ReasonNotForLocal             = "not_for_local"
	ReasonUnknownTable            = "unknown_table"
)

// Verdict is the gate's decision for one change.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept() Verdict              { return Verdict{Accepted: true} }
func reject(reason string) Verdict { return Verdict{Reason: reason} }

// Gate holds the directional policy for one region binding.
type Gate struct {
	// Local is the region this instance writes to.
	Local region.Region
	// SalesOrigin is the only region whose sales replicate outward; sales
	// flow one way, from SalesOrigin to its peer.
	SalesOrigin region.Region
}

// NewGate builds the gate for a region pair. By convention the first member
// of the pair is the sales origin.
func NewGate(local region.Region, pair region.Pair) Gate {
	return Gate{Local: local, SalesOrigin: pair[0]}
}

// Evaluate applies the policy matrix. Rule order matters: the privacy rule
// for users dominates everything, then the echo check (changes that
// originated locally are our own writes returning through CDC), then the
// per-table directional rules.
func (g Gate) Evaluate(table string, source region.Region, op envelope.Op) Verdict {
	if table == "users" {
		return reject(ReasonUsersNeverSync)
	}
	if source == g.Local {
		return reject(ReasonNotForLocal)
	}
	switch table {
	case "products":
		if op == envelope.OpCreate {
			return reject(ReasonProductsCreateLocalOnly)
		}
		return accept()
	case "sales":
		if source != g.SalesOrigin {
			return reject(ReasonSalesOneWay)
		}
		return accept()
	}
	return reject(ReasonUnknownTable)
}
