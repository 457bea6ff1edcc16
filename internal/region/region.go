// Package region defines the replication endpoint tags and the symmetric
// two-region pair the service is configured with.
package region

import (
	"fmt"
	"strings"
)

// Region identifies one replication endpoint (e.g. "india", "china").
type Region string

// Pair is the closed, symmetric two-element region set. The conventional
// deployment is {india, china} but any two distinct tags are accepted.
type Pair [2]Region

// ParsePair parses a comma-separated pair like "india,china".
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("region pair must have exactly two elements, got %q", s)
	}
	a := Region(strings.TrimSpace(parts[0]))
	b := Region(strings.TrimSpace(parts[1]))
	if a == "" || b == "" {
		return Pair{}, fmt.Errorf("region pair has an empty element: %q", s)
	}
	if a == b {
		return Pair{}, fmt.Errorf("region pair elements must differ: %q", s)
	}
	return Pair{a, b}, nil
}

// Contains reports whether r is a member of the pair.
func (p Pair) Contains(r Region) bool {
	return r == p[0] || r == p[1]
}

// PeerOf returns the other member of the pair.
func (p Pair) PeerOf(r Region) (Region, bool) {
	switch r {
	case p[0]:
		return p[1], true
	case p[1]:
		return p[0], true
	}
	return "", false
}

// Direction is the metrics key for an ordered (source, destination) pair,
// e.g. "india-to-china".
func Direction(src, dst Region) string {
	return string(src) + "-to-" + string(dst)
}
