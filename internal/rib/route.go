// Package rib implements the per-router Routing Information Base: the set of
// candidate BGP routes a router has learned for each prefix, and the staged
// best-route decision procedure used to pick one of them.
package rib

import (
	"fmt"
	"strconv"
	"strings"
)

// Source tags where a route was learned from.
type Source uint8

const (
	// SourceEBGP marks a route learned from, or destined to, a router in a
	// different AS.
	SourceEBGP Source = iota
	// SourceIBGP marks a route learned from, or destined to, another router
	// in the same AS.
	SourceIBGP
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceEBGP:
		return "ebgp"
	case SourceIBGP:
		return "ibgp"
	default:
		return fmt.Sprintf("Source(%d)", uint8(s))
	}
}

// SelfOriginated is the local preference stamped on a router's own
// self-originated route. No learned route may carry this value.
const SelfOriginated = 1000

// SelfOriginatedRouterID is the router_id sentinel for a self-originated
// route.
const SelfOriginatedRouterID = -1

// Route is a single BGP candidate route as carried in a RIB. Two routes are
// equal iff all seven fields are equal; this equality governs both set
// membership in the RIB and withdrawal matching.
type Route struct {
	Prefix   string
	Nexthop  string
	ASPath   []int32
	Pref     int32
	Med      int32
	RouterID int32
	Src      Source
}

// Equal reports whether r and other are equal on all seven
// equality-significant fields.
func (r Route) Equal(other Route) bool {
	return routeKey(r) == routeKey(other)
}

// IsSelfOriginated reports whether r is the router's own self-announced
// route for its AS's prefix.
func (r Route) IsSelfOriginated() bool {
	return r.Pref == SelfOriginated && r.RouterID == SelfOriginatedRouterID
}

// WithPrepend returns a copy of r with as prepended to the front of the
// AS-path.
func (r Route) WithPrepend(as int32) Route {
	path := make([]int32, 0, len(r.ASPath)+1)
	path = append(path, as)
	path = append(path, r.ASPath...)
	r.ASPath = path
	return r
}

// Contains reports whether as appears anywhere in the route's AS-path.
func (r Route) Contains(as int32) bool {
	for _, v := range r.ASPath {
		if v == as {
			return true
		}
	}
	return false
}

// key is the hashable digest of all seven equality-significant fields of a
// Route. Route itself holds a slice (ASPath) and is therefore not
// comparable, so the RIB store keys its per-prefix sets by key instead —
// per the design note that routes must have a stable hash over all seven
// fields.
type key string

func routeKey(r Route) key {
	var b strings.Builder
	b.WriteString(r.Prefix)
	b.WriteByte('\x00')
	b.WriteString(r.Nexthop)
	b.WriteByte('\x00')
	for i, as := range r.ASPath {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(as), 10))
	}
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(int64(r.Pref), 10))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(int64(r.Med), 10))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(int64(r.RouterID), 10))
	b.WriteByte('\x00')
	b.WriteString(r.Src.String())
	return key(b.String())
}
