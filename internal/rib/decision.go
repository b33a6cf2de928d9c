package rib

// DistanceFunc resolves the IGP hop-count distance from the deciding router
// to the router owning a next-hop address. It is supplied by the caller
// (the propagation engine, which owns the topology and IGP oracle) so that
// this package stays a pure function of its inputs, per the decision
// process being specified as RIB x prefix -> best route with no topology
// dependency of its own.
type DistanceFunc func(nexthop string) (int, bool)

// Decide runs the six-stage best-route tournament over candidates and
// returns the selected route, or the zero Route and false if candidates is
// empty.
//
// The procedure is not a single total-order sort: stage 3 (MED) is a
// per-neighbor-AS minimum, not a global one, so a route from AS 4 is never
// MED-compared against a route from AS 5 — both simply survive together.
// Stages 1-2 are computed first as a global minimum, the candidate set is
// then rebuilt by MED-partitioning against that minimum, and stages 4-6 run
// as a pairwise fold over whatever survives.
func Decide(candidates []Route, distance DistanceFunc) (Route, bool) {
	if len(candidates) == 0 {
		return Route{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	// Stages 1-2: highest pref, then shortest AS-path, as a global minimum.
	stage12 := bestByPrefAndPathLen(candidates)

	// Stage 3: partition the stage 1-2 survivors by leftmost AS, keep the
	// minimum MED within each partition, then reunite the partitions.
	stage3 := partitionByOriginAndMinMED(stage12)

	// Stages 4-6: pairwise fold.
	best := stage3[0]
	for _, r := range stage3[1:] {
		best = tiebreak(best, r, distance)
	}
	return best, true
}

func bestByPrefAndPathLen(candidates []Route) []Route {
	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.Pref > best.Pref {
			best = r
			continue
		}
		if r.Pref < best.Pref {
			continue
		}
		if len(r.ASPath) < len(best.ASPath) {
			best = r
		}
	}

	survivors := make([]Route, 0, len(candidates))
	for _, r := range candidates {
		if r.Pref == best.Pref && len(r.ASPath) == len(best.ASPath) {
			survivors = append(survivors, r)
		}
	}
	return survivors
}

func originOf(r Route) int32 {
	if len(r.ASPath) == 0 {
		return 0
	}
	return r.ASPath[0]
}

func partitionByOriginAndMinMED(candidates []Route) []Route {
	minMED := make(map[int32]int32)
	seen := make(map[int32]bool)
	for _, r := range candidates {
		origin := originOf(r)
		if !seen[origin] || r.Med < minMED[origin] {
			minMED[origin] = r.Med
			seen[origin] = true
		}
	}

	survivors := make([]Route, 0, len(candidates))
	for _, r := range candidates {
		if r.Med == minMED[originOf(r)] {
			survivors = append(survivors, r)
		}
	}
	return survivors
}

// tiebreak applies stages 4 (eBGP over iBGP), 5 (IGP distance, iBGP-only)
// and 6 (lowest router_id) to pick between a and b. It assumes a and b have
// already survived stages 1-3 equally.
func tiebreak(a, b Route, distance DistanceFunc) Route {
	// Stage 4: prefer eBGP over iBGP.
	aEBGP, bEBGP := a.Src == SourceEBGP, b.Src == SourceEBGP
	if aEBGP != bEBGP {
		if aEBGP {
			return a
		}
		return b
	}

	// Stage 5: only applies when both remaining candidates are iBGP.
	if !aEBGP && !bEBGP && distance != nil {
		da, aok := distance(a.Nexthop)
		db, bok := distance(b.Nexthop)
		if aok && bok && da != db {
			if da < db {
				return a
			}
			return b
		}
	}

	// Stage 6: lowest router_id wins.
	if a.RouterID <= b.RouterID {
		return a
	}
	return b
}
