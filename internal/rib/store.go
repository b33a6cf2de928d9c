package rib

import (
	"go.uber.org/zap"
)

// routeSet is an insertion-ordered set of routes for a single prefix at a
// single router. Order is kept only so that callers iterating the RIB (e.g.
// the CLI dump, or tests asserting on a full snapshot) see a deterministic
// sequence; it plays no role in the decision procedure itself.
type routeSet struct {
	order []Route
	index map[key]int
}

func newRouteSet() *routeSet {
	return &routeSet{index: make(map[key]int)}
}

func (s *routeSet) insert(r Route) bool {
	k := routeKey(r)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.order)
	s.order = append(s.order, r)
	return true
}

func (s *routeSet) remove(r Route) bool {
	k := routeKey(r)
	idx, ok := s.index[k]
	if !ok {
		return false
	}
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.index, k)
	for kk, i := range s.index {
		if i > idx {
			s.index[kk] = i - 1
		}
	}
	return true
}

func (s *routeSet) snapshot() []Route {
	out := make([]Route, len(s.order))
	copy(out, s.order)
	return out
}

// Store is the per-router, per-prefix collection of candidate routes: the
// Routing Information Base proper. A single Store instance holds the tables
// for every router in the simulation, keyed by router name.
type Store struct {
	tables map[string]map[string]*routeSet
	log    *zap.SugaredLogger
}

// NewStore creates an empty Store. A nil logger is replaced with a no-op
// logger, matching the functional-options default used elsewhere in this
// module.
func NewStore(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		tables: make(map[string]map[string]*routeSet),
		log:    log,
	}
}

func (s *Store) table(router string) map[string]*routeSet {
	t, ok := s.tables[router]
	if !ok {
		t = make(map[string]*routeSet)
		s.tables[router] = t
	}
	return t
}

// Insert adds route to router's set for its prefix. Idempotent: a duplicate
// insert (equal on all seven fields) is a no-op and returns false.
func (s *Store) Insert(router string, route Route) bool {
	set, ok := s.table(router)[route.Prefix]
	if !ok {
		set = newRouteSet()
		s.table(router)[route.Prefix] = set
	}
	inserted := set.insert(route)
	if inserted {
		s.log.Debugw("inserted route",
			zap.String("router", router),
			zap.String("prefix", route.Prefix),
			zap.String("nexthop", route.Nexthop),
			zap.Stringer("src", route.Src),
		)
	}
	return inserted
}

// Remove deletes route from router's set for its prefix, if present. No-op
// otherwise.
func (s *Store) Remove(router string, route Route) bool {
	set, ok := s.table(router)[route.Prefix]
	if !ok {
		return false
	}
	removed := set.remove(route)
	if removed {
		s.log.Debugw("removed route",
			zap.String("router", router),
			zap.String("prefix", route.Prefix),
			zap.String("nexthop", route.Nexthop),
			zap.Stringer("src", route.Src),
		)
	}
	return removed
}

// Has reports whether route is currently present in router's set for its
// prefix.
func (s *Store) Has(router string, route Route) bool {
	set, ok := s.table(router)[route.Prefix]
	if !ok {
		return false
	}
	_, ok = set.index[routeKey(route)]
	return ok
}

// Routes returns a snapshot of all candidate routes router holds for
// prefix. Empty if the router has no routes for that prefix (nil if it never
// held any).
func (s *Store) Routes(router, prefix string) []Route {
	set, ok := s.table(router)[prefix]
	if !ok {
		return nil
	}
	return set.snapshot()
}

// Routers returns the set of router names currently holding at least one
// route.
func (s *Store) Routers() []string {
	out := make([]string, 0, len(s.tables))
	for r, t := range s.tables {
		for _, set := range t {
			if len(set.order) > 0 {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Best returns the currently selected best route for router's prefix, per
// the Decide procedure, or the zero Route and false if the set is empty.
func (s *Store) Best(router, prefix string, distance DistanceFunc) (Route, bool) {
	return Decide(s.Routes(router, prefix), distance)
}

// Prefixes returns the prefixes router currently has any routes for.
func (s *Store) Prefixes(router string) []string {
	t, ok := s.tables[router]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t))
	for p, set := range t {
		if len(set.order) > 0 {
			out = append(out, p)
		}
	}
	return out
}
