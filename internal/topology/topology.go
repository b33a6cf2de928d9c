// Package topology implements the static, read-only-after-construction view
// of autonomous systems, routers, their commercial relationships and
// internal links that the route propagation and decision engine consumes.
package topology

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Relation is the commercial relationship of a directed edge between two
// routers.
type Relation uint8

const (
	// RelationProvider means the edge's destination router is a provider of
	// the edge's source router.
	RelationProvider Relation = iota
	// RelationCustomer means the edge's destination router is a customer of
	// the edge's source router.
	RelationCustomer
	// RelationPeer is a symmetric settlement-free relationship.
	RelationPeer
	// RelationInternal is an intra-AS link, symmetric.
	RelationInternal
)

// String implements fmt.Stringer.
func (r Relation) String() string {
	switch r {
	case RelationProvider:
		return "provider"
	case RelationCustomer:
		return "customer"
	case RelationPeer:
		return "peer"
	case RelationInternal:
		return "internal"
	default:
		return fmt.Sprintf("Relation(%d)", uint8(r))
	}
}

// Sentinel errors surfaced by topology construction and queries. Topology
// construction errors are fatal to the caller; route propagation returns
// ErrUnknownRouter or ErrNoEdge only when a message names an unregistered
// router or two routers with no edge between them.
var (
	ErrUnknownRouter       = errors.New("topology: unknown router")
	ErrCrossASInternalLink = errors.New("topology: internal link between routers in different ASes")
	ErrNoEdge              = errors.New("topology: no edge between routers")
)

type router struct {
	name string
	as   int32
	id   int32
}

type externalEdge struct {
	to       string
	relation Relation
	med      int32
}

type internalEdge struct {
	to   string
	cost int32
}

// Topology is the mutable builder and read-only query surface over the
// registered ASes, routers, commercial relationships and internal links.
// Iteration over neighbor sets is in insertion order throughout, matching
// the engine's determinism requirement.
type Topology struct {
	routers map[string]router
	// routersByAS preserves AddRouter insertion order per AS, for
	// RoutersInAS.
	routersByAS map[int32][]string

	external      map[string][]externalEdge
	externalIndex map[[2]string]int // (from,to) -> index into external[from]

	internal      map[string][]internalEdge
	internalIndex map[[2]string]int

	log *zap.SugaredLogger
}

// New creates an empty Topology.
func New(log *zap.SugaredLogger) *Topology {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Topology{
		routers:       make(map[string]router),
		routersByAS:   make(map[int32][]string),
		external:      make(map[string][]externalEdge),
		externalIndex: make(map[[2]string]int),
		internal:      make(map[string][]internalEdge),
		internalIndex: make(map[[2]string]int),
		log:           log,
	}
}

// AddRouter registers a router with its AS number and router id.
func (t *Topology) AddRouter(name string, as, id int32) {
	t.routers[name] = router{name: name, as: as, id: id}
	t.routersByAS[as] = append(t.routersByAS[as], name)
	t.log.Debugw("registered router", zap.String("router", name), zap.Int32("as", as), zap.Int32("id", id))
}

func (t *Topology) mustExist(name string) error {
	if _, ok := t.routers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRouter, name)
	}
	return nil
}

// AddPeerLink registers a symmetric, settlement-free peer relationship
// between r1 and r2; both directions carry the same med.
func (t *Topology) AddPeerLink(r1, r2 string, med int32) error {
	if err := t.mustExist(r1); err != nil {
		return err
	}
	if err := t.mustExist(r2); err != nil {
		return err
	}
	t.addExternalEdge(r1, r2, RelationPeer, med)
	t.addExternalEdge(r2, r1, RelationPeer, med)
	return nil
}

// AddProviderCustomer registers provider as the provider of customer: the
// edge provider->customer is RelationCustomer, customer->provider is
// RelationProvider. Both edges carry med.
func (t *Topology) AddProviderCustomer(provider, customer string, med int32) error {
	if err := t.mustExist(provider); err != nil {
		return err
	}
	if err := t.mustExist(customer); err != nil {
		return err
	}
	t.addExternalEdge(provider, customer, RelationCustomer, med)
	t.addExternalEdge(customer, provider, RelationProvider, med)
	return nil
}

func (t *Topology) addExternalEdge(from, to string, rel Relation, med int32) {
	k := [2]string{from, to}
	if idx, ok := t.externalIndex[k]; ok {
		t.external[from][idx] = externalEdge{to: to, relation: rel, med: med}
		return
	}
	t.externalIndex[k] = len(t.external[from])
	t.external[from] = append(t.external[from], externalEdge{to: to, relation: rel, med: med})
}

// AddInternalLink registers a symmetric intra-AS link of the given
// administrative cost (>=1). Fails with ErrCrossASInternalLink if r1 and r2
// are not in the same AS.
func (t *Topology) AddInternalLink(r1, r2 string, cost int32) error {
	if err := t.mustExist(r1); err != nil {
		return err
	}
	if err := t.mustExist(r2); err != nil {
		return err
	}
	if t.routers[r1].as != t.routers[r2].as {
		return fmt.Errorf("%w: %q (AS %d) and %q (AS %d)", ErrCrossASInternalLink,
			r1, t.routers[r1].as, r2, t.routers[r2].as)
	}
	t.addInternalEdge(r1, r2, cost)
	t.addInternalEdge(r2, r1, cost)
	return nil
}

func (t *Topology) addInternalEdge(from, to string, cost int32) {
	k := [2]string{from, to}
	if idx, ok := t.internalIndex[k]; ok {
		t.internal[from][idx] = internalEdge{to: to, cost: cost}
		return
	}
	t.internalIndex[k] = len(t.internal[from])
	t.internal[from] = append(t.internal[from], internalEdge{to: to, cost: cost})
}

// ASOf returns the AS number of router.
func (t *Topology) ASOf(name string) (int32, error) {
	r, ok := t.routers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRouter, name)
	}
	return r.as, nil
}

// IDOf returns the router-id of router.
func (t *Topology) IDOf(name string) (int32, error) {
	r, ok := t.routers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRouter, name)
	}
	return r.id, nil
}

// Relation returns the relationship of the edge from->to.
func (t *Topology) Relation(from, to string) (Relation, error) {
	for _, e := range t.external[from] {
		if e.to == to {
			return e.relation, nil
		}
	}
	if _, ok := t.internalIndex[[2]string{from, to}]; ok {
		return RelationInternal, nil
	}
	return 0, fmt.Errorf("%w: %q -> %q", ErrNoEdge, from, to)
}

// MED returns the MED attribute of the edge from->to.
func (t *Topology) MED(from, to string) (int32, error) {
	for _, e := range t.external[from] {
		if e.to == to {
			return e.med, nil
		}
	}
	return 0, fmt.Errorf("%w: %q -> %q", ErrNoEdge, from, to)
}

// RoutersInAS returns, in AddRouter insertion order, the names of every
// router registered under as.
func (t *Topology) RoutersInAS(as int32) []string {
	names := t.routersByAS[as]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// RouterByID returns the name of the router with the given router-id inside
// as, if any.
func (t *Topology) RouterByID(as, id int32) (string, bool) {
	for _, name := range t.routersByAS[as] {
		if t.routers[name].id == id {
			return name, true
		}
	}
	return "", false
}

// IGPNeighbor is one internal-link adjacency.
type IGPNeighbor struct {
	Router string
	Cost   int32
}

// IGPNeighbors returns router's internal-link neighbors, in insertion
// order.
func (t *Topology) IGPNeighbors(name string) []IGPNeighbor {
	edges := t.internal[name]
	out := make([]IGPNeighbor, len(edges))
	for i, e := range edges {
		out[i] = IGPNeighbor{Router: e.to, Cost: e.cost}
	}
	return out
}

// IGPNeighborNames returns the names of router's internal-link neighbors,
// in insertion order. Satisfies the neighbors interface internal/igp uses
// to run Dijkstra without importing this package's concrete type.
func (t *Topology) IGPNeighborNames(name string) []string {
	edges := t.internal[name]
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.to
	}
	return out
}

// IGPNeighborCost returns the administrative cost of the internal link from
// router to neighbor, or 0 if no such link exists.
func (t *Topology) IGPNeighborCost(router, neighbor string) int32 {
	for _, e := range t.internal[router] {
		if e.to == neighbor {
			return e.cost
		}
	}
	return 0
}

// ExternalNeighbor is one eBGP adjacency.
type ExternalNeighbor struct {
	Router   string
	Relation Relation
	Med      int32
}

// ExternalNeighbors returns router's eBGP neighbors, in insertion order.
func (t *Topology) ExternalNeighbors(name string) []ExternalNeighbor {
	edges := t.external[name]
	out := make([]ExternalNeighbor, len(edges))
	for i, e := range edges {
		out[i] = ExternalNeighbor{Router: e.to, Relation: e.relation, Med: e.med}
	}
	return out
}
