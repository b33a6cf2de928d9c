// Package bgp implements the event-driven route propagation engine: the
// recursive UPDATE/WITHDRAW handling that enforces loop prevention and the
// Gao-Rexford export policy across both eBGP and iBGP, and the origination
// of a router's own prefix.
package bgp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nordlayer/bgpfabric/internal/igp"
	"github.com/nordlayer/bgpfabric/internal/rib"
	"github.com/nordlayer/bgpfabric/internal/topology"
)

// Event is published to an Observer for every message Engine.Receive
// accepts past the loop filter. It exists purely for diagnostics/stepping;
// nothing in this package depends on it being consumed.
type Event struct {
	Kind   Kind
	Local  string
	Origin string
	Route  rib.Route
}

// Observer is an optional hook invoked for every accepted UPDATE/WITHDRAW.
type Observer func(Event)

// Engine runs the propagation protocol over a Topology and a RIB Store. It
// is the sole mutator of Store once a simulation starts.
type Engine struct {
	topo  *topology.Topology
	store *rib.Store
	igp   *igp.Oracle
	log   *zap.SugaredLogger
	obs   Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLog sets the engine's logger. The default is a no-op logger.
func WithLog(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithObserver sets a hook called for every accepted UPDATE/WITHDRAW.
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.obs = obs }
}

// NewEngine constructs a propagation Engine over topo and store, using
// oracle for IGP distance tiebreaks.
func NewEngine(topo *topology.Topology, store *rib.Store, oracle *igp.Oracle, opts ...Option) *Engine {
	e := &Engine{
		topo:  topo,
		store: store,
		igp:   oracle,
		log:   zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// distanceFunc closes over a single router's identity so rib.Decide stays
// ignorant of topology/igp.
func (e *Engine) distanceFunc(local string, localAS int32) rib.DistanceFunc {
	return func(nexthop string) (int, bool) {
		d, err := e.igp.Distance(local, localAS, nexthop)
		if err != nil {
			return 0, false
		}
		return d, true
	}
}

// relationFrom returns the relationship under which local would treat a
// message arriving from origin: RelationInternal if they are in the same
// AS (regardless of whether they happen to share a direct internal link —
// iBGP is logically full-mesh within an AS), otherwise the commercial
// relationship of the eBGP edge between them.
func (e *Engine) relationFrom(local, origin string) (topology.Relation, error) {
	localAS, err := e.topo.ASOf(local)
	if err != nil {
		return 0, err
	}
	originAS, err := e.topo.ASOf(origin)
	if err != nil {
		return 0, err
	}
	if localAS == originAS {
		return topology.RelationInternal, nil
	}
	return e.topo.Relation(local, origin)
}

// stampIngress re-stamps route's Pref per the relationship to origin
// (provider->50, peer->100, customer->150, internal->unchanged) and its
// RouterID to origin's router-id.
func (e *Engine) stampIngress(route rib.Route, local, origin string) (rib.Route, error) {
	rel, err := e.relationFrom(local, origin)
	if err != nil {
		return rib.Route{}, err
	}
	originID, err := e.topo.IDOf(origin)
	if err != nil {
		return rib.Route{}, err
	}

	stamped := route
	switch rel {
	case topology.RelationProvider:
		stamped.Pref = 50
	case topology.RelationPeer:
		stamped.Pref = 100
	case topology.RelationCustomer:
		stamped.Pref = 150
	case topology.RelationInternal:
		// Preserve the pref the route already carries.
	}
	stamped.RouterID = originID
	return stamped, nil
}

// Receive handles one incoming UPDATE or WITHDRAW message at router local,
// announced by origin. It is invoked by Originate and recursively by
// itself; each invocation runs to completion before its caller resumes, so
// propagation is single-threaded, synchronous and depth-first.
func (e *Engine) Receive(route rib.Route, local, origin string, kind Kind) error {
	localAS, err := e.topo.ASOf(local)
	if err != nil {
		return err
	}

	if route.Contains(localAS) {
		e.log.Debugw("dropping route, loop detected",
			zap.String("router", local), zap.String("origin", origin), zap.Stringer("kind", kind))
		return nil
	}

	switch kind {
	case Update:
		return e.update(route, local, origin, localAS)
	case Withdraw:
		return e.withdraw(route, local, origin, localAS)
	default:
		return fmt.Errorf("bgp: unknown message kind %v", kind)
	}
}

func (e *Engine) notify(kind Kind, local, origin string, route rib.Route) {
	if e.obs == nil {
		return
	}
	e.obs(Event{Kind: kind, Local: local, Origin: origin, Route: route})
}

func (e *Engine) update(route rib.Route, local, origin string, localAS int32) error {
	stamped, err := e.stampIngress(route, local, origin)
	if err != nil {
		return err
	}
	e.notify(Update, local, origin, stamped)

	prefix := stamped.Prefix
	distance := e.distanceFunc(local, localAS)

	prevBest, hadPrev := e.store.Best(local, prefix, distance)
	e.store.Insert(local, stamped)
	newBest, _ := e.store.Best(local, prefix, distance)

	if hadPrev && prevBest.Equal(newBest) {
		return nil
	}

	e.log.Debugw("best route changed on UPDATE",
		zap.String("router", local), zap.String("prefix", prefix))

	localID, err := e.topo.IDOf(local)
	if err != nil {
		return err
	}

	if err := e.fanoutIBGP(local, localAS, localID, hadPrev, prevBest, stamped.Src == rib.SourceEBGP, stamped); err != nil {
		return err
	}

	typeRel, err := e.relationFrom(local, origin)
	if err != nil {
		return err
	}

	for _, n := range e.topo.ExternalNeighbors(local) {
		if hadPrev {
			w := ebgpShadow(prevBest, localAS, localID, n.Med)
			if err := e.Receive(w, n.Router, local, Withdraw); err != nil {
				return err
			}
		}
		if typeRel != topology.RelationCustomer && n.Relation != topology.RelationCustomer {
			continue
		}
		u := ebgpShadow(stamped, localAS, localID, n.Med)
		if err := e.Receive(u, n.Router, local, Update); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) withdraw(route rib.Route, local, origin string, localAS int32) error {
	stamped, err := e.stampIngress(route, local, origin)
	if err != nil {
		return err
	}
	e.notify(Withdraw, local, origin, stamped)

	prefix := stamped.Prefix
	distance := e.distanceFunc(local, localAS)

	best, hadBest := e.store.Best(local, prefix, distance)

	if !e.store.Remove(local, stamped) {
		return nil
	}
	if !hadBest || !best.Equal(stamped) {
		return nil
	}

	newBest, hadNew := e.store.Best(local, prefix, distance)
	if !hadNew {
		// Reproduced verbatim from source: a WITHDRAW that empties the
		// best-route slot does not inform neighbors.
		return nil
	}

	localID, err := e.topo.IDOf(local)
	if err != nil {
		return err
	}

	if err := e.fanoutIBGP(local, localAS, localID, true, best, newBest.Src == rib.SourceEBGP, newBest); err != nil {
		return err
	}

	for _, n := range e.topo.ExternalNeighbors(local) {
		w := ebgpShadow(best, localAS, localID, n.Med)
		if err := e.Receive(w, n.Router, local, Withdraw); err != nil {
			return err
		}

		if newBest.Pref != 150 && n.Relation != topology.RelationCustomer {
			continue
		}
		u := ebgpShadow(newBest, localAS, localID, n.Med)
		if err := e.Receive(u, n.Router, local, Update); err != nil {
			return err
		}
	}
	return nil
}

// fanoutIBGP reflects a withdrawal of the old best (when it was eBGP-learned
// and sendWithdraw is true) and/or an update of announceRoute (when
// sendUpdate is true) to every other router in local's AS.
func (e *Engine) fanoutIBGP(local string, localAS, localID int32, sendWithdraw bool, oldBest rib.Route, sendUpdate bool, announceRoute rib.Route) error {
	for _, rprime := range e.topo.RoutersInAS(localAS) {
		if rprime == local {
			continue
		}
		if sendWithdraw && oldBest.Src == rib.SourceEBGP {
			w := ibgpShadow(oldBest, localAS, localID)
			if err := e.Receive(w, rprime, local, Withdraw); err != nil {
				return err
			}
		}
		if sendUpdate {
			u := ibgpShadow(announceRoute, localAS, localID)
			if err := e.Receive(u, rprime, local, Update); err != nil {
				return err
			}
		}
	}
	return nil
}
