// Package bgpfabric simulates the control plane of a multi-AS interdomain
// routing fabric: given a static declaration of autonomous systems,
// routers, their commercial relationships, internal links and announced
// prefixes, it computes the steady-state Routing Information Base at every
// router.
package bgpfabric

import (
	"go.uber.org/zap"

	"github.com/nordlayer/bgpfabric/internal/bgp"
	"github.com/nordlayer/bgpfabric/internal/igp"
	"github.com/nordlayer/bgpfabric/internal/rib"
	"github.com/nordlayer/bgpfabric/internal/topology"
)

// Route is the public view of a single candidate route in a router's RIB.
type Route = rib.Route

// Source re-exports the eBGP/iBGP tag for callers that want to inspect
// Route.Src without importing internal/rib directly.
const (
	SourceEBGP = rib.SourceEBGP
	SourceIBGP = rib.SourceIBGP
)

type options struct {
	log      *zap.SugaredLogger
	observer bgp.Observer
}

func newOptions() *options {
	return &options{log: zap.NewNop().Sugar()}
}

// Option configures a Simulator.
type Option func(*options)

// WithLog sets the logger used by every component of the simulation.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithObserver registers a hook invoked for every accepted UPDATE/WITHDRAW,
// for diagnostic stepping. Not required for correctness.
func WithObserver(obs func(bgp.Event)) Option {
	return func(o *options) { o.observer = obs }
}

// Simulator is the public entry point of the core: topology construction,
// origination, and the observable RIB.
type Simulator struct {
	topo   *topology.Topology
	store  *rib.Store
	engine *bgp.Engine
	log    *zap.SugaredLogger
}

// NewSimulator constructs an empty Simulator, ready for AddRouter/AddPeerLink/
// AddProviderCustomer/AddInternalLink calls followed by AnnouncePrefix.
func NewSimulator(opts ...Option) *Simulator {
	o := newOptions()
	for _, apply := range opts {
		apply(o)
	}

	topo := topology.New(o.log)
	store := rib.NewStore(o.log)
	oracle := igp.NewOracle(topo)

	engineOpts := []bgp.Option{bgp.WithLog(o.log)}
	if o.observer != nil {
		engineOpts = append(engineOpts, bgp.WithObserver(o.observer))
	}
	engine := bgp.NewEngine(topo, store, oracle, engineOpts...)

	return &Simulator{topo: topo, store: store, engine: engine, log: o.log}
}

// AddRouter registers a router identified by name, its AS number and its
// router-id (unique within that AS).
func (s *Simulator) AddRouter(name string, as, id int32) {
	s.topo.AddRouter(name, as, id)
}

// AddPeerLink registers a settlement-free peer relationship between r1 and
// r2, carrying med in both directions.
func (s *Simulator) AddPeerLink(r1, r2 string, med int32) error {
	return s.topo.AddPeerLink(r1, r2, med)
}

// AddProviderCustomer registers provider as the commercial provider of
// customer, carrying med in both directions.
func (s *Simulator) AddProviderCustomer(provider, customer string, med int32) error {
	return s.topo.AddProviderCustomer(provider, customer, med)
}

// AddInternalLink registers a symmetric intra-AS link of the given
// administrative cost. Fails if r1 and r2 are not in the same AS.
func (s *Simulator) AddInternalLink(r1, r2 string, cost int32) error {
	return s.topo.AddInternalLink(r1, r2, cost)
}

// AnnouncePrefix originates router's AS-owned prefix (10.0.<AS>.0) and runs
// propagation to steady state.
func (s *Simulator) AnnouncePrefix(router string) error {
	return s.engine.Originate(router)
}

// Withdraw delivers an external WITHDRAW of route, as announced by origin,
// to router local, and runs propagation to steady state. Exposed for tests
// and scenarios that exercise withdrawal and recovery. Not part of the
// minimal builder surface, but required to drive the WITHDRAW half of the
// propagation engine from outside the package.
func (s *Simulator) Withdraw(route Route, local, origin string) error {
	return s.engine.Receive(route, local, origin, bgp.Withdraw)
}

// Update delivers an external UPDATE of route, as announced by origin, to
// router local. See Withdraw's note on scope.
func (s *Simulator) Update(route Route, local, origin string) error {
	return s.engine.Receive(route, local, origin, bgp.Update)
}

// DecisionProcess returns the currently selected best route for prefix at
// router, or the zero Route and false if it has none.
func (s *Simulator) DecisionProcess(router, prefix string) (Route, bool) {
	as, err := s.topo.ASOf(router)
	if err != nil {
		return Route{}, false
	}
	oracle := igp.NewOracle(s.topo)
	distance := func(nexthop string) (int, bool) {
		d, err := oracle.Distance(router, as, nexthop)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	return s.store.Best(router, prefix, distance)
}

// BGPTables returns a full snapshot of the RIB: router -> prefix -> routes.
func (s *Simulator) BGPTables() map[string]map[string][]Route {
	out := make(map[string]map[string][]Route)
	for _, router := range s.store.Routers() {
		perPrefix := make(map[string][]Route)
		for _, prefix := range s.store.Prefixes(router) {
			perPrefix[prefix] = s.store.Routes(router, prefix)
		}
		out[router] = perPrefix
	}
	return out
}
