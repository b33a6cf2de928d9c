package bgp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nordlayer/bgpfabric/internal/bgp"
	"github.com/nordlayer/bgpfabric/internal/igp"
	"github.com/nordlayer/bgpfabric/internal/rib"
	"github.com/nordlayer/bgpfabric/internal/topology"
)

func newHarness() (*topology.Topology, *rib.Store, *bgp.Engine) {
	topo := topology.New(nil)
	store := rib.NewStore(nil)
	oracle := igp.NewOracle(topo)
	engine := bgp.NewEngine(topo, store, oracle)
	return topo, store, engine
}

// S1 — single link: r1 is provider of r2, r2 announces its prefix.
func TestSingleLink(t *testing.T) {
	topo, store, engine := newHarness()
	topo.AddRouter("r1", 1, 1)
	topo.AddRouter("r2", 2, 2)
	require.NoError(t, topo.AddProviderCustomer("r1", "r2", 0))

	require.NoError(t, engine.Originate("r2"))

	routes := store.Routes("r1", "10.0.2.0")
	require.Len(t, routes, 1)
	require.Equal(t, rib.Route{
		Prefix:   "10.0.2.0",
		Nexthop:  "10.0.2.2",
		ASPath:   []int32{2},
		Pref:     150,
		Med:      0,
		RouterID: 2,
		Src:      rib.SourceEBGP,
	}, routes[0])

	best, ok := store.Best("r1", "10.0.2.0", nil)
	require.True(t, ok)
	require.Equal(t, routes[0], best)
}

// Loop detection: a router never accepts a route whose AS-path already
// contains its own AS.
func TestLoopFilterDrops(t *testing.T) {
	t1, s1, e1 := newHarness()
	t1.AddRouter("r1", 1, 1)
	t1.AddRouter("r2", 2, 2)
	require.NoError(t, t1.AddProviderCustomer("r1", "r2", 0))

	looping := rib.Route{Prefix: "10.0.2.0", Nexthop: "10.0.2.2", ASPath: []int32{1, 2}}
	require.NoError(t, e1.Receive(looping, "r1", "r2", bgp.Update))
	require.Empty(t, s1.Routes("r1", "10.0.2.0"))
}

// Idempotent UPDATE: delivering the same UPDATE twice leaves the RIB
// unchanged after the second delivery.
func TestIdempotentUpdate(t *testing.T) {
	topo, store, engine := newHarness()
	topo.AddRouter("r1", 1, 1)
	topo.AddRouter("r2", 2, 2)
	require.NoError(t, topo.AddProviderCustomer("r1", "r2", 0))

	route := rib.Route{Prefix: "10.0.2.0", Nexthop: "10.0.2.2", ASPath: []int32{2}}
	require.NoError(t, engine.Receive(route, "r1", "r2", bgp.Update))
	before := store.Routes("r1", "10.0.2.0")

	require.NoError(t, engine.Receive(route, "r1", "r2", bgp.Update))
	after := store.Routes("r1", "10.0.2.0")

	require.Equal(t, before, after)
}

// Gao-Rexford: a route learned from a provider must never be exported to
// another provider or peer, only to customers.
func TestGaoRexfordBlocksProviderToPeerExport(t *testing.T) {
	topo, store, engine := newHarness()
	// r1 has provider r0 and peer rp; r1 learns a route from r0 (provider)
	// and must not re-export it to rp (peer).
	topo.AddRouter("r0", 0, 10)
	topo.AddRouter("r1", 1, 1)
	topo.AddRouter("rp", 9, 9)
	require.NoError(t, topo.AddProviderCustomer("r0", "r1", 0))
	require.NoError(t, topo.AddPeerLink("r1", "rp", 0))

	require.NoError(t, engine.Originate("r0"))

	require.Empty(t, store.Routes("rp", "10.0.0.0"))
}

// Gao-Rexford: a route learned from a customer may be exported to
// providers, peers and customers alike.
func TestGaoRexfordAllowsCustomerToAnyExport(t *testing.T) {
	topo, store, engine := newHarness()
	topo.AddRouter("r1", 1, 1)
	topo.AddRouter("r2", 2, 2)
	topo.AddRouter("rp", 9, 9)
	require.NoError(t, topo.AddProviderCustomer("r1", "r2", 0))
	require.NoError(t, topo.AddPeerLink("r1", "rp", 0))

	require.NoError(t, engine.Originate("r2"))

	require.Len(t, store.Routes("rp", "10.0.2.0"), 1)
}

// S2 — three-AS transitive with customer preference.
func TestThreeASTransitive(t *testing.T) {
	topo, store, engine := newHarness()
	topo.AddRouter("r1", 1, 1)
	topo.AddRouter("r2", 2, 2)
	topo.AddRouter("r3", 3, 3)
	require.NoError(t, topo.AddProviderCustomer("r1", "r2", 0))
	require.NoError(t, topo.AddProviderCustomer("r1", "r3", 0))
	require.NoError(t, topo.AddPeerLink("r2", "r3", 0))

	require.NoError(t, engine.Originate("r2"))

	routes := store.Routes("r3", "10.0.2.0")
	require.Len(t, routes, 2)

	best, ok := store.Best("r3", "10.0.2.0", nil)
	require.True(t, ok)
	require.Equal(t, int32(100), best.Pref)
	require.Equal(t, []int32{2}, best.ASPath)
}
