package bgp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nordlayer/bgpfabric/internal/rib"
)

// Originate seeds router's RIB with a self-originated route for its own
// AS's prefix and kicks off eBGP propagation to every external neighbor.
// iBGP peers in router's own AS never learn the prefix: origination
// triggers no iBGP fan-out, and every re-announcement that comes back
// carries the originating AS in its AS-path, so the loop filter drops it.
func (e *Engine) Originate(router string) error {
	as, err := e.topo.ASOf(router)
	if err != nil {
		return err
	}
	id, err := e.topo.IDOf(router)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("10.0.%d.0", as)
	self := rib.Route{
		Prefix:   prefix,
		Nexthop:  nexthopOf(as, id),
		ASPath:   []int32{as},
		Pref:     rib.SelfOriginated,
		Med:      0,
		RouterID: rib.SelfOriginatedRouterID,
		Src:      rib.SourceEBGP,
	}

	e.store.Insert(router, self)
	e.log.Infow("originated prefix", zap.String("router", router), zap.String("prefix", prefix))

	for _, n := range e.topo.ExternalNeighbors(router) {
		shadow := originationShadow(self, id, n.Med)
		if err := e.Receive(shadow, n.Router, router, Update); err != nil {
			return err
		}
	}
	return nil
}
