package bgp

import (
	"fmt"

	"github.com/nordlayer/bgpfabric/internal/rib"
)

func nexthopOf(as, id int32) string {
	return fmt.Sprintf("10.0.%d.%d", as, id)
}

// ibgpShadow builds the iBGP re-announcement of route as sent from local
// (AS localAS, router-id localID) to every other router in its AS: the
// AS-path is carried unchanged (no prepend crossing iBGP), the next-hop is
// rewritten to the local border router, and pref/med are copied straight
// through from the already locally-stamped route.
func ibgpShadow(route rib.Route, localAS, localID int32) rib.Route {
	return rib.Route{
		Prefix:   route.Prefix,
		Nexthop:  nexthopOf(localAS, localID),
		ASPath:   route.ASPath,
		Pref:     route.Pref,
		Med:      route.Med,
		RouterID: localID,
		Src:      rib.SourceIBGP,
	}
}

// ebgpShadow builds the eBGP re-announcement of route as sent from local
// (AS localAS, router-id localID) to one external neighbor: the local AS is
// prepended to the AS-path, the next-hop is rewritten to the local border
// router, and med is the edge-specific MED toward that one neighbor. Pref is
// a local-only attribute that the receiving router restamps on ingress, so
// it is not carried across the eBGP shadow.
func ebgpShadow(route rib.Route, localAS, localID, medToNeighbor int32) rib.Route {
	return rib.Route{
		Prefix:   route.Prefix,
		Nexthop:  nexthopOf(localAS, localID),
		ASPath:   route.WithPrepend(localAS).ASPath,
		Med:      medToNeighbor,
		RouterID: localID,
		Src:      rib.SourceEBGP,
	}
}

// originationShadow builds the very first eBGP announcement of a router's
// own self-route to one external neighbor. Unlike ebgpShadow, the AS is not
// prepended: the self-route's AS-path already represents the originating
// AS's one hop, so re-prepending here would double-count it. Only the
// per-neighbor MED differs across neighbors.
func originationShadow(self rib.Route, localID, medToNeighbor int32) rib.Route {
	return rib.Route{
		Prefix:   self.Prefix,
		Nexthop:  self.Nexthop,
		ASPath:   self.ASPath,
		Med:      medToNeighbor,
		RouterID: localID,
		Src:      rib.SourceEBGP,
	}
}
