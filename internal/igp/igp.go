// Package igp computes intra-AS shortest-path distances over the internal
// weighted graph a router's AS owns, for use as the IGP-distance tiebreak
// in the best-route decision process.
package igp

import (
	"container/heap"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoIGPRoute is returned when the requested next-hop is not reachable
// inside the querying router's AS internal graph.
var ErrNoIGPRoute = errors.New("igp: no route to next-hop")

// neighbors abstracts the topology's per-AS internal adjacency so this
// package has no import dependency on internal/topology.
type neighbors interface {
	IGPNeighborNames(router string) []string
	IGPNeighborCost(router, neighbor string) int32
	RouterByID(as, id int32) (string, bool)
}

// Oracle computes IGP distances over a neighbors-shaped topology view.
type Oracle struct {
	topo neighbors
}

// NewOracle constructs an Oracle backed by topo.
func NewOracle(topo neighbors) *Oracle {
	return &Oracle{topo: topo}
}

// Distance returns the hop count (number of vertices on the path, NOT the
// summed edge cost) of the shortest-by-cost path from router to the router
// owning nexthop's id within as. If router itself owns that id, distance is
// 1. Returns ErrNoIGPRoute if unreachable.
//
// Dijkstra is run over real edge costs to determine WHICH path is
// shortest, but the distance reported back is that path's hop count. This
// reproduces the original simulator's behavior exactly and is not a bug:
// deviating here fails the iBGP tie-break scenario.
func (o *Oracle) Distance(router string, as int32, nexthop string) (int, error) {
	id, err := parseNexthopID(nexthop)
	if err != nil {
		return 0, err
	}

	target, ok := o.topo.RouterByID(as, id)
	if !ok {
		return 0, fmt.Errorf("%w: next-hop %q resolves to no router in AS %d", ErrNoIGPRoute, nexthop, as)
	}
	if target == router {
		return 1, nil
	}

	hops, ok := o.shortestPathHops(router, target)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not reachable from %q", ErrNoIGPRoute, target, router)
	}
	return hops, nil
}

// parseNexthopID extracts the trailing octet of a 10.0.<AS>.<id> address.
func parseNexthopID(nexthop string) (int32, error) {
	parts := strings.Split(nexthop, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("igp: malformed next-hop address %q", nexthop)
	}
	id, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, fmt.Errorf("igp: malformed next-hop address %q: %w", nexthop, err)
	}
	return int32(id), nil
}

type queueItem struct {
	router   string
	distance int32 // cumulative cost, used only to pick the Dijkstra order
	hops     int   // hop count of the path this item represents
}

type priorityQueue []queueItem

func (q priorityQueue) Len() int            { return len(q) }
func (q priorityQueue) Less(i, j int) bool  { return q[i].distance < q[j].distance }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// shortestPathHops runs Dijkstra from source and returns the hop count of
// the minimum-cost path to target.
func (o *Oracle) shortestPathHops(source, target string) (int, bool) {
	best := map[string]int32{source: 0}
	hops := map[string]int{source: 1}
	visited := make(map[string]bool)

	pq := &priorityQueue{{router: source, distance: 0, hops: 1}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if visited[cur.router] {
			continue
		}
		visited[cur.router] = true
		if cur.router == target {
			return cur.hops, true
		}

		for _, n := range o.topo.IGPNeighborNames(cur.router) {
			if visited[n] {
				continue
			}
			cost := o.topo.IGPNeighborCost(cur.router, n)
			nd := cur.distance + cost
			if existing, ok := best[n]; !ok || nd < existing {
				best[n] = nd
				hops[n] = cur.hops + 1
				heap.Push(pq, queueItem{router: n, distance: nd, hops: cur.hops + 1})
			}
		}
	}
	return 0, false
}
