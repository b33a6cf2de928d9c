// Package config loads a declarative YAML description of a topology:
// routers, their commercial and internal relationships, and which routers
// announce their own prefix.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nordlayer/bgpfabric"
)

// Router declares one router and the AS it belongs to.
type Router struct {
	Name string `yaml:"name"`
	AS   int32  `yaml:"as"`
	ID   int32  `yaml:"id"`
}

// PeerLink declares a settlement-free eBGP peering between two routers.
type PeerLink struct {
	R1  string `yaml:"r1"`
	R2  string `yaml:"r2"`
	Med int32  `yaml:"med"`
}

// ProviderCustomer declares a commercial provider/customer eBGP relationship.
type ProviderCustomer struct {
	Provider string `yaml:"provider"`
	Customer string `yaml:"customer"`
	Med      int32  `yaml:"med"`
}

// InternalLink declares an intra-AS iBGP/IGP link and its administrative
// cost.
type InternalLink struct {
	R1   string `yaml:"r1"`
	R2   string `yaml:"r2"`
	Cost int32  `yaml:"cost"`
}

// Topology is the YAML-serializable description of a whole fabric: every
// router, every link, and which routers originate their own prefix.
type Topology struct {
	Routers           []Router           `yaml:"routers"`
	PeerLinks         []PeerLink         `yaml:"peer_links"`
	ProviderCustomers []ProviderCustomer `yaml:"provider_customers"`
	InternalLinks     []InternalLink     `yaml:"internal_links"`
	Announce          []string           `yaml:"announce"`
}

// Load reads and parses the YAML topology declaration at path.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Topology{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	// An omitted cost means the declaration didn't care; default to an
	// administrative cost of 1.
	for i := range cfg.InternalLinks {
		if cfg.InternalLinks[i].Cost == 0 {
			cfg.InternalLinks[i].Cost = 1
		}
	}
	return cfg, nil
}

// Build constructs a bgpfabric.Simulator from the declared topology and
// originates every router in Announce, running propagation to steady
// state. Link/router errors are returned as encountered; no partial
// Simulator is returned on error.
func (t *Topology) Build(opts ...bgpfabric.Option) (*bgpfabric.Simulator, error) {
	sim := bgpfabric.NewSimulator(opts...)

	for _, r := range t.Routers {
		sim.AddRouter(r.Name, r.AS, r.ID)
	}
	for _, l := range t.PeerLinks {
		if err := sim.AddPeerLink(l.R1, l.R2, l.Med); err != nil {
			return nil, fmt.Errorf("peer link %s-%s: %w", l.R1, l.R2, err)
		}
	}
	for _, l := range t.ProviderCustomers {
		if err := sim.AddProviderCustomer(l.Provider, l.Customer, l.Med); err != nil {
			return nil, fmt.Errorf("provider-customer %s->%s: %w", l.Provider, l.Customer, err)
		}
	}
	for _, l := range t.InternalLinks {
		if err := sim.AddInternalLink(l.R1, l.R2, l.Cost); err != nil {
			return nil, fmt.Errorf("internal link %s-%s: %w", l.R1, l.R2, err)
		}
	}
	for _, router := range t.Announce {
		if err := sim.AnnouncePrefix(router); err != nil {
			return nil, fmt.Errorf("announce %s: %w", router, err)
		}
	}

	return sim, nil
}
