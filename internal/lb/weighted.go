package lb

import (
	"sync"

	"github.com/briarcliff/relaygate/internal/model"
)

// weightedLB implements smooth weighted round-robin (the nginx algorithm):
// each peer accumulates its weight every pick, the highest accumulator
// wins and is debited by the total weight. This spreads picks evenly in
// proportion to weight instead of bursting through one peer's whole share
// before moving on, the way naive weighted round-robin does.
type weightedLB struct {
	mu    sync.Mutex
	peers []*weightedPeer
}

type weightedPeer struct {
	endpoint      model.Endpoint
	weight        int
	currentWeight int
}

func NewWeighted(endpoints []model.Endpoint) model.LoadBalancer {
	peers := make([]*weightedPeer, len(endpoints))
	for i, e := range endpoints {
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		peers[i] = &weightedPeer{endpoint: e, weight: w}
	}
	return &weightedLB{peers: peers}
}

func (b *weightedLB) GetRoute(_ map[string][]string) (*model.Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.peers) == 0 {
		return nil, ErrNoEndpoints
	}

	var best *weightedPeer
	total := 0
	for _, p := range b.peers {
		p.currentWeight += p.weight
		total += p.weight
		if best == nil || p.currentWeight > best.currentWeight {
			best = p
		}
	}
	best.currentWeight -= total
	ep := best.endpoint
	return &ep, nil
}
