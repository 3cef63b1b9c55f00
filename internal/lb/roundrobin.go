package lb

import (
	"sync/atomic"

	"github.com/briarcliff/relaygate/internal/model"
)

// roundRobinLB cycles through endpoints in order. State: a monotonic
// cursor, mutated with an atomic add so concurrent picks never reorder
// relative to each other (each call gets a distinct, strictly increasing
// ticket).
type roundRobinLB struct {
	endpoints []model.Endpoint
	cursor    atomic.Uint64
}

func NewRoundRobin(endpoints []model.Endpoint) model.LoadBalancer {
	return &roundRobinLB{endpoints: endpoints}
}

func (b *roundRobinLB) GetRoute(_ map[string][]string) (*model.Endpoint, error) {
	n := len(b.endpoints)
	if n == 0 {
		return nil, ErrNoEndpoints
	}
	i := b.cursor.Add(1) - 1
	ep := b.endpoints[int(i%uint64(n))]
	return &ep, nil
}
