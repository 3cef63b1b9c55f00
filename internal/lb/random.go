package lb

import (
	"math/rand"
	"sync"

	"github.com/briarcliff/relaygate/internal/model"
)

// randomLB picks a uniformly random endpoint on every call. State: the
// endpoint slice plus a per-instance random source, guarded by a mutex
// because *rand.Rand is not safe for concurrent use.
type randomLB struct {
	mu        sync.Mutex
	endpoints []model.Endpoint
	rng       *rand.Rand
}

func NewRandom(endpoints []model.Endpoint) model.LoadBalancer {
	return &randomLB{
		endpoints: endpoints,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

func (b *randomLB) GetRoute(_ map[string][]string) (*model.Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	ep := b.endpoints[b.rng.Intn(len(b.endpoints))]
	return &ep, nil
}
