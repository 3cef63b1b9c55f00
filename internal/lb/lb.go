// Package lb implements the cluster load-balancer strategies a Route picks
// an upstream Endpoint from. Each strategy is a tagged variant behind the
// uniform model.LoadBalancer capability; none of them share state through
// inheritance, only through the Endpoint slice they're constructed with.
package lb

import (
	"errors"

	"github.com/briarcliff/relaygate/internal/model"
)

// ErrNoEndpoints is returned by every strategy when its endpoint pool is
// empty. model.LoadBalancer.GetRoute must be total over non-empty pools and
// is only allowed to fail this way.
var ErrNoEndpoints = errors.New("lb: endpoint pool is empty")

// Kind discriminates the concrete balancer strategies a Route's cluster can
// use. Discriminated by a "type" tag in configuration, per spec §6.
type Kind string

const (
	Random     Kind = "random"
	Weighted   Kind = "weighted"
	RoundRobin Kind = "round_robin"
	HeaderHash Kind = "header_hash"
)

// Options configures the strategies that need more than an endpoint list.
type Options struct {
	// HeaderName is consulted by the header_hash strategy. Defaults to
	// "X-Forwarded-For" when empty.
	HeaderName string
}

// New builds the balancer named by kind over endpoints. Unknown kinds fall
// back to Random — a cluster is never left without a usable strategy
// because of a typo in config.
func New(kind Kind, endpoints []model.Endpoint, opts Options) model.LoadBalancer {
	switch kind {
	case Weighted:
		return NewWeighted(endpoints)
	case RoundRobin:
		return NewRoundRobin(endpoints)
	case HeaderHash:
		return NewHeaderHash(endpoints, opts.HeaderName)
	default:
		return NewRandom(endpoints)
	}
}
