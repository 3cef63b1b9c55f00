package lb

import (
	"hash/fnv"

	"github.com/briarcliff/relaygate/internal/model"
)

// headerHashLB routes by hashing a request header value, so repeated
// requests carrying the same header value (a session token, a tenant id)
// land on the same endpoint as long as the pool doesn't change size.
type headerHashLB struct {
	endpoints  []model.Endpoint
	headerName string
}

func NewHeaderHash(endpoints []model.Endpoint, headerName string) model.LoadBalancer {
	if headerName == "" {
		headerName = "X-Forwarded-For"
	}
	return &headerHashLB{endpoints: endpoints, headerName: headerName}
}

func (b *headerHashLB) GetRoute(headers map[string][]string) (*model.Endpoint, error) {
	n := len(b.endpoints)
	if n == 0 {
		return nil, ErrNoEndpoints
	}
	var key string
	if vv, ok := headers[b.headerName]; ok && len(vv) > 0 {
		key = vv[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	ep := b.endpoints[int(h.Sum32())%n]
	return &ep, nil
}
