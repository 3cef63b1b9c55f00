// Package listener implements the three Listener Worker variants (spec
// §4.B): HTTP, HTTPS, and TCP, each sharing the Binding -> Serving ->
// Draining -> Terminated lifecycle and each reading its manager.Entry's
// route snapshot on every request/connection rather than caching it.
package listener

import (
	"io"

	"github.com/briarcliff/relaygate/internal/forward"
	"github.com/briarcliff/relaygate/internal/ratelimit"
	"github.com/briarcliff/relaygate/internal/telemetry"
)

// Deps bundles the collaborators every worker variant needs. main
// constructs one Deps at startup and the Reconciler hands the same
// instance to every worker it spawns; none of these fields are mutated
// after construction.
type Deps struct {
	Transports forward.Factory
	Limiter    *ratelimit.Limiter
	Metrics    *telemetry.Metrics
	AccessLog  *telemetry.AccessLog
}

// NewDeps wires a default transport registry, a fresh rate limiter, the
// given metrics (may be nil), and an access log writer over accessLog (may
// be nil, which discards).
func NewDeps(metrics *telemetry.Metrics, accessLog io.Writer) Deps {
	return Deps{
		Transports: forward.NewDefaultRegistry(),
		Limiter:    ratelimit.NewLimiter(),
		Metrics:    metrics,
		AccessLog:  telemetry.NewAccessLog(accessLog),
	}
}
