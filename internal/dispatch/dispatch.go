// Package dispatch implements the Route Engine (spec §4.A): a single pure
// function that turns a request's path, headers, and peer address into a
// Decision by walking a route snapshot in declaration order. It holds no
// state of its own beyond the rate limiter it is handed — every listener
// worker calls Dispatch once per request against whatever snapshot its
// manager entry currently publishes.
package dispatch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/briarcliff/relaygate/internal/acl"
	"github.com/briarcliff/relaygate/internal/auth"
	"github.com/briarcliff/relaygate/internal/model"
	"github.com/briarcliff/relaygate/internal/ratelimit"
)

// Kind discriminates the Decision variants the route engine can emit.
type Kind int

const (
	KindForward Kind = iota
	KindServeFile
	KindForbidden
	KindNotFound
	KindError
)

// Decision is the outcome of one dispatch call. Exactly the fields relevant
// to Kind are populated; callers switch on Kind first.
type Decision struct {
	Kind         Kind
	Endpoint     *model.Endpoint
	RewrittenURI string
	Route        *model.Route
	Cause        error
}

func forward(ep *model.Endpoint, uri string, route *model.Route) Decision {
	return Decision{Kind: KindForward, Endpoint: ep, RewrittenURI: uri, Route: route}
}

func serveFile(ep *model.Endpoint, route *model.Route) Decision {
	return Decision{Kind: KindServeFile, Endpoint: ep, Route: route}
}

func forbidden(route *model.Route) Decision {
	return Decision{Kind: KindForbidden, Route: route}
}

var notFound = Decision{Kind: KindNotFound}

func errDecision(cause error) Decision {
	return Decision{Kind: KindError, Cause: cause}
}

// Dispatch runs the match -> ACL -> auth -> rate-limit -> cluster-select ->
// upstream-assembly pipeline against routes in declaration order and
// returns on the first match (spec §4.A). limiter may be nil, in which
// case rate limiting is skipped entirely (useful for the TCP worker, which
// never calls Dispatch with a populated RateLimit policy in the first
// place, and for tests).
func Dispatch(requestPath string, headers map[string][]string, peerIP string, routes []model.Route, limiter *ratelimit.Limiter) Decision {
	for i := range routes {
		route := &routes[i]

		matched, err := matches(route, requestPath, headers)
		if err != nil {
			return errDecision(err)
		}
		if !matched {
			continue
		}

		if !acl.Evaluate(route.ACL, peerIP) {
			return forbidden(route)
		}

		if route.Auth != nil && !auth.Authenticate(route.Auth, headers) {
			return forbidden(route)
		}

		if route.RateLimit != nil {
			identity := peerIP
			allowed := true
			if limiter != nil {
				allowed = limiter.AllowPolicy(route.RouteID, identity, route.RateLimit)
			}
			if !allowed {
				return forbidden(route)
			}
		}

		if route.Cluster == nil {
			return errDecision(fmt.Errorf("dispatch: route %s has no cluster", route.RouteID))
		}
		endpoint, err := route.Cluster.GetRoute(headers)
		if err != nil {
			return errDecision(fmt.Errorf("dispatch: route %s: %w", route.RouteID, err))
		}

		if strings.Contains(endpoint.Upstream, "http") {
			uri, err := joinUpstream(endpoint.Upstream, rewritePath(route.Matcher, requestPath))
			if err != nil {
				return errDecision(fmt.Errorf("dispatch: route %s: %w", route.RouteID, err))
			}
			return forward(endpoint, uri, route)
		}
		return serveFile(endpoint, route)
	}
	return notFound
}

// matches implements step 1: a route matches iff its matcher's prefix is a
// prefix of requestPath and, when host_name is set, it case-insensitively
// equals the request's Host header. A route with a nil matcher is an error.
func matches(route *model.Route, requestPath string, headers map[string][]string) (bool, error) {
	if route.Matcher == nil {
		return false, fmt.Errorf("dispatch: route %s has no matcher", route.RouteID)
	}
	if !strings.HasPrefix(requestPath, route.Matcher.Prefix) {
		return false, nil
	}
	if route.HostName != "" && !strings.EqualFold(route.HostName, headerValue(headers, "Host")) {
		return false, nil
	}
	return true, nil
}

// rewritePath applies matcher.prefix_rewrite in place of the matched
// prefix, leaving the remainder of requestPath untouched.
func rewritePath(m *model.Matcher, requestPath string) string {
	if m.PrefixRewrite == "" {
		return requestPath
	}
	return m.PrefixRewrite + strings.TrimPrefix(requestPath, m.Prefix)
}

// joinUpstream builds the forwarding URI using URL-join semantics (not
// string concatenation): the upstream's own path, if any, is preserved and
// the rewritten path is appended to it.
func joinUpstream(upstream, rewrittenPath string) (string, error) {
	base, err := url.Parse(upstream)
	if err != nil {
		return "", fmt.Errorf("parse upstream %q: %w", upstream, err)
	}
	ref, err := url.Parse(rewrittenPath)
	if err != nil {
		return "", fmt.Errorf("parse rewritten path %q: %w", rewrittenPath, err)
	}
	joined := *base
	joined.Path = joinSlash(base.Path, ref.Path)
	joined.RawQuery = ref.RawQuery
	return joined.String(), nil
}

func joinSlash(a, b string) string {
	as := strings.HasSuffix(a, "/")
	bs := strings.HasPrefix(b, "/")
	switch {
	case as && bs:
		return a + b[1:]
	case !as && !bs:
		return a + "/" + b
	default:
		return a + b
	}
}

func headerValue(headers map[string][]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
