package dispatch

import (
	"strings"
	"testing"

	"github.com/briarcliff/relaygate/internal/lb"
	"github.com/briarcliff/relaygate/internal/model"
	"github.com/briarcliff/relaygate/internal/ratelimit"
)

func routeWithCluster(routeID, prefix, rewrite string, endpoints []model.Endpoint) model.Route {
	return model.Route{
		RouteID: routeID,
		Matcher: &model.Matcher{Prefix: prefix, PrefixRewrite: rewrite},
		Cluster: lb.New(lb.Random, endpoints, lb.Options{}),
	}
}

func TestDispatch_ForwardsHTTPUpstream(t *testing.T) {
	routes := []model.Route{
		routeWithCluster("r1", "/api/", "/v2/", []model.Endpoint{{Upstream: "http://upstream.local/base"}}),
	}
	d := Dispatch("/api/widgets", nil, "10.0.0.1", routes, nil)
	if d.Kind != KindForward {
		t.Fatalf("want KindForward, got %v (cause=%v)", d.Kind, d.Cause)
	}
	if !strings.HasPrefix(d.RewrittenURI, "http://upstream.local/base/v2/") {
		t.Fatalf("unexpected rewritten uri: %s", d.RewrittenURI)
	}
}

func TestDispatch_ServeFileForNonHTTPUpstream(t *testing.T) {
	routes := []model.Route{
		routeWithCluster("r1", "/static/", "", []model.Endpoint{{Upstream: "/var/www", TryFile: "index.html"}}),
	}
	d := Dispatch("/static/app.js", nil, "10.0.0.1", routes, nil)
	if d.Kind != KindServeFile {
		t.Fatalf("want KindServeFile, got %v (cause=%v)", d.Kind, d.Cause)
	}
	if d.Endpoint.TryFile != "index.html" {
		t.Fatalf("unexpected endpoint: %+v", d.Endpoint)
	}
}

func TestDispatch_NotFoundWhenNoRouteMatches(t *testing.T) {
	routes := []model.Route{
		routeWithCluster("r1", "/api/", "", []model.Endpoint{{Upstream: "http://e1"}}),
	}
	d := Dispatch("/other", nil, "10.0.0.1", routes, nil)
	if d.Kind != KindNotFound {
		t.Fatalf("want KindNotFound, got %v", d.Kind)
	}
}

func TestDispatch_FirstMatchWinsInDeclarationOrder(t *testing.T) {
	routes := []model.Route{
		routeWithCluster("first", "/", "", []model.Endpoint{{Upstream: "http://first"}}),
		routeWithCluster("second", "/", "", []model.Endpoint{{Upstream: "http://second"}}),
	}
	d := Dispatch("/anything", nil, "10.0.0.1", routes, nil)
	if d.Kind != KindForward || d.Route.RouteID != "first" {
		t.Fatalf("want first route to win, got route=%v kind=%v", d.Route, d.Kind)
	}
}

func TestDispatch_MissingMatcherIsError(t *testing.T) {
	routes := []model.Route{
		{RouteID: "r1", Cluster: lb.New(lb.Random, []model.Endpoint{{Upstream: "http://e1"}}, lb.Options{})},
	}
	d := Dispatch("/x", nil, "10.0.0.1", routes, nil)
	if d.Kind != KindError {
		t.Fatalf("want KindError, got %v", d.Kind)
	}
}

func TestDispatch_HostNameMustMatchCaseInsensitively(t *testing.T) {
	route := routeWithCluster("r1", "/", "", []model.Endpoint{{Upstream: "http://e1"}})
	route.HostName = "Example.COM"
	routes := []model.Route{route}

	ok := Dispatch("/x", map[string][]string{"Host": {"example.com"}}, "10.0.0.1", routes, nil)
	if ok.Kind != KindForward {
		t.Fatalf("want match on case-insensitive host, got %v", ok.Kind)
	}

	mismatch := Dispatch("/x", map[string][]string{"Host": {"other.com"}}, "10.0.0.1", routes, nil)
	if mismatch.Kind != KindNotFound {
		t.Fatalf("want no match for wrong host, got %v", mismatch.Kind)
	}
}

func TestDispatch_ACLDenyYieldsForbidden(t *testing.T) {
	route := routeWithCluster("r1", "/", "", []model.Endpoint{{Upstream: "http://e1"}})
	route.ACL = []model.AclRule{{Kind: model.Deny, IP: "10.0.0.1"}}
	d := Dispatch("/x", nil, "10.0.0.1", []model.Route{route}, nil)
	if d.Kind != KindForbidden {
		t.Fatalf("want KindForbidden, got %v", d.Kind)
	}
}

func TestDispatch_ACLAllowAllThenForward(t *testing.T) {
	route := routeWithCluster("r1", "/", "", []model.Endpoint{{Upstream: "http://e1"}})
	route.ACL = []model.AclRule{{Kind: model.AllowAll}}
	d := Dispatch("/x", nil, "9.9.9.9", []model.Route{route}, nil)
	if d.Kind != KindForward {
		t.Fatalf("want KindForward, got %v", d.Kind)
	}
}

func TestDispatch_AuthFailureYieldsForbidden(t *testing.T) {
	route := routeWithCluster("r1", "/", "", []model.Endpoint{{Upstream: "http://e1"}})
	route.Auth = &model.AuthPolicy{Kind: model.AuthAPIKey, HeaderName: "X-Api-Key", APIKey: "secret"}
	d := Dispatch("/x", map[string][]string{"X-Api-Key": {"wrong"}}, "10.0.0.1", []model.Route{route}, nil)
	if d.Kind != KindForbidden {
		t.Fatalf("want KindForbidden, got %v", d.Kind)
	}
}

func TestDispatch_RateLimitDepletionYieldsForbidden(t *testing.T) {
	route := routeWithCluster("r1", "/", "", []model.Endpoint{{Upstream: "http://e1"}})
	route.RateLimit = &model.RateLimitPolicy{Kind: model.TokenBucket, RequestsPerSecond: 1, Burst: 1}
	limiter := ratelimit.NewLimiter()

	first := Dispatch("/x", nil, "10.0.0.1", []model.Route{route}, limiter)
	if first.Kind != KindForward {
		t.Fatalf("first request want KindForward, got %v", first.Kind)
	}
	second := Dispatch("/x", nil, "10.0.0.1", []model.Route{route}, limiter)
	if second.Kind != KindForbidden {
		t.Fatalf("second request want KindForbidden, got %v", second.Kind)
	}
}

func TestDispatch_EmptyClusterIsError(t *testing.T) {
	route := model.Route{
		RouteID: "r1",
		Matcher: &model.Matcher{Prefix: "/"},
		Cluster: lb.New(lb.Random, nil, lb.Options{}),
	}
	d := Dispatch("/x", nil, "10.0.0.1", []model.Route{route}, nil)
	if d.Kind != KindError {
		t.Fatalf("want KindError for empty cluster, got %v", d.Kind)
	}
}
