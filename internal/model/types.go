// Package model defines the data shapes shared by the configuration store,
// the route engine, and the listener workers.
package model

import "fmt"

// ServerType discriminates the three listener flavors a service can run as.
type ServerType string

const (
	HTTP  ServerType = "HTTP"
	HTTPS ServerType = "HTTPS"
	TCP   ServerType = "TCP"
)

// ListenerKey uniquely identifies a running listener: "<port>-<server_type>".
func ListenerKey(port uint16, st ServerType) string {
	return fmt.Sprintf("%d-%s", port, st)
}

// StaticConfig holds the options read once at startup and never mutated.
type StaticConfig struct {
	AdminPort      string `yaml:"-" json:"admin_port"`
	DatabaseURL    string `yaml:"-" json:"database_url,omitempty"`
	AccessLogPath  string `yaml:"-" json:"access_log,omitempty"`
	ConfigFilePath string `yaml:"-" json:"config_file_path,omitempty"`
}

// AppConfig is the process-wide desired state: static options plus the
// mutable list of services the control plane and loader maintain.
type AppConfig struct {
	Static   StaticConfig `yaml:"-" json:"static"`
	Services []ApiService `yaml:"-" json:"services"`
}

// ApiService binds a listen port to a ServiceConfig.
type ApiService struct {
	ServiceID     string        `yaml:"service_id" json:"service_id"`
	ListenPort    uint16        `yaml:"listen_port" json:"listen_port"`
	ServiceConfig ServiceConfig `yaml:"service_config" json:"service_config"`
}

// ServiceConfig is the per-listener configuration: protocol, TLS material
// (HTTPS only), and the ordered route table. The YAML config file spells the
// TLS fields cert_str/key_str; the admin API's JSON contract spells them
// cert_pem/key_pem. Both tags point at the same Go fields.
type ServiceConfig struct {
	ServerType ServerType `yaml:"server_type" json:"server_type"`
	CertPEM    string     `yaml:"cert_str,omitempty" json:"cert_pem,omitempty"`
	KeyPEM     string     `yaml:"key_str,omitempty" json:"key_pem,omitempty"`
	Routes     []Route    `yaml:"routes" json:"routes"`
}

// Matcher selects requests by path prefix, with an optional rewrite applied
// when building the forwarded URI.
type Matcher struct {
	Prefix        string `yaml:"prefix" json:"prefix"`
	PrefixRewrite string `yaml:"prefix_rewrite" json:"prefix_rewrite"`
}

// Route is one entry in a ServiceConfig's ordered route table.
type Route struct {
	RouteID   string           `yaml:"route_id" json:"route_id"`
	HostName  string           `yaml:"host_name" json:"host_name,omitempty"`
	Matcher   *Matcher         `yaml:"matcher" json:"matcher,omitempty"`
	Cluster   LoadBalancer     `yaml:"-" json:"-"`
	ACL       []AclRule        `yaml:"acl" json:"acl,omitempty"`
	Auth      *AuthPolicy      `yaml:"auth" json:"auth,omitempty"`
	RateLimit *RateLimitPolicy `yaml:"ratelimit" json:"ratelimit,omitempty"`
}

// AclKind enumerates the four rule shapes the route engine evaluates in
// order against the peer IP.
type AclKind string

const (
	AllowAll AclKind = "ALLOW_ALL"
	DenyAll  AclKind = "DENY_ALL"
	Allow    AclKind = "ALLOW"
	Deny     AclKind = "DENY"
)

type AclRule struct {
	Kind AclKind `yaml:"kind" json:"kind"`
	IP   string  `yaml:"ip,omitempty" json:"ip,omitempty"`
}

// AuthKind enumerates the supported request-authentication schemes.
type AuthKind string

const (
	AuthBasic  AuthKind = "BASIC"
	AuthAPIKey AuthKind = "API_KEY"
)

type AuthPolicy struct {
	Kind       AuthKind `yaml:"kind" json:"kind"`
	Username   string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password   string   `yaml:"password,omitempty" json:"password,omitempty"`
	HeaderName string   `yaml:"header_name,omitempty" json:"header_name,omitempty"`
	APIKey     string   `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// RateLimitKind enumerates the supported limiter algorithms. Evaluation
// semantics beyond presence are pluggable per spec §9.5; this module ships
// a token-bucket implementation.
type RateLimitKind string

const (
	TokenBucket RateLimitKind = "TOKEN_BUCKET"
	FixedWindow RateLimitKind = "FIXED_WINDOW"
)

type RateLimitPolicy struct {
	Kind              RateLimitKind `yaml:"kind" json:"kind"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
}

// Endpoint is one upstream backend. An Endpoint whose Upstream does not
// contain "http" is a filesystem root, with Upstream as the served
// directory and TryFile as the SPA fallback.
type Endpoint struct {
	Upstream string `yaml:"upstream" json:"upstream"`
	TryFile  string `yaml:"try_file,omitempty" json:"try_file,omitempty"`
	Weight   int    `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// LoadBalancer is the uniform capability every cluster strategy exposes:
// given the request headers, pick one endpoint or report that the pool is
// exhausted/empty.
type LoadBalancer interface {
	GetRoute(headers map[string][]string) (*Endpoint, error)
}

// BaseResponse is the envelope every control-plane and data-plane error
// response uses: {response_code, response_object}.
type BaseResponse[T any] struct {
	ResponseCode   int `json:"response_code"`
	ResponseObject T   `json:"response_object"`
}
