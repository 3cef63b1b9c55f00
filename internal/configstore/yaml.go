package configstore

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/briarcliff/relaygate/internal/lb"
	"github.com/briarcliff/relaygate/internal/model"
)

// rawServices mirrors the wire format of spec §6: a top-level YAML list of
// ApiService records, decoded before being normalized into model types
// (cluster construction, UUID backfill) the way the teacher's
// internal/config.rawConfig intermediate struct is decoded before
// normalization.
type rawServices []rawApiService

type rawApiService struct {
	ServiceID     string           `yaml:"service_id"`
	ListenPort    uint16           `yaml:"listen_port"`
	ServiceConfig rawServiceConfig `yaml:"service_config"`
}

type rawServiceConfig struct {
	ServerType model.ServerType `yaml:"server_type"`
	CertPEM    string           `yaml:"cert_str"`
	KeyPEM     string           `yaml:"key_str"`
	Routes     []rawRoute       `yaml:"routes"`
}

type rawRoute struct {
	RouteID   string                 `yaml:"route_id"`
	HostName  string                 `yaml:"host_name"`
	Matcher   *model.Matcher         `yaml:"matcher"`
	Cluster   rawCluster             `yaml:"cluster"`
	ACL       []model.AclRule        `yaml:"acl"`
	Auth      *model.AuthPolicy      `yaml:"auth"`
	RateLimit *model.RateLimitPolicy `yaml:"ratelimit"`
}

type rawCluster struct {
	Type       lb.Kind          `yaml:"type"`
	HeaderName string           `yaml:"header_name"`
	Endpoints  []model.Endpoint `yaml:"endpoints"`
}

// ParseYAML decodes the top-level service list and normalizes it into
// []model.ApiService: missing UUIDs are backfilled and each route's cluster
// is constructed from its discriminated "type" tag.
func ParseYAML(data []byte) ([]model.ApiService, error) {
	var raw rawServices
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("configstore: parse yaml: %w", err)
	}

	services := make([]model.ApiService, 0, len(raw))
	for i, rs := range raw {
		serverType := rs.ServiceConfig.ServerType
		if serverType == "" {
			serverType = model.HTTP
		}
		svcCfg := model.ServiceConfig{
			ServerType: serverType,
			CertPEM:    rs.ServiceConfig.CertPEM,
			KeyPEM:     rs.ServiceConfig.KeyPEM,
		}
		if err := ValidateHTTPS(svcCfg); err != nil {
			return nil, fmt.Errorf("configstore: services[%d]: %w", i, err)
		}
		serviceID := rs.ServiceID
		if serviceID == "" {
			serviceID = uuid.NewString()
		}

		routes := make([]model.Route, 0, len(rs.ServiceConfig.Routes))
		for j, rr := range rs.ServiceConfig.Routes {
			routeID := rr.RouteID
			if routeID == "" {
				routeID = uuid.NewString()
			}
			cluster := lb.New(rr.Cluster.Type, rr.Cluster.Endpoints, lb.Options{HeaderName: rr.Cluster.HeaderName})
			if len(rr.Cluster.Endpoints) == 0 {
				return nil, fmt.Errorf("configstore: services[%d].routes[%d]: cluster has no endpoints", i, j)
			}
			routes = append(routes, model.Route{
				RouteID:   routeID,
				HostName:  rr.HostName,
				Matcher:   rr.Matcher,
				Cluster:   cluster,
				ACL:       rr.ACL,
				Auth:      rr.Auth,
				RateLimit: rr.RateLimit,
			})
		}

		services = append(services, model.ApiService{
			ServiceID:  serviceID,
			ListenPort: rs.ListenPort,
			ServiceConfig: model.ServiceConfig{
				ServerType: serverType,
				CertPEM:    rs.ServiceConfig.CertPEM,
				KeyPEM:     rs.ServiceConfig.KeyPEM,
				Routes:     routes,
			},
		})
	}
	return services, nil
}
