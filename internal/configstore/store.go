// Package configstore implements the Config Store (spec §4.E): the
// process-wide AppConfig singleton, populated once from environment
// variables and an optional YAML file at startup, and mutated thereafter
// by the (out-of-scope) control plane's wholesale service replacement and
// by the config-file watcher's reloads (WatchConfigFile).
package configstore

import (
	"fmt"
	"os"
	"sync"

	"github.com/briarcliff/relaygate/internal/model"
)

const defaultAdminPort = "8870"

// Store holds AppConfig under a single-writer/multi-reader discipline: many
// goroutines may call Snapshot concurrently, while ReplaceServices and the
// loader calls take the write lock (writers are the startup loader, the
// config-file watcher, and the control plane handler).
type Store struct {
	mu  sync.RWMutex
	cfg model.AppConfig
}

// New returns an empty Store; call LoadEnv and LoadConfigFile to populate
// it before starting the Reconciler.
func New() *Store {
	return &Store{}
}

// LoadEnv reads DATABASE_URL, ADMIN_PORT (default "8870"), ACCESS_LOG, and
// CONFIG_FILE_PATH once. Per spec §5, this and every other blocking startup
// read must complete before the Reconciler's first pass.
func (s *Store) LoadEnv() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Static = model.StaticConfig{
		AdminPort:      defaultAdminPort,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AccessLogPath:  os.Getenv("ACCESS_LOG"),
		ConfigFilePath: os.Getenv("CONFIG_FILE_PATH"),
	}
	if v := os.Getenv("ADMIN_PORT"); v != "" {
		s.cfg.Static.AdminPort = v
	}
}

// LoadConfigFile parses the YAML file at Static.ConfigFilePath, if set, and
// installs its services as the initial desired state. A no-op when no path
// was configured.
func (s *Store) LoadConfigFile() error {
	s.mu.RLock()
	path := s.cfg.Static.ConfigFilePath
	s.mu.RUnlock()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("configstore: read config file: %w", err)
	}
	services, err := ParseYAML(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.Services = services
	s.mu.Unlock()
	return nil
}

// Static returns a copy of the immutable static configuration.
func (s *Store) Static() model.StaticConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Static
}

// Services returns the current desired service list. The Reconciler calls
// this once per pass; the returned slice must be treated as a read-only
// view — callers that need to mutate take a copy.
func (s *Store) Services() []model.ApiService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ApiService, len(s.cfg.Services))
	copy(out, s.cfg.Services)
	return out
}

// Snapshot returns a copy of the whole desired state, used by the (out of
// scope) GET /appConfig contract.
func (s *Store) Snapshot() model.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.cfg
	cfg.Services = make([]model.ApiService, len(s.cfg.Services))
	copy(cfg.Services, s.cfg.Services)
	return cfg
}

// ReplaceServices installs a new desired service list wholesale, the
// contract POST /appConfig imposes on the core (spec §4.E, §6). The caller
// is responsible for validating HTTPS cert/key pairs first — see
// ValidateHTTPS.
func (s *Store) ReplaceServices(services []model.ApiService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Services = services
}

// Reset restores the Store to its zero state. Tests use this so
// process-wide state doesn't leak between cases; production code never
// calls it (spec §9: "in tests, provide a reset hook").
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = model.AppConfig{}
}
