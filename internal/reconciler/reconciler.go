// Package reconciler implements the control loop described in spec §4.D:
// every 5 seconds it diffs the Config Store's desired service set against
// the Service Manager Table's running set, tears down retired listeners,
// hot-updates the route snapshot of listeners that survive a revision,
// and spawns workers for newly desired listeners.
package reconciler

import (
	"context"
	"log"
	"time"

	"github.com/briarcliff/relaygate/internal/configstore"
	"github.com/briarcliff/relaygate/internal/listener"
	"github.com/briarcliff/relaygate/internal/manager"
	"github.com/briarcliff/relaygate/internal/model"
)

// Interval is how often Run drives a pass (spec §4.D: "one pass every 5s").
const Interval = 5 * time.Second

// shutdownChanCap is the bounded capacity of every spawned entry's
// shutdown channel (spec §4.D: "capacity 10 suffices").
const shutdownChanCap = 10

// Spawner binds and serves a listener for one manager entry. RunHTTP,
// RunHTTPS, and RunTCP (package listener) all satisfy this signature; a
// test can substitute a fake to observe what the Reconciler would have
// spawned without opening real sockets.
type Spawner func(ctx context.Context, listenerKey string, port uint16, entry *manager.Entry, deps listener.Deps) error

// desiredEntry pairs a listener's bind port with the ServiceConfig the
// Config Store currently wants running under that (port, server_type)
// identity.
type desiredEntry struct {
	port uint16
	cfg  model.ServiceConfig
}

// Reconciler owns the diff-and-mutate loop. It holds no desired/running
// state itself beyond what Store and Table already hold, so a Pass is a
// pure function of their contents at the time it runs.
type Reconciler struct {
	Store *configstore.Store
	Table *manager.Table
	Deps  listener.Deps

	spawn func(st model.ServerType) Spawner
}

// New wires a Reconciler against the given Store, Table, and shared
// listener dependencies, dispatching each ServerType to its real worker.
func New(store *configstore.Store, table *manager.Table, deps listener.Deps) *Reconciler {
	return &Reconciler{
		Store: store,
		Table: table,
		Deps:  deps,
		spawn: defaultSpawnerFor,
	}
}

func defaultSpawnerFor(st model.ServerType) Spawner {
	switch st {
	case model.HTTPS:
		return listener.RunHTTPS
	case model.TCP:
		return listener.RunTCP
	default:
		return listener.RunHTTP
	}
}

// Run blocks, driving one Pass immediately and then every Interval, until
// ctx is cancelled. Each pass's panics are caught so a single bad revision
// never kills the loop (spec §4.D).
func (r *Reconciler) Run(ctx context.Context) {
	r.safePass(ctx)
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.safePass(ctx)
		}
	}
}

func (r *Reconciler) safePass(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("reconciler: pass panicked, recovering: %v", rec)
		}
	}()
	r.Pass(ctx)
}

// Pass runs exactly one reconciliation pass (spec §4.D steps 1-3):
// removals before additions, hot-update in place for survivors, spawn for
// newcomers.
func (r *Reconciler) Pass(ctx context.Context) {
	desired := buildDesired(r.Store.Services())

	for _, key := range r.Table.Keys() {
		if _, ok := desired[key]; ok {
			continue
		}
		entry, ok := r.Table.Get(key)
		if ok {
			select {
			case entry.ShutdownCh <- struct{}{}:
			default:
				log.Printf("reconciler: shutdown channel full or unreceived for %s", key)
			}
		}
		r.Table.Delete(key)
	}

	for key, de := range desired {
		if entry, ok := r.Table.Get(key); ok {
			entry.UpdateIfChanged(de.cfg)
			continue
		}

		entry := manager.NewEntry(de.cfg, shutdownChanCap)
		r.Table.Set(key, entry)

		spawn := r.spawn(de.cfg.ServerType)
		go func(key string, port uint16, entry *manager.Entry) {
			if err := spawn(ctx, key, port, entry, r.Deps); err != nil {
				log.Printf("reconciler: listener %s: %v", key, err)
			}
		}(key, de.port, entry)
	}
}

// buildDesired keys every configured service by its (port, server_type)
// listener identity. A duplicate key is a data-model violation: it is
// logged and the later entry wins, matching map-assignment semantics.
func buildDesired(services []model.ApiService) map[string]desiredEntry {
	desired := make(map[string]desiredEntry, len(services))
	for _, svc := range services {
		key := model.ListenerKey(svc.ListenPort, svc.ServiceConfig.ServerType)
		if _, exists := desired[key]; exists {
			log.Printf("reconciler: duplicate listener key %s in desired state, last write wins", key)
		}
		desired[key] = desiredEntry{port: svc.ListenPort, cfg: svc.ServiceConfig}
	}
	return desired
}
