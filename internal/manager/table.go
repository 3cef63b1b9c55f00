// Package manager implements the Service Manager Table (spec §4.C): a
// process-wide map from listener key to the live route snapshot and
// shutdown signal a Listener Worker reads on every request. Reads never
// block writers and never observe a torn snapshot.
package manager

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/briarcliff/relaygate/internal/model"
)

// Entry is one row of the table: the atomically-published route snapshot
// for a listener, and the channel its worker watches for a shutdown
// signal.
type Entry struct {
	snapshot   atomic.Pointer[[]model.Route]
	cfgMu      sync.Mutex
	lastCfg    model.ServiceConfig
	ShutdownCh chan struct{}
	ServerType model.ServerType
	CertPEM    string
	KeyPEM     string
}

// NewEntry builds an Entry with the given initial route snapshot and a
// shutdown channel of the given buffer capacity (spec §4.D: capacity 10
// suffices).
func NewEntry(cfg model.ServiceConfig, shutdownCap int) *Entry {
	e := &Entry{
		ShutdownCh: make(chan struct{}, shutdownCap),
		ServerType: cfg.ServerType,
		CertPEM:    cfg.CertPEM,
		KeyPEM:     cfg.KeyPEM,
		lastCfg:    cfg,
	}
	e.PublishSnapshot(cfg.Routes)
	return e
}

// PublishSnapshot atomically replaces the entry's route table. Readers
// either see the whole old slice or the whole new slice, never a mix.
func (e *Entry) PublishSnapshot(routes []model.Route) {
	cp := make([]model.Route, len(routes))
	copy(cp, routes)
	e.snapshot.Store(&cp)
}

// UpdateIfChanged republishes the entry's route snapshot only when cfg
// differs from the configuration last applied to this entry. A reconciler
// pass against an unchanged desired state must leave Snapshot's pointer
// untouched (spec.md's idempotent-reconfigure property): calling
// PublishSnapshot unconditionally would allocate and swap in a new,
// merely-equal slice on every pass, breaking pointer equality for no
// reason.
func (e *Entry) UpdateIfChanged(cfg model.ServiceConfig) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	if reflect.DeepEqual(e.lastCfg, cfg) {
		return
	}
	e.lastCfg = cfg
	e.PublishSnapshot(cfg.Routes)
}

// Snapshot returns the currently published route table. The returned
// slice must be treated as immutable by the caller.
func (e *Entry) Snapshot() []model.Route {
	p := e.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Table is the concurrent listener-key -> Entry map. Inserts, removes, and
// per-entry snapshot swaps are each individually atomic; the Reconciler is
// the sole writer of the map's key set, so no write-write race on
// insert/delete exists, but reads from Listener Workers must never block
// on those writes.
type Table struct {
	mu   sync.RWMutex
	rows map[string]*Entry
}

func New() *Table {
	return &Table{rows: make(map[string]*Entry)}
}

// Get returns the entry for key and whether it exists.
func (t *Table) Get(key string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.rows[key]
	return e, ok
}

// Set inserts or replaces the entry for key.
func (t *Table) Set(key string, e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[key] = e
}

// Delete removes the entry for key, if present.
func (t *Table) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, key)
}

// Keys returns a snapshot of the current key set.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of rows currently in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
