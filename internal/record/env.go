// Package record implements the generic record-persistence engine: a
// runtime-typed entity that loads, mutates, relates, and persists
// itself against a relational store through an introspected binding,
// with no per-entity SQL or binding code.
package record

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gorecord/gorecord/internal/gateway"
	"github.com/gorecord/gorecord/internal/schema"
)

// Registry maps entity type names to their definitions, and backing
// tables back to type names for relation resolution.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*schema.Definition
	byTable map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*schema.Definition),
		byTable: make(map[string]string),
	}
}

// Register adds a definition. Duplicate type names and duplicate
// tables are configuration errors.
func (r *Registry) Register(def *schema.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[def.Name]; dup {
		return fmt.Errorf("register %s: type already registered", def.Name)
	}
	if owner, dup := r.byTable[def.Table]; dup {
		return fmt.Errorf("register %s: table %s already bound to %s", def.Name, def.Table, owner)
	}
	r.byName[def.Name] = def
	r.byTable[def.Table] = def.Name
	return nil
}

// DefinitionFor returns the definition registered under a type name.
func (r *Registry) DefinitionFor(name string) (*schema.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeForTable returns the type name bound to a table.
func (r *Registry) TypeForTable(table string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byTable[table]
	return name, ok
}

// Env is the explicit context every record carries: the gateway, the
// schema catalog, the type registry, the shared cache, logging, and
// the active time zone. Its lifetime is the request or process that
// owns it; nothing in this package reaches for globals.
type Env struct {
	Gateway  *gateway.Gateway
	Catalog  *schema.Catalog
	Registry *Registry
	Shared   *SharedCache
	Logger   *slog.Logger
	Location *time.Location

	// SessionID tags every log line of this env, for correlating the
	// records of one unit of work.
	SessionID string
}

// NewEnv assembles an environment over an open gateway.
func NewEnv(gw *gateway.Gateway, reg *Registry, logger *slog.Logger, loc *time.Location) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if reg == nil {
		reg = NewRegistry()
	}
	id := uuid.NewString()
	logger = logger.With("session", id)
	return &Env{
		Gateway:   gw,
		Catalog:   schema.NewCatalog(gw, logger),
		Registry:  reg,
		Shared:    NewSharedCache(),
		Logger:    logger,
		Location:  loc,
		SessionID: id,
	}
}
