package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorecord/gorecord/internal/gateway"
)

// Catalog memoizes the Binding of every entity type, introspecting the
// store once per type on first use. Safe for concurrent use; a binding
// is computed at most once.
type Catalog struct {
	gw     *gateway.Gateway
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[string]*Binding // keyed by definition name
}

// NewCatalog creates an empty catalog over the given gateway.
func NewCatalog(gw *gateway.Gateway, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		gw:       gw,
		logger:   logger,
		bindings: make(map[string]*Binding),
	}
}

// BindingFor returns the binding for a definition, computing and
// caching it on first call. A missing table is an unrecoverable
// configuration error and is returned, never defaulted around.
func (c *Catalog) BindingFor(ctx context.Context, def *Definition) (*Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bindings[def.Name]; ok {
		return b, nil
	}

	metas, err := c.gw.DescribeTable(ctx, def.Table)
	if err != nil {
		return nil, fmt.Errorf("binding for %s: %w", def.Name, err)
	}
	b, err := NewBinding(def.Table, def, metas)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("computed binding",
		"type", def.Name,
		"table", def.Table,
		"columns", len(b.Columns),
		"keyArity", len(b.KeyAttrs))
	c.bindings[def.Name] = b
	return b, nil
}

// Gateway exposes the catalog's gateway for collaborators that need
// foreign-key introspection alongside bindings.
func (c *Catalog) Gateway() *gateway.Gateway { return c.gw }
