package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/gateway"
	"github.com/gorecord/gorecord/internal/schema"
	"github.com/gorecord/gorecord/internal/sqlgen"
)

// Record is one entity instance of a runtime-discovered type. It holds
// coerced attribute values, identity, a dirty set, a per-instance
// cache, and an append-only error log. All persistence flows through
// the env's gateway; Record itself never builds SQL.
type Record struct {
	env     *Env
	def     *schema.Definition
	binding *schema.Binding

	// attrs holds bound attribute values. Absence means "never
	// assigned", which is distinct from an explicit Null.
	attrs map[string]attr.Value
	// dynamic holds ad-hoc attributes picked up from query projections
	// or unknown Set names. Never persisted, never dirty-tracked.
	dynamic map[string]attr.Value
	dirty   map[string]bool
	loaded  bool
	cache   map[string]any
	errLog  []string
}

// New constructs an empty, unloaded record of the given type. The only
// hard failures out of any constructor are configuration errors:
// unknown type, missing table, broken binding.
func New(ctx context.Context, env *Env, typeName string) (*Record, error) {
	def, ok := env.Registry.DefinitionFor(typeName)
	if !ok {
		return nil, fmt.Errorf("record: unknown type %q", typeName)
	}
	binding, err := env.Catalog.BindingFor(ctx, def)
	if err != nil {
		return nil, err
	}
	return &Record{
		env:     env,
		def:     def,
		binding: binding,
		attrs:   make(map[string]attr.Value),
		dynamic: make(map[string]attr.Value),
		dirty:   make(map[string]bool),
		cache:   make(map[string]any),
	}, nil
}

// FromRow constructs a record from a raw store row. Every bound
// attribute is populated through coercion; extra projected columns
// become dynamic attributes. The record is loaded.
func FromRow(ctx context.Context, env *Env, typeName string, row gateway.Row) (*Record, error) {
	r, err := New(ctx, env, typeName)
	if err != nil {
		return nil, err
	}
	r.populate(row)
	return r, nil
}

// ByKey constructs a record by identity, attempting a store read. On a
// hit the record behaves as if built from the row; on a miss only the
// identity attributes are assigned and the record stays unloaded.
// The number of key values must match the type's key arity.
func ByKey(ctx context.Context, env *Env, typeName string, keyVals ...any) (*Record, error) {
	r, err := New(ctx, env, typeName)
	if err != nil {
		return nil, err
	}
	if len(keyVals) != len(r.binding.KeyAttrs) {
		return nil, fmt.Errorf("record: %s has key arity %d, got %d values",
			typeName, len(r.binding.KeyAttrs), len(keyVals))
	}
	row, err := r.fetchByKey(ctx, keyVals)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: typeName, Message: "load by identity failed", Err: err})
	}
	if row != nil {
		r.populate(row)
		return r, nil
	}
	for i, keyAttr := range r.binding.KeyAttrs {
		col, _ := r.binding.ColumnFor(keyAttr)
		v, cerr := attr.CoerceIn(col.Tag, keyVals[i], col.Nullable, col.Emptiable, env.Location)
		if cerr != nil {
			r.logError(&OpError{Code: ErrCodeCoercion, Type: typeName, Attr: keyAttr, Message: "identity value", Err: cerr})
		}
		r.attrs[keyAttr] = v
	}
	return r, nil
}

func (r *Record) fetchByKey(ctx context.Context, keyVals []any) (gateway.Row, error) {
	query, params, err := sqlgen.SelectByKey(r.binding, keyVals)
	if err != nil {
		return nil, err
	}
	return r.env.Gateway.LoadRow(ctx, query, params...)
}

// populate resets attribute state from a raw row.
func (r *Record) populate(row gateway.Row) {
	r.attrs = make(map[string]attr.Value, len(r.binding.Columns))
	r.dynamic = make(map[string]attr.Value)
	r.dirty = make(map[string]bool)
	for colName, raw := range row {
		if col, ok := r.binding.ColumnByName(colName); ok {
			v, err := attr.CoerceIn(col.Tag, raw, col.Nullable, col.Emptiable, r.env.Location)
			if err != nil {
				r.logError(&OpError{Code: ErrCodeCoercion, Type: r.def.Name, Attr: col.Attr, Message: "stored value", Err: err})
			}
			r.attrs[col.Attr] = v
			continue
		}
		// Extra projected column.
		r.dynamic[schema.AttrName(colName)] = attr.Wrap(raw)
	}
	r.loaded = true
}

// Type returns the entity type name.
func (r *Record) Type() string { return r.def.Name }

// Table returns the backing table name.
func (r *Record) Table() string { return r.binding.Table }

// Binding exposes the attribute/column binding of this record's type.
func (r *Record) Binding() *schema.Binding { return r.binding }

// IsLoaded reports whether the instance reflects a real stored row.
func (r *Record) IsLoaded() bool { return r.loaded }

// Get returns the current value of a bound or dynamic attribute.
// Unknown names yield Null and a logged diagnostic; reads never fail
// hard.
func (r *Record) Get(name string) attr.Value {
	if r.binding.HasAttr(name) {
		if v, ok := r.attrs[name]; ok {
			return v
		}
		return attr.Null{}
	}
	if v, ok := r.dynamic[name]; ok {
		return v
	}
	r.logError(&OpError{Code: ErrCodeUnknownAttr, Type: r.def.Name, Attr: name, Message: "attribute is not bound or dynamic"})
	return attr.Null{}
}

// GetGo returns Get(name) unwrapped to its plain Go representation.
func (r *Record) GetGo(name string) any {
	return attr.GoValue(r.Get(name))
}

// Set assigns an attribute. Bound attributes coerce to their declared
// type and join the dirty set on change; writes to generated columns
// are refused; unknown names become dynamic attributes.
func (r *Record) Set(name string, value any) {
	col, bound := r.binding.ColumnFor(name)
	if !bound {
		r.dynamic[name] = attr.Wrap(value)
		return
	}
	if col.Generated {
		r.logError(&OpError{Code: ErrCodeGeneratedAttr, Type: r.def.Name, Attr: name, Message: "column is generated by the store"})
		return
	}
	v, err := attr.CoerceIn(col.Tag, value, col.Nullable, col.Emptiable, r.env.Location)
	if err != nil {
		r.logError(&OpError{Code: ErrCodeCoercion, Type: r.def.Name, Attr: name, Message: "set value", Err: err})
	}
	prev, had := r.attrs[name]
	if had && attr.Equal(prev, v) {
		return
	}
	r.attrs[name] = v
	r.dirty[name] = true
}

// Dirty returns the attributes mutated since load or the last
// successful persist, in no particular order.
func (r *Record) Dirty() []string {
	out := make([]string, 0, len(r.dirty))
	for name := range r.dirty {
		out = append(out, name)
	}
	return out
}

// IsDirty reports whether the attribute is in the dirty set.
func (r *Record) IsDirty(name string) bool { return r.dirty[name] }

// keyValues returns the identity values in key order and whether the
// identity is fully populated. Null counts as unpopulated, and so does
// the empty string unless the key column is emptiable; partial
// identity is invalid for keyed operations.
func (r *Record) keyValues() ([]any, bool) {
	vals := make([]any, len(r.binding.KeyAttrs))
	populated := true
	for i, keyAttr := range r.binding.KeyAttrs {
		col, _ := r.binding.ColumnFor(keyAttr)
		v, ok := r.attrs[keyAttr]
		if !ok || attr.IsNull(v) {
			populated = false
			continue
		}
		if s, isStr := v.(attr.String); isStr && s == "" && !col.Emptiable {
			populated = false
			continue
		}
		vals[i] = attr.CoerceOut(col.Tag, v)
	}
	return vals, populated
}

// AreKeysPopulated reports whether every identity attribute has a
// non-empty value.
func (r *Record) AreKeysPopulated() bool {
	_, ok := r.keyValues()
	return ok
}

// GetID returns the identity: a scalar for single-key types, an
// ordered slice for compound keys. Nil (or nil elements) when the
// identity is not populated.
func (r *Record) GetID() any {
	vals, _ := r.keyValues()
	if len(vals) == 1 {
		return vals[0]
	}
	return vals
}

// AddError appends a diagnostic to the record's error log.
func (r *Record) AddError(msg string) {
	r.errLog = append(r.errLog, msg)
}

// Errors returns the accumulated error log, oldest first.
func (r *Record) Errors() []string {
	out := make([]string, len(r.errLog))
	copy(out, r.errLog)
	return out
}

// LastError returns the most recent diagnostic, or "".
func (r *Record) LastError() string {
	if len(r.errLog) == 0 {
		return ""
	}
	return r.errLog[len(r.errLog)-1]
}

// ResetErrors clears the error log.
func (r *Record) ResetErrors() {
	r.errLog = nil
}

func (r *Record) logError(err *OpError) {
	r.AddError(err.Error())
	r.env.Logger.Debug("record error", "code", string(err.Code), "type", err.Type, "attr", err.Attr, "err", err.Err)
}

// CacheSet stores a named value in the per-instance cache.
func (r *Record) CacheSet(name string, value any) {
	r.cache[name] = value
}

// CacheGet returns a named cache slot.
func (r *Record) CacheGet(name string) (any, bool) {
	v, ok := r.cache[name]
	return v, ok
}

// CacheHas reports whether a cache slot is set.
func (r *Record) CacheHas(name string) bool {
	_, ok := r.cache[name]
	return ok
}

// CacheDelete removes a cache slot.
func (r *Record) CacheDelete(name string) {
	delete(r.cache, name)
}

// MarshalJSON serializes the bound attributes only: dynamic
// attributes, caches, and diagnostics stay out of the wire view.
func (r *Record) MarshalJSON() ([]byte, error) {
	view := make(map[string]attr.Value, len(r.binding.Columns))
	for _, col := range r.binding.Columns {
		if v, ok := r.attrs[col.Attr]; ok {
			view[col.Attr] = v
		} else {
			view[col.Attr] = attr.Null{}
		}
	}
	return json.Marshal(view)
}
