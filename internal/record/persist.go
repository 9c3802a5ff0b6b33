package record

import (
	"context"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/sqlgen"
)

// Store persists the record: update when a row with this identity
// already exists, create otherwise. The existence check costs an extra
// round trip but keeps create-vs-update decisions observable; an
// upsert would behave differently when the row is deleted between the
// check and the write.
func (r *Record) Store(ctx context.Context) bool {
	if r.AreKeysPopulated() && r.ExistsInDB(ctx) {
		return r.Update(ctx)
	}
	return r.Create(ctx)
}

// outValues collects the driver representation of the given bound
// attributes. Only attributes that have been assigned participate;
// never-assigned columns are left to their store defaults.
func (r *Record) outValues(attrNames []string) map[string]any {
	out := make(map[string]any, len(attrNames))
	for _, name := range attrNames {
		col, ok := r.binding.ColumnFor(name)
		if !ok || col.Generated {
			continue
		}
		v, assigned := r.attrs[name]
		if !assigned {
			continue
		}
		out[col.Attr] = attr.CoerceOut(col.Tag, v)
	}
	return out
}

// Create inserts the record. Identity must be populated unless the
// type's key is store-assigned, in which case the new id is adopted
// into the record. Clears the dirty set on success.
func (r *Record) Create(ctx context.Context) bool {
	if !r.AreKeysPopulated() && !r.binding.AutoKey {
		r.logError(&OpError{Code: ErrCodeIdentity, Type: r.def.Name, Message: "create requires a populated identity"})
		return false
	}

	values := r.outValues(r.binding.Attrs())
	query, params, err := sqlgen.Insert(r.binding, values)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "build insert", Err: err})
		return false
	}
	if _, err := r.env.Gateway.Run(ctx, query, params...); err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "insert rejected", Err: err})
		return false
	}

	if r.binding.AutoKey && !r.AreKeysPopulated() {
		keyAttr := r.binding.KeyAttrs[0]
		col, _ := r.binding.ColumnFor(keyAttr)
		v, cerr := attr.CoerceIn(col.Tag, r.env.Gateway.LastInsertID(), col.Nullable, col.Emptiable, r.env.Location)
		if cerr != nil {
			r.logError(&OpError{Code: ErrCodeCoercion, Type: r.def.Name, Attr: keyAttr, Message: "adopt generated id", Err: cerr})
		}
		r.attrs[keyAttr] = v
	}

	r.dirty = make(map[string]bool)
	r.loaded = true
	return true
}

// Update persists the named attribute subset (default: every assigned
// bound attribute) keyed by identity. Requires a fully populated
// identity. Clears the dirty set for the persisted attributes and
// refreshes this type/id entry in the shared cache when one exists.
func (r *Record) Update(ctx context.Context, subset ...string) bool {
	keyVals, populated := r.keyValues()
	if !populated {
		r.logError(&OpError{Code: ErrCodeIdentity, Type: r.def.Name, Message: "update requires a populated identity"})
		return false
	}

	if len(subset) == 0 {
		subset = r.binding.Attrs()
	}
	values := r.outValues(subset)
	query, params, err := sqlgen.UpdateByKey(r.binding, values, keyVals)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "build update", Err: err})
		return false
	}
	if _, err := r.env.Gateway.Run(ctx, query, params...); err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "update rejected", Err: err})
		return false
	}

	for name := range values {
		delete(r.dirty, name)
	}
	r.loaded = true
	r.env.Shared.Refresh(r.def.Name, r.GetID(), r)
	return true
}

// Delete removes the stored row by identity. On success every
// non-identity attribute is cleared and the record becomes unloaded;
// the identity values remain as placeholders.
func (r *Record) Delete(ctx context.Context) bool {
	keyVals, populated := r.keyValues()
	if !populated {
		r.logError(&OpError{Code: ErrCodeIdentity, Type: r.def.Name, Message: "delete requires a populated identity"})
		return false
	}
	query, params, err := sqlgen.DeleteByKey(r.binding, keyVals)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "build delete", Err: err})
		return false
	}
	if _, err := r.env.Gateway.Run(ctx, query, params...); err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "delete rejected", Err: err})
		return false
	}

	identity := make(map[string]attr.Value, len(r.binding.KeyAttrs))
	for _, keyAttr := range r.binding.KeyAttrs {
		if v, ok := r.attrs[keyAttr]; ok {
			identity[keyAttr] = v
		}
	}
	r.attrs = identity
	r.dynamic = make(map[string]attr.Value)
	r.dirty = make(map[string]bool)
	r.loaded = false
	return true
}

// Reload re-reads the current identity from the store, discarding all
// non-identity attribute state. The instance cache survives.
func (r *Record) Reload(ctx context.Context) bool {
	keyVals, populated := r.keyValues()
	if !populated {
		r.logError(&OpError{Code: ErrCodeIdentity, Type: r.def.Name, Message: "reload requires a populated identity"})
		return false
	}
	row, err := r.fetchByKey(ctx, keyVals)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "reload failed", Err: err})
		return false
	}
	if row == nil {
		r.loaded = false
		return false
	}
	r.populate(row)
	return true
}

// ExistsInDB probes the store for a row with this record's identity,
// independent of in-memory state.
func (r *Record) ExistsInDB(ctx context.Context) bool {
	keyVals, populated := r.keyValues()
	if !populated {
		return false
	}
	query, params, err := sqlgen.CountByKey(r.binding, keyVals)
	if err != nil {
		return false
	}
	n, err := r.env.Gateway.LoadScalar(ctx, query, params...)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "existence probe failed", Err: err})
		return false
	}
	count, _ := n.(int64)
	return count > 0
}

// HasChanged loads a fresh instance by this record's identity and
// compares every bound attribute. The full reload is deliberate: a
// dirty-set shortcut would miss rows mutated out-of-process since
// load.
func (r *Record) HasChanged(ctx context.Context) bool {
	keyVals, populated := r.keyValues()
	if !populated {
		return false
	}
	fresh, err := ByKey(ctx, r.env, r.def.Name, keyVals...)
	if err != nil {
		r.logError(&OpError{Code: ErrCodePersistence, Type: r.def.Name, Message: "reload for comparison failed", Err: err})
		return false
	}
	if !fresh.IsLoaded() {
		// The row vanished; that counts as changed for a loaded record.
		return r.loaded
	}
	for _, name := range r.binding.Attrs() {
		current, ok := r.attrs[name]
		if !ok {
			current = attr.Null{}
		}
		if !attr.Equal(current, fresh.Get(name)) {
			return true
		}
	}
	return false
}
