package record

import (
	"context"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/schema"
)

// relationTarget resolves where a forward relation attribute points:
// first the type's declared relations, then the store's introspected
// foreign keys. A nil result means no mapping could be found; the
// reason is already on the error log.
func (r *Record) relationTarget(ctx context.Context, attrName string) (targetType, targetAttr string, shared bool, ok bool) {
	col, bound := r.binding.ColumnFor(attrName)
	if !bound {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "no bound attribute named " + attrName})
		return "", "", false, false
	}

	if rel, declared := r.def.RelationFor(attrName); declared && !rel.Inverse {
		return rel.TargetType, rel.TargetAttr, rel.Shared, true
	}

	fks, err := r.env.Gateway.ForeignKeys(ctx, r.binding.Table)
	if err != nil {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "foreign key introspection failed", Err: err})
		return "", "", false, false
	}
	for _, fk := range fks {
		if fk.FromColumn != col.Name {
			continue
		}
		typeName, registered := r.env.Registry.TypeForTable(fk.RefTable)
		if !registered {
			r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
				Message: "no registered type for table " + fk.RefTable})
			return "", "", false, false
		}
		targetAttr = ""
		if fk.RefColumn != "" {
			targetAttr = schema.AttrName(fk.RefColumn)
		}
		return typeName, targetAttr, false, true
	}

	r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
		Message: "no foreign key mapping for attribute " + attrName})
	return "", "", false, false
}

// GetRelated resolves the forward relation rooted at an attribute: the
// record on the referenced side of the foreign key. Missing mappings
// and unregistered target types yield nil with a logged diagnostic,
// never a hard failure. Shared relations go through the shared cache.
func (r *Record) GetRelated(ctx context.Context, attrName string) *Record {
	targetType, targetAttr, shared, ok := r.relationTarget(ctx, attrName)
	if !ok {
		return nil
	}

	fkValue := r.Get(attrName)
	if attr.IsNull(fkValue) {
		return nil
	}
	id := driverValue(fkValue)

	targetIsKeyed := targetAttr == ""
	if !targetIsKeyed {
		// A declared target attribute that happens to be the target's
		// key still takes the identity path (and cache eligibility).
		if def, registered := r.env.Registry.DefinitionFor(targetType); registered {
			if binding, err := r.env.Catalog.BindingFor(ctx, def); err == nil {
				targetIsKeyed = len(binding.KeyAttrs) == 1 && binding.KeyAttrs[0] == targetAttr
			}
		}
	}

	if !targetIsKeyed {
		return r.loadOneBy(ctx, targetType, targetAttr, id)
	}

	if shared {
		if cached := r.env.Shared.Get(targetType, id); cached != nil {
			return cached
		}
	}
	related, err := ByKey(ctx, r.env, targetType, id)
	if err != nil {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "constructing related " + targetType, Err: err})
		return nil
	}
	if !related.IsLoaded() {
		return nil
	}
	if shared {
		r.env.Shared.Put(targetType, id, related)
	}
	return related
}

// loadOneBy fetches the first record of a type whose attribute equals
// the given value.
func (r *Record) loadOneBy(ctx context.Context, typeName, attrName string, value any) *Record {
	matches, err := r.env.GetAllObjects(ctx, typeName, map[string]any{attrName: value}, nil)
	if err != nil {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "loading related " + typeName, Err: err})
		return nil
	}
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// GetRelatedMany resolves the inverse side of a relation: every record
// of targetType whose foreign column points at this record's value of
// attrName. targetType may be empty when the relation is declared on
// this type.
func (r *Record) GetRelatedMany(ctx context.Context, attrName, targetType string) []*Record {
	var targetAttr string

	if rel, declared := r.def.RelationFor(attrName); declared && rel.Inverse {
		if targetType == "" {
			targetType = rel.TargetType
		}
		targetAttr = rel.TargetAttr
	}

	if targetType == "" {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "inverse relation needs a target type for attribute " + attrName})
		return nil
	}
	targetDef, registered := r.env.Registry.DefinitionFor(targetType)
	if !registered {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "no registered type named " + targetType})
		return nil
	}

	col, bound := r.binding.ColumnFor(attrName)
	if !bound {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "no bound attribute named " + attrName})
		return nil
	}

	if targetAttr == "" {
		// Discover the target's column referencing us from the store.
		invs, err := r.env.Gateway.InverseForeignKeys(ctx, r.binding.Table)
		if err != nil {
			r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
				Message: "inverse foreign key introspection failed", Err: err})
			return nil
		}
		for _, inv := range invs {
			if inv.FromTable != targetDef.Table {
				continue
			}
			if inv.RefColumn != "" && inv.RefColumn != col.Name {
				continue
			}
			if inv.RefColumn == "" && !col.Key {
				continue
			}
			targetAttr = schema.AttrName(inv.FromColumn)
			break
		}
	}
	if targetAttr == "" {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "no foreign key mapping for attribute " + attrName})
		return nil
	}

	value := r.Get(attrName)
	if attr.IsNull(value) {
		return nil
	}
	matches, err := r.env.GetAllObjects(ctx, targetType, map[string]any{targetAttr: value}, nil)
	if err != nil {
		r.logError(&OpError{Code: ErrCodeRelationMapping, Type: r.def.Name, Attr: attrName,
			Message: "loading related " + targetType, Err: err})
		return nil
	}
	return matches
}

// GetRelatedProperty resolves the forward relation and reads one of
// the related record's attributes. Null when the relation does not
// resolve.
func (r *Record) GetRelatedProperty(ctx context.Context, attrName, property string) attr.Value {
	related := r.GetRelated(ctx, attrName)
	if related == nil {
		return attr.Null{}
	}
	return related.Get(property)
}
