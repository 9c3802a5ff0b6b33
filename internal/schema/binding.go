package schema

import (
	"sort"
	"strings"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/gateway"
)

// Column is one entry of a Binding: the attribute/column pair plus the
// per-column flags the engine consults on every read and write.
type Column struct {
	Attr       string
	Name       string // physical column name
	DeclType   string // declared SQL type as reported by the store
	Tag        attr.TypeTag
	Nullable   bool
	Emptiable  bool
	Key        bool
	KeyOrdinal int // 1-based position within a compound key
	Generated  bool
	HasDefault bool
	Encrypted  bool
}

// Binding is the immutable attribute/column bijection of one entity
// type. Computed once per type and cached for the process lifetime;
// the schema does not change underneath a running engine.
type Binding struct {
	Table   string
	Columns []Column // table declaration order

	byAttr map[string]int
	byCol  map[string]int

	// KeyAttrs are the identity attributes in key order. Length 1 for
	// simple keys, >1 for compound keys.
	KeyAttrs []string
	// AutoKey is true for a single integer key the store assigns on
	// insert.
	AutoKey bool
}

// NewBinding computes a binding from introspected column metadata.
// Callers normally go through Catalog.BindingFor, which memoizes.
func NewBinding(table string, def *Definition, metas []gateway.ColumnMeta) (*Binding, error) {
	b := &Binding{
		Table:  table,
		byAttr: make(map[string]int, len(metas)),
		byCol:  make(map[string]int, len(metas)),
	}

	type keyEntry struct {
		attr    string
		ordinal int
	}
	var keys []keyEntry

	for _, meta := range metas {
		attrName := AttrName(meta.Name)
		if prev, dup := b.byAttr[attrName]; dup {
			return nil, &BindingError{
				Table:   table,
				Message: "attribute name collision: columns " + b.Columns[prev].Name + " and " + meta.Name + " both map to " + attrName,
			}
		}
		col := Column{
			Attr:       attrName,
			Name:       meta.Name,
			DeclType:   meta.DeclType,
			Tag:        def.TagFor(attrName),
			Nullable:   meta.Nullable,
			Emptiable:  def.Emptiable[attrName],
			Key:        meta.PrimaryKey,
			KeyOrdinal: meta.KeyOrdinal,
			Generated:  meta.Generated,
			HasDefault: meta.HasDefault,
			Encrypted:  def.Encrypted[attrName],
		}
		b.byAttr[attrName] = len(b.Columns)
		b.byCol[meta.Name] = len(b.Columns)
		b.Columns = append(b.Columns, col)
		if meta.PrimaryKey {
			keys = append(keys, keyEntry{attr: attrName, ordinal: meta.KeyOrdinal})
		}
	}

	if len(keys) == 0 {
		return nil, &BindingError{Table: table, Message: "table has no primary key"}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ordinal < keys[j].ordinal })
	for _, k := range keys {
		b.KeyAttrs = append(b.KeyAttrs, k.attr)
	}

	// A single integer key is assigned by the store on insert.
	if len(b.KeyAttrs) == 1 {
		col, _ := b.ColumnFor(b.KeyAttrs[0])
		b.AutoKey = strings.Contains(strings.ToUpper(col.DeclType), "INT")
	}

	return b, nil
}

// ColumnFor returns the column bound to an attribute name.
func (b *Binding) ColumnFor(attrName string) (Column, bool) {
	i, ok := b.byAttr[attrName]
	if !ok {
		return Column{}, false
	}
	return b.Columns[i], true
}

// ColumnByName returns the column entry for a physical column name.
func (b *Binding) ColumnByName(column string) (Column, bool) {
	i, ok := b.byCol[column]
	if !ok {
		return Column{}, false
	}
	return b.Columns[i], true
}

// HasAttr reports whether the attribute is bound.
func (b *Binding) HasAttr(attrName string) bool {
	_, ok := b.byAttr[attrName]
	return ok
}

// Attrs returns every bound attribute name in column order.
func (b *Binding) Attrs() []string {
	out := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		out[i] = col.Attr
	}
	return out
}

// BindingError reports an unrecoverable binding configuration problem.
type BindingError struct {
	Table   string
	Message string
}

func (e *BindingError) Error() string {
	return "binding " + e.Table + ": " + e.Message
}
