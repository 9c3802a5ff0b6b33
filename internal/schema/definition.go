// Package schema derives and caches the binding between entity types
// and their backing tables: column metadata from the store, attribute
// naming, declared type tags, and relation declarations.
package schema

import "github.com/gorecord/gorecord/internal/attr"

// Definition declares an entity type: the table it binds to and the
// metadata the store cannot provide (semantic type tags, encrypted
// attributes, relations). Definitions come from CUE files or are built
// in code; they are immutable once registered.
type Definition struct {
	// Name identifies the type in the registry, e.g. "User".
	Name string
	// Table is the backing table name.
	Table string
	// Types maps attribute names to their declared semantic tags.
	// Attributes absent here default to the string tag.
	Types map[string]attr.TypeTag
	// Encrypted lists attributes stored through the encryption boundary.
	Encrypted map[string]bool
	// Emptiable lists attributes for which the empty string is a
	// legitimate stored value rather than an absent one.
	Emptiable map[string]bool
	// Relations are the statically declared associations of this type.
	// Foreign keys introspected from the store fill the gaps.
	Relations []Relation
}

// Relation declares an association between two entity types.
type Relation struct {
	// SourceAttr is the attribute on the owning side; for forward
	// relations it holds the foreign key value.
	SourceAttr string
	// TargetType is the registry name of the related type.
	TargetType string
	// TargetAttr is the attribute matched on the target side. Empty
	// means the target's identity attribute.
	TargetAttr string
	// Inverse marks a referenced-side relation: rows on the target
	// whose SourceAttr column points back at this record.
	Inverse bool
	// Many marks a collection-valued relation.
	Many bool
	// Shared routes single-key lookups through the shared cache.
	Shared bool
}

// TagFor returns the declared tag for an attribute, defaulting to the
// string tag.
func (d *Definition) TagFor(attrName string) attr.TypeTag {
	if d.Types == nil {
		return attr.TagString
	}
	if tag, ok := d.Types[attrName]; ok {
		return tag
	}
	return attr.TagString
}

// RelationFor returns the declared relation rooted at an attribute.
func (d *Definition) RelationFor(attrName string) (Relation, bool) {
	for _, rel := range d.Relations {
		if rel.SourceAttr == attrName {
			return rel, true
		}
	}
	return Relation{}, false
}
