// Package cuedef compiles CUE entity declarations into schema
// definitions. Definitions live in .cue files so deployments can add
// entity types without recompiling; the CUE SDK's Go API is used
// directly (not a CLI subprocess).
package cuedef

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/schema"
)

// CompileError reports a problem in an entity declaration.
type CompileError struct {
	Entity  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Entity
	if e.Field != "" {
		where += "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// CompileEntities parses every declaration under the top-level
// "entity" struct, e.g.:
//
//	entity: User: {
//		table: "users"
//		types: {empNumber: "int"}
//		relations: [{attr: "empNumber", target: "Employee"}]
//	}
func CompileEntities(v cue.Value) ([]*schema.Definition, error) {
	root := v.LookupPath(cue.ParsePath("entity"))
	if !root.Exists() {
		return nil, &CompileError{Field: "entity", Message: "no entity declarations found", Pos: v.Pos()}
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	var defs []*schema.Definition
	for iter.Next() {
		def, err := CompileEntity(iter.Selector().String(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, &CompileError{Field: "entity", Message: "at least one entity is required", Pos: root.Pos()}
	}
	return defs, nil
}

// CompileEntity parses a single entity declaration into a Definition.
func CompileEntity(name string, v cue.Value) (*schema.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}
	def := &schema.Definition{
		Name:      name,
		Types:     map[string]attr.TypeTag{},
		Encrypted: map[string]bool{},
		Emptiable: map[string]bool{},
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{Entity: name, Field: "table", Message: "table is required", Pos: v.Pos()}
	}
	table, err := tableVal.String()
	if err != nil {
		return nil, &CompileError{Entity: name, Field: "table", Message: "table must be a string", Pos: tableVal.Pos()}
	}
	def.Table = table

	if err := parseTypes(name, v, def); err != nil {
		return nil, err
	}
	if err := parseStringSet(name, v, "encrypted", def.Encrypted); err != nil {
		return nil, err
	}
	if err := parseStringSet(name, v, "emptiable", def.Emptiable); err != nil {
		return nil, err
	}
	if err := parseRelations(name, v, def); err != nil {
		return nil, err
	}
	return def, nil
}

func parseTypes(entity string, v cue.Value, def *schema.Definition) error {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return &CompileError{Entity: entity, Field: "types", Message: "types must be a struct", Pos: typesVal.Pos()}
	}
	for iter.Next() {
		attrName := iter.Selector().String()
		tagName, err := iter.Value().String()
		if err != nil {
			return &CompileError{Entity: entity, Field: "types." + attrName,
				Message: "tag must be a string", Pos: iter.Value().Pos()}
		}
		tag, err := attr.ParseTag(tagName)
		if err != nil {
			return &CompileError{Entity: entity, Field: "types." + attrName,
				Message: err.Error(), Pos: iter.Value().Pos()}
		}
		def.Types[attrName] = tag
	}
	return nil
}

func parseStringSet(entity string, v cue.Value, field string, into map[string]bool) error {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return &CompileError{Entity: entity, Field: field, Message: field + " must be a list", Pos: listVal.Pos()}
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return &CompileError{Entity: entity, Field: field,
				Message: "entries must be strings", Pos: iter.Value().Pos()}
		}
		into[s] = true
	}
	return nil
}

func parseRelations(entity string, v cue.Value, def *schema.Definition) error {
	relVal := v.LookupPath(cue.ParsePath("relations"))
	if !relVal.Exists() {
		return nil
	}
	iter, err := relVal.List()
	if err != nil {
		return &CompileError{Entity: entity, Field: "relations", Message: "relations must be a list", Pos: relVal.Pos()}
	}
	for iter.Next() {
		rv := iter.Value()
		rel := schema.Relation{}
		rel.SourceAttr, err = requiredString(entity, rv, "attr")
		if err != nil {
			return err
		}
		rel.TargetType, err = requiredString(entity, rv, "target")
		if err != nil {
			return err
		}
		rel.TargetAttr, _ = optionalString(rv, "targetAttr")
		rel.Inverse, _ = optionalBool(rv, "inverse")
		rel.Many, _ = optionalBool(rv, "many")
		rel.Shared, _ = optionalBool(rv, "shared")
		def.Relations = append(def.Relations, rel)
	}
	return nil
}

func requiredString(entity string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Entity: entity, Field: "relations." + field,
			Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Entity: entity, Field: "relations." + field,
			Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false
	}
	s, err := fv.String()
	if err != nil {
		return "", false
	}
	return s, true
}

func optionalBool(v cue.Value, field string) (bool, bool) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false
	}
	return b, true
}
