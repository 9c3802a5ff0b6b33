package attr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Value is a sealed interface over the attribute value domain.
// Only Null, Bool, Int, Float, Time, List, Doc, and String implement it.
// Every attribute a Record holds is one of these; raw driver values are
// converted through CoerceIn before they reach a Record.
type Value interface {
	attrValue() // Sealed - only these types implement it
}

// Null represents the absence of a value (SQL NULL).
type Null struct{}

func (Null) attrValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool represents a boolean attribute value.
type Bool bool

func (Bool) attrValue() {}

// Int represents an integer attribute value. Always int64.
type Int int64

func (Int) attrValue() {}

// Float represents a floating point attribute value.
type Float float64

func (Float) attrValue() {}

// Time represents a timestamp attribute value, normalized to UTC.
type Time time.Time

func (Time) attrValue() {}

// MarshalJSON implements json.Marshaler for Time.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(TimeLayout))
}

// List represents a delimited-list attribute value.
// A List is never nil once coerced; absent input becomes an empty List
// so consumers never null-check this type.
type List []string

func (List) attrValue() {}

// Doc represents a structured-document attribute value.
type Doc map[string]any

func (Doc) attrValue() {}

// String represents a plain string attribute value. The default type
// for attributes with no declared tag.
type String string

func (String) attrValue() {}

// IsNull reports whether v is the Null value (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether two attribute values are equal. Values of
// different concrete types are never equal, except that nil and Null
// compare equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Time:
		bv, ok := b.(Time)
		return ok && time.Time(av).Equal(time.Time(bv))
	case List:
		bv, ok := b.(List)
		return ok && slices.Equal(av, bv)
	case Doc:
		bv, ok := b.(Doc)
		return ok && reflect.DeepEqual(av, bv)
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	}
	return false
}

// GoValue unwraps a Value into its plain Go representation:
// nil, bool, int64, float64, time.Time, []string, map[string]any, or string.
func GoValue(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(tv)
	case Int:
		return int64(tv)
	case Float:
		return float64(tv)
	case Time:
		return time.Time(tv)
	case List:
		return []string(tv)
	case Doc:
		return map[string]any(tv)
	case String:
		return string(tv)
	}
	return nil
}

// Wrap lifts a plain Go value into the Value domain without declared-
// type coercion. Used for dynamic attributes, where whatever the query
// projected is kept as-is. Unrecognized types stringify.
func Wrap(raw any) Value {
	switch tv := raw.(type) {
	case nil:
		return Null{}
	case Value:
		return tv
	case bool:
		return Bool(tv)
	case int:
		return Int(tv)
	case int64:
		return Int(tv)
	case float64:
		return Float(tv)
	case time.Time:
		return Time(tv.UTC())
	case []string:
		return List(tv)
	case map[string]any:
		return Doc(tv)
	case []byte:
		return String(tv)
	case string:
		return String(tv)
	}
	return String(fmt.Sprintf("%v", raw))
}

// Format renders a value for diagnostics and text output.
func Format(v Value) string {
	switch tv := v.(type) {
	case nil, Null:
		return "NULL"
	case Time:
		return time.Time(tv).UTC().Format(TimeLayout)
	default:
		return fmt.Sprintf("%v", GoValue(v))
	}
}
