package attr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListDelimiter is the fixed separator for delimited-list attributes.
const ListDelimiter = ","

// TimeLayout is the storage serialization format for timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// parseLayouts are tried in order when coercing a non-numeric string
// into a timestamp.
var parseLayouts = []string{
	time.RFC3339,
	TimeLayout,
	"2006-01-02",
}

// zeroSentinels are legacy "no date" markers that coerce to Null.
var zeroSentinels = map[string]bool{
	"":                    true,
	"0000-00-00":          true,
	"0000-00-00 00:00:00": true,
}

type coerceInFunc func(raw any, nullable bool, loc *time.Location) (Value, error)

// coerceIn is the dispatch table for CoerceIn, indexed by TypeTag.
var coerceIn = map[TypeTag]coerceInFunc{
	TagString:    coerceString,
	TagBool:      coerceBool,
	TagInt:       coerceInt,
	TagFloat:     coerceFloat,
	TagTimestamp: coerceTimestamp,
	TagList:      coerceList,
	TagDoc:       coerceDoc,
}

// CoerceIn converts a raw store (or caller-supplied) value into the
// attribute value domain for the given tag. It never panics: on failure
// it returns the safe fallback for the tag (Null, or an empty List for
// TagList) together with the error, and the caller decides where to log
// it. Coercion is idempotent: feeding an already-coerced Value back in
// returns an equal Value.
//
// On an emptiable column the empty string is a stored value in its own
// right: it is kept as String("") instead of collapsing to null or an
// error. Lists are exempt, their empty string is already the empty
// list.
func CoerceIn(tag TypeTag, raw any, nullable, emptiable bool, loc *time.Location) (Value, error) {
	if emptiable && tag != TagList {
		if s, ok := rawString(raw); ok && s == "" {
			return String(""), nil
		}
	}
	fn, ok := coerceIn[tag]
	if !ok {
		fn = coerceString
	}
	if loc == nil {
		loc = time.UTC
	}
	return fn(raw, nullable, loc)
}

// CoerceOut converts an attribute value into a driver-ready
// representation: nil, int64, float64, or string.
func CoerceOut(tag TypeTag, v Value) any {
	if IsNull(v) {
		return nil
	}
	switch tv := v.(type) {
	case Bool:
		if tv {
			return int64(1)
		}
		return int64(0)
	case Int:
		return int64(tv)
	case Float:
		return float64(tv)
	case Time:
		return time.Time(tv).UTC().Format(TimeLayout)
	case List:
		return strings.Join(tv, ListDelimiter)
	case Doc:
		data, err := json.Marshal(map[string]any(tv))
		if err != nil {
			// Doc values come from json.Unmarshal or map literals;
			// both marshal cleanly. Fall back to an empty document.
			return "{}"
		}
		return string(data)
	case String:
		return string(tv)
	}
	return nil
}

func rawString(raw any) (string, bool) {
	switch s := raw.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case String:
		return string(s), true
	}
	return "", false
}

func coerceString(raw any, nullable bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		if nullable {
			return Null{}, nil
		}
		return String(""), nil
	case String:
		return tv, nil
	}
	if s, ok := rawString(raw); ok {
		return String(s), nil
	}
	return String(Format(Wrap(raw))), nil
}

func coerceBool(raw any, nullable bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		return Null{}, nil
	case Bool:
		return tv, nil
	case bool:
		return Bool(tv), nil
	case Int:
		return Bool(tv != 0), nil
	case int:
		return Bool(tv != 0), nil
	case int64:
		return Bool(tv != 0), nil
	case float64:
		return Bool(tv != 0), nil
	}
	if s, ok := rawString(raw); ok {
		if s == "" && nullable {
			return Null{}, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "0", "false", "no":
			return Bool(false), nil
		case "1", "true", "yes":
			return Bool(true), nil
		}
		return Null{}, fmt.Errorf("cannot interpret %q as bool", s)
	}
	return Null{}, fmt.Errorf("cannot interpret %T as bool", raw)
}

func coerceInt(raw any, nullable bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		return Null{}, nil
	case Int:
		return tv, nil
	case int:
		return Int(tv), nil
	case int32:
		return Int(tv), nil
	case int64:
		return Int(tv), nil
	case float64:
		return Int(int64(tv)), nil
	case Bool:
		if tv {
			return Int(1), nil
		}
		return Int(0), nil
	case bool:
		if tv {
			return Int(1), nil
		}
		return Int(0), nil
	}
	if s, ok := rawString(raw); ok {
		if s == "" {
			if nullable {
				return Null{}, nil
			}
			return Int(0), nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Null{}, fmt.Errorf("cannot interpret %q as int", s)
		}
		return Int(n), nil
	}
	return Null{}, fmt.Errorf("cannot interpret %T as int", raw)
}

func coerceFloat(raw any, nullable bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		return Null{}, nil
	case Float:
		return tv, nil
	case float32:
		return Float(tv), nil
	case float64:
		return Float(tv), nil
	case Int:
		return Float(tv), nil
	case int:
		return Float(tv), nil
	case int64:
		return Float(tv), nil
	}
	if s, ok := rawString(raw); ok {
		if s == "" {
			if nullable {
				return Null{}, nil
			}
			return Float(0), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Null{}, fmt.Errorf("cannot interpret %q as float", s)
		}
		return Float(f), nil
	}
	return Null{}, fmt.Errorf("cannot interpret %T as float", raw)
}

func coerceTimestamp(raw any, _ bool, loc *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		return Null{}, nil
	case Time:
		return tv, nil
	case time.Time:
		return Time(tv.UTC()), nil
	case Int:
		return Time(time.Unix(int64(tv), 0).UTC()), nil
	case int:
		return Time(time.Unix(int64(tv), 0).UTC()), nil
	case int64:
		return Time(time.Unix(tv, 0).UTC()), nil
	}
	s, ok := rawString(raw)
	if !ok {
		return Null{}, fmt.Errorf("cannot interpret %T as timestamp", raw)
	}
	s = strings.TrimSpace(s)
	if zeroSentinels[s] {
		return Null{}, nil
	}
	// All-digit strings are Unix seconds, always UTC.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Time(time.Unix(n, 0).UTC()), nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Time(t.UTC()), nil
		}
	}
	return Null{}, fmt.Errorf("cannot interpret %q as timestamp", s)
}

func coerceList(raw any, _ bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		// Absent lists become empty, never null.
		return List{}, nil
	case List:
		return tv, nil
	case []string:
		return List(tv), nil
	}
	s, ok := rawString(raw)
	if !ok {
		return List{}, fmt.Errorf("cannot interpret %T as list", raw)
	}
	if s == "" {
		return List{}, nil
	}
	return List(strings.Split(s, ListDelimiter)), nil
}

func coerceDoc(raw any, nullable bool, _ *time.Location) (Value, error) {
	switch tv := raw.(type) {
	case nil, Null:
		if nullable {
			return Null{}, nil
		}
		return Doc{}, nil
	case Doc:
		return tv, nil
	case map[string]any:
		return Doc(tv), nil
	}
	s, ok := rawString(raw)
	if !ok {
		return Null{}, fmt.Errorf("cannot interpret %T as document", raw)
	}
	if s == "" {
		if nullable {
			return Null{}, nil
		}
		return Doc{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Null{}, fmt.Errorf("cannot parse document: %w", err)
	}
	return Doc(m), nil
}
