package attr

import "fmt"

// TypeTag identifies the declared semantic type of an attribute.
// Attributes with no declared tag default to TagString.
type TypeTag int

const (
	// TagString is the default: pass-through string storage.
	TagString TypeTag = iota
	// TagBool stores 0/1 in the column, true/false in memory.
	TagBool
	// TagInt stores a 64-bit integer.
	TagInt
	// TagFloat stores a 64-bit float.
	TagFloat
	// TagTimestamp stores an absolute instant, serialized in UTC.
	TagTimestamp
	// TagList stores a delimiter-joined string, split in memory.
	TagList
	// TagDoc stores a JSON document, decoded to a map in memory.
	TagDoc
)

var tagNames = map[TypeTag]string{
	TagString:    "string",
	TagBool:      "bool",
	TagInt:       "int",
	TagFloat:     "float",
	TagTimestamp: "timestamp",
	TagList:      "list",
	TagDoc:       "doc",
}

// String returns the canonical name for the tag, as used in entity
// definition files.
func (t TypeTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

// ParseTag resolves a definition-file tag name to its TypeTag.
func ParseTag(name string) (TypeTag, error) {
	for tag, n := range tagNames {
		if n == name {
			return tag, nil
		}
	}
	return TagString, fmt.Errorf("unknown type tag %q", name)
}
