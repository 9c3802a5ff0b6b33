package record

import "fmt"

// ErrorCode categorizes the recoverable failures a record accumulates.
type ErrorCode string

const (
	// ErrCodeCoercion indicates an input could not be interpreted as
	// the attribute's declared type. The attribute holds the safe
	// fallback value.
	ErrCodeCoercion ErrorCode = "COERCION"

	// ErrCodePersistence indicates the store rejected an insert,
	// update, or delete.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodeRelationMapping indicates no foreign-key metadata or no
	// registered type could be found for a relation attribute.
	ErrCodeRelationMapping ErrorCode = "RELATION_MAPPING"

	// ErrCodeIdentity indicates an operation required a fully
	// populated identity and the record does not have one.
	ErrCodeIdentity ErrorCode = "IDENTITY"

	// ErrCodeUnknownAttr indicates a read of an attribute that is
	// neither bound nor dynamic.
	ErrCodeUnknownAttr ErrorCode = "UNKNOWN_ATTR"

	// ErrCodeGeneratedAttr indicates a refused write to a computed
	// column.
	ErrCodeGeneratedAttr ErrorCode = "GENERATED_ATTR"
)

// OpError is one entry of a record's error log, formatted into the
// append-only diagnostic list. Recoverable conditions never cross the
// public boundary as Go errors; they accumulate here so batch work can
// continue past individual record issues.
type OpError struct {
	Code ErrorCode
	Type string // entity type name
	Attr string // attribute involved, when there is one
	Err  error  // underlying cause, optional

	Message string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	prefix := string(e.Code) + ": " + e.Type
	if e.Attr != "" {
		prefix += "." + e.Attr
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *OpError) Unwrap() error { return e.Err }
