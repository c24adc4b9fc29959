package param

import "github.com/pkg/errors"

// Validation failures raised by Store assignments. Callers classify a
// returned error with errors.Cause.
var (
	// ErrNoSuchAttr covers both unknown names and ambiguous abbreviations.
	ErrNoSuchAttr = errors.New("no such attribute")
	// ErrInvalidType means the value's type differs from the attribute's.
	ErrInvalidType = errors.New("invalid type")
	// ErrOutOfRange means a bounded numeric attribute was given a value
	// outside its declared minimum/maximum.
	ErrOutOfRange = errors.New("value out of range")
	// ErrTooLong means a string exceeded the attribute's maximum length.
	ErrTooLong = errors.New("string too long")
	// ErrListTooBig means a list value is longer than the attribute's
	// fixed capacity.
	ErrListTooBig = errors.New("list too big")
	// ErrSentinel means an attempt to overwrite a protected list element.
	ErrSentinel = errors.New("protected element")
	// ErrFixedSize means a sub-range replacement would change the list's
	// length.
	ErrFixedSize = errors.New("fixed-size list")
)
