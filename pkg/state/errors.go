package state

import "errors"

var (
	ErrUnknownKind     = errors.New("unknown field kind")
	ErrTypeMismatch    = errors.New("value does not match field kind")
	ErrUndeclaredField = errors.New("field is not declared in the state shape")
)
