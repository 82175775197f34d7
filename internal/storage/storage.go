package storage

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrUnsupportedType = errors.New("unsupported key type")
	ErrInvalidDocument = errors.New("invalid document")
)
