package dsn

import "errors"

// ErrInvalidMapping is returned by FromMap when a value cannot be decoded into the
// descriptor field it names.
var ErrInvalidMapping = errors.New("invalid descriptor mapping")
