package field

import "github.com/pkg/errors"

var (
	ErrOutOfBounds      = errors.New("field reads outside buffer")
	ErrUnsupportedRules = errors.New("unsupported rule combination")
)

var (
	ErrDuplicateKey    = errors.New("duplicate field key")
	ErrDuplicateOffset = errors.New("duplicate field offset")
	errInvalidField    = errors.New("invalid field")
)
