package pe

import "github.com/pkg/errors"

var (
	ErrIO             = errors.New("cannot read file")
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidSection = errors.New("invalid section header")
)
