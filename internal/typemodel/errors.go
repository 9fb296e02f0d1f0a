package typemodel

import (
	"github.com/cockroachdb/errors"
)

// Error classes. Match with errors.Is.
var (
	// ErrUnsupportedType means a declared type has no schema representation.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrInvalidConfiguration means the declarations break a structural rule.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnsupportedOperation means the operation does not apply to the model.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

func unsupportedType(format string, args ...any) error {
	return errors.Wrapf(ErrUnsupportedType, format, args...)
}

func invalidConfig(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}
