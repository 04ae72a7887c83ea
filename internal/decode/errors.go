package decode

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks caller-supplied input defects: malformed tensor
// shapes, out-of-range beam sizes, degenerate distributions. No partial result
// accompanies it.
var ErrInvalidArgument = errors.New("invalid_argument")

type invalidArgumentError struct {
	msg string
}

func (e invalidArgumentError) Error() string {
	return e.msg
}

func (e invalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgf(format string, args ...any) error {
	return invalidArgumentError{msg: fmt.Sprintf(format, args...)}
}
