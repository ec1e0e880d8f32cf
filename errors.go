package tagfilter

import (
	"errors"
	"fmt"
)

const genericErrMsg = "tagfilter: %w"

var (
	// ErrInvalidRules is wrapped by warnings about rule fragments that could not
	// be compiled and were skipped.
	ErrInvalidRules = errors.New("invalid rules")

	// ErrUnknownOption is wrapped by warnings about configuration keys nobody
	// knows about. Such keys are ignored.
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidConfig is returned by [LoadConfig] for documents which are not
	// a mapping, and wrapped by warnings about options of a wrong type.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrEmptyOutput is a warning about non-blank input which produced no
	// output at all. It usually means the rules are too restrictive.
	ErrEmptyOutput = errors.New("empty output")
)

func rulesError(format string, a ...any) error {
	return fmt.Errorf("tagfilter: %w: %s", ErrInvalidRules, fmt.Sprintf(format, a...))
}
