package census

import (
	"errors"
	"fmt"
)

// VintageNotAvailableError means the requested ACS vintage has not been
// published. Retrying cannot change it; the operator waits for the release.
type VintageNotAvailableError struct {
	Vintage int
}

func (e *VintageNotAvailableError) Error() string {
	return fmt.Sprintf("acs vintage %d is not available from the Census API", e.Vintage)
}

// VariableDiscontinuedError means a requested variable code was renamed or
// retired in this vintage. The operator must update the configured variable
// list.
type VariableDiscontinuedError struct {
	Code    string
	Vintage int
}

func (e *VariableDiscontinuedError) Error() string {
	return fmt.Sprintf("variable %s is discontinued or renamed in vintage %d", e.Code, e.Vintage)
}

// IsVintageNotAvailable reports whether err chains to a VintageNotAvailableError.
func IsVintageNotAvailable(err error) bool {
	var ve *VintageNotAvailableError
	return errors.As(err, &ve)
}

// IsVariableDiscontinued reports whether err chains to a VariableDiscontinuedError.
func IsVariableDiscontinued(err error) bool {
	var ve *VariableDiscontinuedError
	return errors.As(err, &ve)
}
