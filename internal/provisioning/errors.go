package provisioning

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrPollTimeout is returned when a resource is still transitioning after the
// configured number of polls.
var ErrPollTimeout = errors.New("timed out waiting for terminal status")

// notFoundCodes are the API error codes that mean the resource does not exist
var notFoundCodes = map[string]struct{}{
	"ResourceNotFoundException": {},
	"NotFoundException":         {},
	"NotFound":                  {},
}

// IsNotFound reports whether err is an AWS "resource not found" API error
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := notFoundCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// MissingParamsError lists required resource properties that were absent
type MissingParamsError struct {
	Keys []string
}

func (e *MissingParamsError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("missing required properties: %s", strings.Join(keys, ", "))
}

// StepError reports which step of a sequence failed and which steps had
// already completed when it did.
type StepError struct {
	Sequence  string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %q failed after [%s]: %v", e.Sequence, e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
