package automation

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownHandler = errors.New("unknown automation handler")
	ErrMissingParam   = errors.New("missing task parameter")
	ErrHandlerPanic   = errors.New("automation handler panicked")
	ErrUnavailable    = errors.New("external system unavailable")
)

// AutomationError reports a failed automation attempt. Message is shown to
// operators as the task's status message.
type AutomationError struct {
	Handler string
	TaskID  string
	Message string
	Err     error
}

func (e *AutomationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("%s failed: %v", e.Handler, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

// AsAutomationError extracts an AutomationError from err.
func AsAutomationError(err error) (*AutomationError, bool) {
	var target *AutomationError
	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}
