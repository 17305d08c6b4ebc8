package actionkit

import "errors"

// Registration and configuration errors. Aborts are not errors: an aborted
// dispatch resolves normally and reports through the ExecutionResult.
var (
	// ErrCapacityExceeded indicates an action's handler list is at the
	// configured MaxHandlers limit.
	ErrCapacityExceeded = errors.New("actionkit: handler capacity exceeded")

	// ErrInvalidConfig indicates an invalid registration: empty action
	// name, nil handler, or a malformed handler config.
	ErrInvalidConfig = errors.New("actionkit: invalid handler config")

	// ErrInvalidMode indicates an unknown execution mode.
	ErrInvalidMode = errors.New("actionkit: invalid execution mode")
)
