package learner

import "errors"

// ErrInvalidOutcome is returned for feedback that is neither like nor skip.
var ErrInvalidOutcome = errors.New("invalid feedback outcome")
