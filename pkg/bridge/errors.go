package bridge

import "errors"

// Error kinds shared across the relay pipeline. Concrete errors wrap one of
// these so callers can classify with errors.Is.
var (
	// ErrTransientNetwork marks an unreachable RPC/API; loops log, sleep and retry
	ErrTransientNetwork = errors.New("transient network error")
	// ErrValidation marks an event that can never be relayed as-is (no custodian, malformed)
	ErrValidation = errors.New("validation error")
	// ErrPreflight marks a submission aborted by a safety check before any tx was sent
	ErrPreflight = errors.New("preflight check failed")
	// ErrSubmission marks a destination transaction that was rejected or reverted
	ErrSubmission = errors.New("submission failed")
	// ErrFatalStartup marks an unreachable provider or invalid configuration at start
	ErrFatalStartup = errors.New("fatal startup error")
)
