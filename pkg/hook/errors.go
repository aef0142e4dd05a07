package hook

import "errors"

// Common errors returned by the hook package.
var (
	// ErrHookFailed is returned when the hook script cannot be run.
	ErrHookFailed = errors.New("failed to run fsmonitor hook")
)
