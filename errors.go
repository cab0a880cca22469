package typsthighlight

import "errors"

// Sentinel errors for library operations.
var (
	// Configuration validation errors. These abort the run: they indicate
	// operator misconfiguration, not a per-block condition.
	ErrConfigValue    = errors.New("invalid configuration value")
	ErrInvalidFormat  = errors.New("invalid render format")
	ErrInvalidWorkers = errors.New("invalid worker count")
	ErrInvalidTimeout = errors.New("invalid timeout")
)
