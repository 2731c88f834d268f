package scheduling

import "errors"

// Error kinds returned by the lifecycle engine. Operations wrap exactly one of
// them, so callers branch with errors.Is or Kind.
var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage error")
)

// Repository errors.
var (
	ErrNoRecord        = errors.New("appointment record not found")
	ErrVersionConflict = errors.New("appointment version conflict")
)

var kinds = []error{ErrValidation, ErrUnauthorized, ErrInvalidTransition, ErrNotFound, ErrStorage}

// Kind returns the error kind err wraps, or nil when it wraps none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
