package envbuild

import "fmt"

// ValidationError reports a descriptor path that does not exist at build time.
type ValidationError struct {
	Field string
	Path  string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s not found: %s", e.Field, e.Path)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
