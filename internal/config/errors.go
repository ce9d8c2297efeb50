package config

import "fmt"

// ConfigError reports a failure to read, decode, write or locate something
// the launcher depends on. Path names the file or binary involved.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
