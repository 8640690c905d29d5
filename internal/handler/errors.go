package handler

import "fmt"

// EnvironmentWriteError means a control variable could not be set, unset or
// restored. It aborts the restart attempt: continuing would leave a half
// updated environment behind.
type EnvironmentWriteError struct {
	Op   string // "set", "unset" or "restore"
	Name string
	Err  error
}

func (e *EnvironmentWriteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("environment %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("environment %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *EnvironmentWriteError) Unwrap() error {
	return e.Err
}
