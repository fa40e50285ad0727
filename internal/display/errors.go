package display

import (
	"errors"
	"fmt"
)

var (
	// ErrDisplayQueryFailed matches every enumeration failure
	ErrDisplayQueryFailed = errors.New("display query failed")

	// ErrConfigurationFailed matches every rejected configuration change
	ErrConfigurationFailed = errors.New("display configuration failed")
)

// QueryError reports an OS enumeration call that returned non-success
type QueryError struct {
	Op     string // OS call or command that failed
	Status int32  // Raw OS status code
	Err    error  // Underlying error, if any
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed (status %d): %v", ErrDisplayQueryFailed, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failed (status %d)", ErrDisplayQueryFailed, e.Op, e.Status)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrDisplayQueryFailed
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Stage names the step of a configuration transaction that failed
type Stage string

const (
	StageBegin     Stage = "begin"
	StageConfigure Stage = "configure"
	StageCommit    Stage = "commit"
)

// ConfigError reports a configuration change the OS rejected
type ConfigError struct {
	ID      ID
	Enabled bool
	Stage   Stage
	Err     error
}

func (e *ConfigError) Error() string {
	action := "disable"
	if e.Enabled {
		action = "enable"
	}
	return fmt.Sprintf("%s: %s display %d (%s): %v", ErrConfigurationFailed, action, e.ID, e.Stage, e.Err)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationFailed
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Status returns the raw OS status carried by the underlying error, or 0
func (e *ConfigError) Status() int32 {
	var se *StatusError
	if errors.As(e.Err, &se) {
		return se.Code
	}
	return 0
}

// StatusError is a non-success status returned by an OS call
type StatusError struct {
	Op   string
	Code int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Op, e.Code)
}
