package envsnap

import "errors"

// Value is the captured state of one variable.
type Value struct {
	Value   string
	Present bool
}

// Snapshot maps variable names to their captured state.
type Snapshot map[string]Value

// Capture records the current state of each name in env.
func Capture(env Environment, names ...string) Snapshot {
	snap := make(Snapshot, len(names))
	for _, name := range names {
		v, ok := env.Lookup(name)
		snap[name] = Value{Value: v, Present: ok}
	}
	return snap
}

// Restore writes every captured value back into env, unsetting names that
// were absent at capture time. All names are attempted; failures are joined.
func (s Snapshot) Restore(env Environment) error {
	var errs []error
	for name, v := range s {
		var err error
		if v.Present {
			err = env.Set(name, v.Value)
		} else {
			err = env.Unset(name)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RestoreError reports that a Guard could not put the captured state back.
type RestoreError struct {
	Err error
}

func (e *RestoreError) Error() string {
	return "restore environment: " + e.Err.Error()
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// Guard captures names, runs fn and restores the captured state on every exit
// path. A panic in fn is re-raised after the restore. A failed restore is
// reported as a *RestoreError joined with fn's own error.
func Guard(env Environment, names []string, fn func() error) (err error) {
	snap := Capture(env, names...)
	defer func() {
		r := recover()
		if restoreErr := snap.Restore(env); restoreErr != nil {
			err = errors.Join(err, &RestoreError{Err: restoreErr})
		}
		if r != nil {
			panic(r)
		}
	}()
	return fn()
}

// CaptureArgv copies *argv and returns a func that puts the copy back.
func CaptureArgv(argv *[]string) (restore func()) {
	saved := append([]string(nil), (*argv)...)
	return func() {
		*argv = append([]string(nil), saved...)
	}
}
