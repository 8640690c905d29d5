// Package relauncher spawns the child process for a restart and reports how it ended.
package relauncher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
)

// Relauncher starts argv as a child with env, waits for it and returns its exit code.
// A child that starts and exits non-zero is not an error.
type Relauncher interface {
	Spawn(ctx context.Context, argv []string, env []string) (int, error)
}

// SpawnError means the child process could not be created.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Exec spawns children with os/exec, sharing this process's standard streams.
type Exec struct {
	// InsertArgs are placed between argv[0] and the original arguments.
	InsertArgs []string

	// Nil streams default to the parent's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Compile-time assertion that Exec implements Relauncher
var _ Relauncher = (*Exec)(nil)

// Spawn implements Relauncher. The parent ignores interrupts while the child
// runs: the terminal delivers them to the child, and the parent exits with
// whatever status the child ends with.
func (e *Exec) Spawn(ctx context.Context, argv []string, env []string) (int, error) {
	if len(argv) == 0 || argv[0] == "" {
		return 0, &SpawnError{Err: errors.New("empty argv")}
	}

	args := make([]string, 0, len(e.InsertArgs)+len(argv)-1)
	args = append(args, e.InsertArgs...)
	args = append(args, argv[1:]...)

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Env = append([]string(nil), env...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if e.Stdin != nil {
		cmd.Stdin = e.Stdin
	}
	if e.Stdout != nil {
		cmd.Stdout = e.Stdout
	}
	if e.Stderr != nil {
		cmd.Stderr = e.Stderr
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	if err := cmd.Start(); err != nil {
		return 0, &SpawnError{Path: argv[0], Err: err}
	}

	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, fmt.Errorf("wait for %s: %w", argv[0], err)
		}
	}
	return exitCode(cmd.ProcessState), nil
}

// Executable returns the path of the running binary, for relaunching itself.
func Executable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", &SpawnError{Path: "self", Err: err}
	}
	return path, nil
}
