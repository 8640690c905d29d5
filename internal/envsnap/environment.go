// Package envsnap captures and restores named environment variables and the
// process argument vector. An absent variable and one set to the empty string
// are kept distinct throughout: restoring an absent name unsets it.
package envsnap

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Environment is a mutable set of environment variables.
type Environment interface {
	Lookup(name string) (string, bool)
	Set(name, value string) error
	Unset(name string) error
	// Environ returns the variables as sorted KEY=VALUE pairs.
	Environ() []string
}

// OS returns the process environment.
func OS() Environment {
	return osEnv{}
}

type osEnv struct{}

func (osEnv) Lookup(name string) (string, bool) { return os.LookupEnv(name) }

func (osEnv) Set(name, value string) error {
	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("setenv %s: %w", name, err)
	}
	return nil
}

func (osEnv) Unset(name string) error {
	if err := os.Unsetenv(name); err != nil {
		return fmt.Errorf("unsetenv %s: %w", name, err)
	}
	return nil
}

func (osEnv) Environ() []string {
	env := os.Environ()
	sort.Strings(env)
	return env
}

// Map is an in-memory Environment. The zero value is empty and ready to use.
type Map struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMap builds a Map from KEY=VALUE pairs, as returned by os.Environ.
// Entries without '=' are ignored; later duplicates win.
func NewMap(pairs []string) *Map {
	m := &Map{vars: make(map[string]string, len(pairs))}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		m.vars[name] = value
	}
	return m
}

// Clone copies any Environment into a new Map.
func Clone(env Environment) *Map {
	return NewMap(env.Environ())
}

func (m *Map) Lookup(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

func (m *Map) Set(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=\x00") {
		return fmt.Errorf("setenv %q: invalid name", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vars == nil {
		m.vars = make(map[string]string)
	}
	m.vars[name] = value
	return nil
}

func (m *Map) Unset(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, name)
	return nil
}

func (m *Map) Environ() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env := make([]string, 0, len(m.vars))
	for k, v := range m.vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
