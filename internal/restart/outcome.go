// Package restart decides whether the current process must be relaunched with
// the debugging extension disabled, and records the result.
package restart

// Kind identifies which variant an Outcome holds.
type Kind int

const (
	NotNeeded Kind = iota
	Restarted
	Failed
)

func (k Kind) String() string {
	switch k {
	case NotNeeded:
		return "not_needed"
	case Restarted:
		return "restarted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the immutable result of a restart decision. The zero value is NotNeeded.
type Outcome struct {
	kind    Kind
	skipped string
}

// NotNeededOutcome reports that no relaunch was required.
func NotNeededOutcome() Outcome {
	return Outcome{kind: NotNeeded}
}

// RestartedOutcome reports a successful relaunch that skipped the given extension version.
func RestartedOutcome(skippedVersion string) Outcome {
	return Outcome{kind: Restarted, skipped: skippedVersion}
}

// FailedOutcome reports a relaunch that could not be performed.
func FailedOutcome() Outcome {
	return Outcome{kind: Failed}
}

// Kind returns the outcome variant.
func (o Outcome) Kind() Kind {
	return o.kind
}

// Restarted reports whether the outcome is Restarted.
func (o Outcome) Restarted() bool {
	return o.kind == Restarted
}

// SkippedVersion returns the skipped extension version, or "" when there is none.
func (o Outcome) SkippedVersion() string {
	return o.skipped
}

// Skipped returns the skipped extension version and whether one exists.
// A successful restart of an extension with an unknown version yields ("", true).
func (o Outcome) Skipped() (string, bool) {
	return o.skipped, o.kind == Restarted
}

func (o Outcome) String() string {
	if o.kind == Restarted {
		return o.kind.String() + "(" + o.skipped + ")"
	}
	return o.kind.String()
}
