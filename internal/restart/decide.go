package restart

// Decide chooses the restart outcome for one process invocation.
//
// The allow flag is the re-entry guard and wins over everything else. When the
// extension is detected, relaunch is called exactly once; its error turns the
// outcome into Failed. The version string never gates the decision.
func Decide(detected bool, version string, allowFlagSet bool, relaunch func() error) Outcome {
	if allowFlagSet || !detected {
		return NotNeededOutcome()
	}
	if err := relaunch(); err != nil {
		return FailedOutcome()
	}
	return RestartedOutcome(version)
}
