package workflow

// Status is the terminal outcome of a single workflow execution.
type Status string

const (
	// StatusSuccess marks an execution that ran to completion.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed marks an execution that ran and failed.
	StatusFailed Status = "FAILED"
	// StatusSkipped marks an execution that legitimately did not run,
	// such as a Conditional whose selected branch is absent.
	StatusSkipped Status = "SKIPPED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether s is one of the three defined outcomes.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}
