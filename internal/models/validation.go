package models

// TerminalReason explains how validation polling ended.
type TerminalReason string

const (
	ValidationCompleted TerminalReason = "completed"
	ValidationTimedOut  TerminalReason = "timed_out"
	ValidationErrored   TerminalReason = "error"
)

// ValidationOutcome is the final check-run evaluation for the
// resolution branch. Absent on the escalate path.
type ValidationOutcome struct {
	SyntaxValid   bool
	TestsPass     bool
	BuildSucceeds bool
	SecurityCheck bool
	ErrorText     string
	Reason        TerminalReason
}

// Passed reports whether every validation dimension succeeded.
func (v ValidationOutcome) Passed() bool {
	return v.Reason == ValidationCompleted &&
		v.SyntaxValid && v.TestsPass && v.BuildSucceeds && v.SecurityCheck
}
