// Package gate maps an analysis confidence score to a pipeline path.
package gate

// Decision is the path chosen for a session.
type Decision string

const (
	Escalate Decision = "escalate"
	Apply    Decision = "apply"
)

// DefaultThreshold is the confidence required for automated apply.
const DefaultThreshold = 85

// Decide is a pure function: confidence below the threshold escalates;
// confidence at or above it applies.
func Decide(confidence, threshold int) Decision {
	if confidence < threshold {
		return Escalate
	}
	return Apply
}
