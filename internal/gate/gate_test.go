package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		confidence int
		threshold  int
		want       Decision
	}{
		{"well below threshold", 40, 85, Escalate},
		{"just below threshold", 84, 85, Escalate},
		{"exactly at threshold", 85, 85, Apply},
		{"above threshold", 92, 85, Apply},
		{"zero confidence", 0, 85, Escalate},
		{"max confidence", 100, 85, Apply},
		{"lowered threshold via force", 60, 50, Apply},
		{"threshold zero applies everything", 0, 0, Apply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.confidence, tt.threshold))
		})
	}
}
