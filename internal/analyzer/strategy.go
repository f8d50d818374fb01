package analyzer

import (
	"strings"

	"github.com/mattsre/conflux/internal/models"
)

// StrategyClassifier derives a resolution strategy tag from the
// collaborator's free-text explanation. The preferred path is the
// structured strategy field in the response; this interface exists as a
// compatibility shim for responses that omit it.
type StrategyClassifier interface {
	Classify(explanation string) models.Strategy
}

// KeywordClassifier infers the strategy by keyword inspection.
// intelligent-merge is the fallback when nothing matches.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(explanation string) models.Strategy {
	text := strings.ToLower(explanation)
	switch {
	case strings.Contains(text, "semantic"):
		return models.StrategySemanticMerge
	case strings.Contains(text, "test"):
		return models.StrategyTestGuided
	case strings.Contains(text, "combin") || strings.Contains(text, "both"):
		return models.StrategyCombined
	case strings.Contains(text, "head") || strings.Contains(text, "incoming"):
		return models.StrategyPreferHead
	case strings.Contains(text, "base") || strings.Contains(text, "existing"):
		return models.StrategyPreferBase
	default:
		return models.StrategyIntelligentMerge
	}
}
