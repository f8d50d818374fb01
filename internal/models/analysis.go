package models

// RiskLevel grades how dangerous an automated resolution would be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TagParseFailure marks an AnalysisResult synthesized after the AI
// collaborator's response could not be parsed at all.
const TagParseFailure = "parse-failure"

// Alternative is a suggested resolution the gate did not pick.
type Alternative struct {
	Description string `json:"description"`
	Diff        string `json:"diff"`
}

// AnalysisResult is the overall assessment for a session. Confidence is
// always present: on any collaborator or parse failure the result is
// synthesized with confidence 0 and TagParseFailure, never dropped.
type AnalysisResult struct {
	Confidence           int           `json:"confidence"`
	Summary              string        `json:"summary"`
	ConflictTypes        []string      `json:"conflict_types"`
	Risk                 RiskLevel     `json:"risk"`
	RiskFactors          []string      `json:"risk_factors"`
	LowConfidenceReasons []string      `json:"low_confidence_reasons"`
	Alternatives         []Alternative `json:"alternatives"`
}

// Strategy is the fixed vocabulary of resolution strategies.
type Strategy string

const (
	StrategySemanticMerge    Strategy = "semantic-merge"
	StrategyTestGuided       Strategy = "test-guided"
	StrategyCombined         Strategy = "combined-functionality"
	StrategyPreferHead       Strategy = "prefer-head"
	StrategyPreferBase       Strategy = "prefer-base"
	StrategyIntelligentMerge Strategy = "intelligent-merge"
)

// ResolutionRecord holds the conflict-free content for one file on the
// apply path. Never mutated after creation.
type ResolutionRecord struct {
	Path        string
	Content     string // resolved, conflict-marker-free
	Strategy    Strategy
	Explanation string
}
