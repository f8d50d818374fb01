package models

import "time"

// IssueRecord is a related issue-tracker ticket included in a bundle.
type IssueRecord struct {
	Key     string
	Summary string
	Status  string
	Depth   int // link distance from the source ticket
}

// ChangeRecord is a related change-request found by search.
type ChangeRecord struct {
	Number int
	Title  string
	State  string
	URL    string
}

// CommitRecord is one recent commit on the pull request.
type CommitRecord struct {
	SHA     string
	Message string
	Author  string
}

// CodePatternSummary classifies the shape of the change.
type CodePatternSummary struct {
	FileTypeCounts map[string]int
	ChangeSize     string // small, medium, large
	TotalFiles     int
}

// CoverageSummary reports test coverage around the conflicted files.
type CoverageSummary struct {
	Ratio     float64
	TestFiles []string
}

// ContextBundle is the immutable context snapshot assembled once per
// session. A retry produces a new bundle, never an in-place update.
type ContextBundle struct {
	Issues          []IssueRecord
	RelatedChanges  []ChangeRecord
	RecentCommits   []CommitRecord
	CodePatterns    CodePatternSummary
	Coverage        CoverageSummary
	TeamPreferences []string
	SourceFailures  map[string]string // source name -> failure detail
	AssembledAt     time.Time
}

// ConflictedFile is one file with unresolved merge markers.
type ConflictedFile struct {
	Path     string
	Content  string // raw content containing conflict markers
	Category string // e.g. import-vs-logic, inferred from the markers
}
