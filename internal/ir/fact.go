package ir

import "time"

// Fact is an atomic observable: a typed variant, an optional location, its
// provenance, and free-form tags/metadata. Facts are immutable once
// constructed; the Fact Store borrows or owns them but never mutates them.
type Fact struct {
	ID         FactId
	Type       FactType
	Location   *SourceLocation
	Provenance Provenance
	ExtractedAt time.Time
	Tags       []string
	Metadata   map[string]string
}

// Kind returns the fact's discriminant, delegating to its FactType.
func (f Fact) Kind() FactKind { return f.Type.Kind() }

// ProjectMetadata describes the analyzed project.
type ProjectMetadata struct {
	Name       string
	Version    string
	Root       string
	Language   string
	GitCommit  string
	GitBranch  string
}

// SchemaVersion is the IR's embedded (major, minor) schema version. Major
// differences are incompatible; the core tolerates forward-compatible minor
// differences (§4.1).
type SchemaVersion struct {
	Major int
	Minor int
}

// AnalysisStats summarizes one extraction run.
type AnalysisStats struct {
	TotalFacts    int
	PerKindCounts map[FactKind]int
	ExtractorsUsed []ExtractorId
	WallDuration  time.Duration
}

// IntermediateRepresentation bundles an analysis run's facts with its
// project metadata, statistics, and schema version. It is the contract
// between producers (extractors) and the evaluation core.
type IntermediateRepresentation struct {
	AnalysisID string
	Timestamp  time.Time
	Project    ProjectMetadata
	Facts      []Fact
	Stats      AnalysisStats
	Schema     SchemaVersion
}
