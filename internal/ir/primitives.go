// Package ir defines the atomic-fact intermediate representation: the
// versioned, validated contract between fact-producing extractors and the
// evaluation core. Facts are immutable once constructed.
package ir

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"
)

// FactId is a process-unique handle assigned by the Fact Store at build
// time. It is stable for the lifetime of the store that produced it.
type FactId uint64

// FlowId correlates facts that belong to the same data-flow path (a taint
// source and the sinks/sanitizations it reaches). Equality defines the
// flow-join relation.
type FlowId string

// NewScopedFlowID scopes a FlowId to an extractor identity and a monotonic
// sequence number, guaranteeing uniqueness within one extractor's output.
func NewScopedFlowID(extractor ExtractorId, seq uint64) FlowId {
	return FlowId(fmt.Sprintf("%s#%d", extractor.String(), seq))
}

// NewRandomFlowID returns a random 128-bit FlowId, unique across a run
// without any extractor-identity scoping.
func NewRandomFlowID() FlowId {
	return FlowId(uuid.New().String())
}

// LineNumber is a strictly positive line number; zero is unrepresentable.
type LineNumber int

// Valid reports whether the line number is representable (>= 1).
func (l LineNumber) Valid() bool { return l >= 1 }

// ColumnNumber is a strictly positive column number; zero is unrepresentable.
type ColumnNumber int

// Valid reports whether the column number is representable (>= 1).
func (c ColumnNumber) Valid() bool { return c >= 1 }

// Confidence is a real value in [0, 1].
type Confidence float64

// Named confidence presets.
const (
	ConfidenceLow    Confidence = 0.3
	ConfidenceMedium Confidence = 0.6
	ConfidenceHigh   Confidence = 0.9
)

// Valid reports whether the confidence lies in the closed unit interval.
func (c Confidence) Valid() bool { return c >= 0 && c <= 1 }

// CoveragePercentage is a real value in [0, 100].
type CoveragePercentage float64

// Valid reports whether the percentage lies in [0, 100].
func (c CoveragePercentage) Valid() bool { return c >= 0 && c <= 100 }

// Severity is an ordered risk level. Higher values are more severe.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityCritical
	SeverityBlocker
)

var severityNames = [...]string{"Info", "Minor", "Major", "Critical", "Blocker"}

func (s Severity) String() string {
	if s < SeverityInfo || s > SeverityBlocker {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ExitCode returns the process exit code recommended for a finding or gate
// failure at this severity: Info/Minor=0, Major=1, Critical=2, Blocker=3.
func (s Severity) ExitCode() int {
	switch {
	case s >= SeverityBlocker:
		return 3
	case s >= SeverityCritical:
		return 2
	case s >= SeverityMajor:
		return 1
	default:
		return 0
	}
}

// ParseSeverity parses the DSL's lower-case severity keywords.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "minor":
		return SeverityMinor, nil
	case "major":
		return SeverityMajor, nil
	case "critical":
		return SeverityCritical, nil
	case "blocker":
		return SeverityBlocker, nil
	default:
		return 0, fmt.Errorf("ir: unknown severity level %q", s)
	}
}

// ProjectPath is a canonicalized, project-relative, slash-separated path.
// Its only constructor, NewProjectPath, enforces the confinement invariant:
// it never resolves outside the declared project root.
type ProjectPath struct {
	clean string
}

// String returns the canonical project-relative path.
func (p ProjectPath) String() string { return p.clean }

// NewProjectPath canonicalizes raw against root and fails on traversal,
// non-UTF-8 input, or absolute escapes. It does not touch the filesystem:
// confinement is judged lexically against root, which is sufficient for
// facts produced by extractors that never themselves followed a symlink
// outside the project (a guarantee extractors must uphold, per §6.1).
func NewProjectPath(raw, root string) (ProjectPath, error) {
	if !utf8.ValidString(raw) {
		return ProjectPath{}, fmt.Errorf("ir: path %q is not valid UTF-8", raw)
	}
	if !utf8.ValidString(root) {
		return ProjectPath{}, fmt.Errorf("ir: project root %q is not valid UTF-8", root)
	}
	raw = filepathToSlash(raw)
	root = filepathToSlash(root)

	joined := raw
	if !path.IsAbs(raw) {
		joined = path.Join(root, raw)
	}
	cleanRoot := path.Clean(root)
	cleanJoined := path.Clean(joined)

	if cleanJoined != cleanRoot && !strings.HasPrefix(cleanJoined, cleanRoot+"/") {
		return ProjectPath{}, fmt.Errorf("ir: path %q escapes project root %q", raw, root)
	}

	rel := strings.TrimPrefix(cleanJoined, cleanRoot)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return ProjectPath{}, fmt.Errorf("ir: path %q resolves to the project root itself", raw)
	}
	if strings.Contains(rel, "..") {
		return ProjectPath{}, fmt.Errorf("ir: path %q escapes project root %q", raw, root)
	}
	return ProjectPath{clean: rel}, nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// SourceLocation locates a fact within a file: a project path, a line, and
// optional column and end-position.
type SourceLocation struct {
	Path      ProjectPath
	Line      LineNumber
	Column    *ColumnNumber
	EndLine   *LineNumber
	EndColumn *ColumnNumber
}

// SemanticVersion is an ordered (major, minor, patch, pre, build) version.
type SemanticVersion struct {
	Major, Minor, Patch int
	Pre                 string
	Build                string
}

// String renders the version in canonical semver form.
func (v SemanticVersion) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Compare returns -1, 0, or 1 per standard semver precedence rules (build
// metadata is ignored for ordering, as semver mandates). Delegates to
// golang.org/x/mod/semver rather than hand-rolling dot-segment precedence,
// since v's own canonical String form is already a valid (unprefixed)
// semver string.
func (v SemanticVersion) Compare(o SemanticVersion) int {
	return semver.Compare("v"+v.String(), "v"+o.String())
}

// ExtractorId is a closed enumeration of known extractors plus a Custom
// escape. Names participate in FlowId scoping (§3.1).
type ExtractorId struct {
	known  string
	custom string
}

var knownExtractors = map[string]bool{
	"sast-taint": true, "sast-crypto": true, "sast-unsafe": true,
	"quality-ast": true, "sca-deps": true, "sca-license": true,
	"coverage": true,
}

// NewExtractorId returns the extractor identity for one of the known
// built-in extractors.
func NewExtractorId(name string) ExtractorId {
	return ExtractorId{known: name}
}

// CustomExtractorId returns the Custom(name) escape for extractors not in
// the closed enumeration.
func CustomExtractorId(name string) ExtractorId {
	return ExtractorId{custom: name}
}

// String renders the extractor identity, "custom:<name>" for the escape.
func (e ExtractorId) String() string {
	if e.custom != "" {
		return "custom:" + e.custom
	}
	return e.known
}

// IsCustom reports whether this is the Custom(name) escape.
func (e ExtractorId) IsCustom() bool { return e.custom != "" }

// Provenance records who extracted a fact, with which version and
// confidence.
type Provenance struct {
	Extractor        ExtractorId
	ExtractorVersion string
	Confidence       Confidence
}
