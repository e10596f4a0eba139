package codec

import "github.com/fxamacker/cbor/v2"

// The wire* types below are the CBOR-on-the-wire shapes (spec.md §4.7):
// every field carries a stable, small integer tag via `cbor:"N,keyasint"`
// so the wire format is compact and renaming a Go field never changes the
// bytes on disk. They mirror internal/ir's types but are kept separate so
// the IR package never has to know about its own serialization.

type wireDoc struct {
	SchemaMajor int         `cbor:"1,keyasint"`
	SchemaMinor int         `cbor:"2,keyasint"`
	AnalysisID  string      `cbor:"3,keyasint"`
	TimestampNs int64       `cbor:"4,keyasint"`
	Project     wireProject `cbor:"5,keyasint"`
	Paths       []string    `cbor:"6,keyasint"` // intern table; facts reference it by index
	Facts       []wireFact  `cbor:"7,keyasint"`
	Stats       wireStats   `cbor:"8,keyasint"`
}

type wireProject struct {
	Name      string `cbor:"1,keyasint"`
	Version   string `cbor:"2,keyasint"`
	Root      string `cbor:"3,keyasint"`
	Language  string `cbor:"4,keyasint"`
	GitCommit string `cbor:"5,keyasint"`
	GitBranch string `cbor:"6,keyasint"`
}

type wireStats struct {
	TotalFacts     int            `cbor:"1,keyasint"`
	PerKindCounts  map[string]int `cbor:"2,keyasint"`
	ExtractorsUsed []string       `cbor:"3,keyasint"`
	WallDurationNs int64          `cbor:"4,keyasint"`
}

// wireFact is the per-fact envelope. Payload holds the kind-specific body,
// still CBOR-encoded: Reader.Fact only unwraps it on first access to that
// fact, so a reader that only wants a handful of facts out of a large
// document never pays to decode the rest. Decode is the eager path and
// unwraps every payload.
type wireFact struct {
	ID               uint64          `cbor:"1,keyasint"`
	Kind             string          `cbor:"2,keyasint"`
	PathIndex        int32           `cbor:"3,keyasint"` // -1 means no location
	Line             int32           `cbor:"4,keyasint"`
	Column           int32           `cbor:"5,keyasint"` // 0 means absent
	EndLine          int32           `cbor:"6,keyasint"` // 0 means absent
	EndColumn         int32          `cbor:"7,keyasint"` // 0 means absent
	Extractor        string          `cbor:"8,keyasint"`
	ExtractorCustom  bool            `cbor:"9,keyasint"`
	ExtractorVersion string          `cbor:"10,keyasint"`
	Confidence       float64         `cbor:"11,keyasint"`
	ExtractedAtNs    int64           `cbor:"12,keyasint"`
	Tags             []string        `cbor:"13,keyasint"`
	Metadata         map[string]string `cbor:"14,keyasint"`
	Payload          cbor.RawMessage `cbor:"15,keyasint"`
}

// One wire struct per core FactType variant, field-tag numbered the same
// way as wireFact. CustomFact's Fields bag is encoded directly as a CBOR
// map since its shape is inherently dynamic.

type wireTaintSource struct {
	Variable   string  `cbor:"1,keyasint"`
	Flow       string  `cbor:"2,keyasint"`
	SourceKind string  `cbor:"3,keyasint"`
	Confidence float64 `cbor:"4,keyasint"`
}

type wireTaintSink struct {
	Function     string `cbor:"1,keyasint"`
	ConsumesFlow string `cbor:"2,keyasint"`
	Category     string `cbor:"3,keyasint"`
	Severity     int    `cbor:"4,keyasint"`
}

type wireSanitization struct {
	Method        string  `cbor:"1,keyasint"`
	SanitizesFlow string  `cbor:"2,keyasint"`
	Effective     bool    `cbor:"3,keyasint"`
	Confidence    float64 `cbor:"4,keyasint"`
}

type wireUnsafeCall struct {
	Function string `cbor:"1,keyasint"`
	Reason   string `cbor:"2,keyasint"`
	Severity int    `cbor:"3,keyasint"`
}

type wireCryptographicOperation struct {
	Algorithm      string `cbor:"1,keyasint"`
	KeyLengthBits  int    `cbor:"2,keyasint"`
	Secure         bool   `cbor:"3,keyasint"`
	Recommendation string `cbor:"4,keyasint"`
}

type wireVulnerability struct {
	CWE         string   `cbor:"1,keyasint"`
	OWASP       string   `cbor:"2,keyasint"`
	Severity    int      `cbor:"3,keyasint"`
	CVSS        *float64 `cbor:"4,keyasint"`
	Description string   `cbor:"5,keyasint"`
	Confidence  float64  `cbor:"6,keyasint"`
}

type wireFunction struct {
	Name                 string `cbor:"1,keyasint"`
	Visibility           string `cbor:"2,keyasint"`
	CyclomaticComplexity int    `cbor:"3,keyasint"`
	CognitiveComplexity  int    `cbor:"4,keyasint"`
	LOC                  int    `cbor:"5,keyasint"`
	ParameterCount       int    `cbor:"6,keyasint"`
}

type wireVariable struct {
	Name      string `cbor:"1,keyasint"`
	Scope     string `cbor:"2,keyasint"`
	Mutable   bool   `cbor:"3,keyasint"`
	ValueType string `cbor:"4,keyasint"`
}

type wireCodeSmell struct {
	SmellKind string `cbor:"1,keyasint"`
	Severity  int    `cbor:"2,keyasint"`
	Message   string `cbor:"3,keyasint"`
}

type wireComplexityViolation struct {
	MetricKind string  `cbor:"1,keyasint"`
	Actual     float64 `cbor:"2,keyasint"`
	Threshold  float64 `cbor:"3,keyasint"`
}

type wireDependency struct {
	Name      string `cbor:"1,keyasint"`
	Version   string `cbor:"2,keyasint"`
	Ecosystem string `cbor:"3,keyasint"`
	Scope     string `cbor:"4,keyasint"`
	Direct    bool   `cbor:"5,keyasint"`
}

type wireDependencyVulnerability struct {
	DependencyName string  `cbor:"1,keyasint"`
	CVE            string  `cbor:"2,keyasint"`
	Severity       int     `cbor:"3,keyasint"`
	CVSS           float64 `cbor:"4,keyasint"`
	AffectedRange  string  `cbor:"5,keyasint"`
	PatchedVersion *string `cbor:"6,keyasint"`
	Description    string  `cbor:"7,keyasint"`
}

type wireLicense struct {
	DependencyName string `cbor:"1,keyasint"`
	LicenseKind    string `cbor:"2,keyasint"`
	Compatible     bool   `cbor:"3,keyasint"`
	SPDXId         string `cbor:"4,keyasint"`
}

type wireUncoveredLine struct {
	CoveragePercent float64  `cbor:"1,keyasint"`
	BranchPercent   *float64 `cbor:"2,keyasint"`
}

type wireLowTestCoverage struct {
	File           string  `cbor:"1,keyasint"`
	Percent        float64 `cbor:"2,keyasint"`
	TotalLines     int     `cbor:"3,keyasint"`
	UncoveredLines int     `cbor:"4,keyasint"`
}

type wireCoverageStats struct {
	Scope           string   `cbor:"1,keyasint"`
	Path            string   `cbor:"2,keyasint"`
	LinePercent     float64  `cbor:"3,keyasint"`
	BranchPercent   *float64 `cbor:"4,keyasint"`
	FunctionPercent *float64 `cbor:"5,keyasint"`
}

type wireCustomFact struct {
	Discriminant string         `cbor:"1,keyasint"`
	Fields       map[string]any `cbor:"2,keyasint"`
}
