package ir

// FactKind discriminates the closed FactType union. The zero value is
// invalid; every constructed Fact carries a non-zero Kind.
type FactKind string

// Core fact-kind discriminants, one per spec.md §3.2 table row, plus the
// Custom escape.
const (
	KindTaintSource           FactKind = "TaintSource"
	KindTaintSink             FactKind = "TaintSink"
	KindSanitization          FactKind = "Sanitization"
	KindUnsafeCall            FactKind = "UnsafeCall"
	KindCryptographicOp       FactKind = "CryptographicOperation"
	KindVulnerability         FactKind = "Vulnerability"
	KindFunction              FactKind = "Function"
	KindVariable              FactKind = "Variable"
	KindCodeSmell             FactKind = "CodeSmell"
	KindComplexityViolation   FactKind = "ComplexityViolation"
	KindDependency            FactKind = "Dependency"
	KindDependencyVulnerable  FactKind = "DependencyVulnerability"
	KindLicense               FactKind = "License"
	KindUncoveredLine         FactKind = "UncoveredLine"
	KindLowTestCoverage       FactKind = "LowTestCoverage"
	KindCoverageStats         FactKind = "CoverageStats"
	KindCustom                FactKind = "Custom"
)

// CoreKinds lists every closed-union discriminant (excluding Custom), used
// by the validator and DSL resolver to recognize core fact types.
var CoreKinds = []FactKind{
	KindTaintSource, KindTaintSink, KindSanitization, KindUnsafeCall,
	KindCryptographicOp, KindVulnerability, KindFunction, KindVariable,
	KindCodeSmell, KindComplexityViolation, KindDependency,
	KindDependencyVulnerable, KindLicense, KindUncoveredLine,
	KindLowTestCoverage, KindCoverageStats,
}

// SinkCategory closes the enumeration of dangerous operations a TaintSink
// performs.
type SinkCategory string

const (
	SinkSqlQuery          SinkCategory = "SqlQuery"
	SinkCommandExecution  SinkCategory = "CommandExecution"
	SinkFilesystemWrite   SinkCategory = "FilesystemWrite"
	SinkFilesystemRead    SinkCategory = "FilesystemRead"
	SinkNetwork           SinkCategory = "Network"
	SinkDeserialization   SinkCategory = "Deserialization"
	SinkEval              SinkCategory = "Eval"
	SinkHtmlRender        SinkCategory = "HtmlRender"
	SinkXpath             SinkCategory = "Xpath"
	SinkLdap              SinkCategory = "Ldap"
	SinkNoSql             SinkCategory = "NoSql"
)

// CryptoAlgorithm closes the enumeration of cryptographic algorithms a
// CryptographicOperation fact may name.
type CryptoAlgorithm string

const (
	AlgoMD5       CryptoAlgorithm = "MD5"
	AlgoSHA1      CryptoAlgorithm = "SHA1"
	AlgoSHA256    CryptoAlgorithm = "SHA256"
	AlgoAES       CryptoAlgorithm = "AES"
	AlgoDES       CryptoAlgorithm = "DES"
	AlgoRSA       CryptoAlgorithm = "RSA"
	AlgoECDSA     CryptoAlgorithm = "ECDSA"
	AlgoHMAC      CryptoAlgorithm = "HMAC"
)

// DependencyScope closes the enumeration of dependency scopes.
type DependencyScope string

const (
	ScopeProd     DependencyScope = "Prod"
	ScopeDev      DependencyScope = "Dev"
	ScopeTest     DependencyScope = "Test"
	ScopeRuntime  DependencyScope = "Runtime"
	ScopeProvided DependencyScope = "Provided"
	ScopeOptional DependencyScope = "Optional"
)

// CoverageScope closes the enumeration of CoverageStats scopes.
type CoverageScope string

const (
	CoverageScopeProject CoverageScope = "project"
	CoverageScopeModule  CoverageScope = "module"
	CoverageScopePackage CoverageScope = "package"
	CoverageScopeFile    CoverageScope = "file"
)

// FactType is the closed tagged union of atomic observables. Every core
// variant below implements isFactType(); CustomFact implements it too,
// carrying a dynamic value bag routed through the plugin registry.
type FactType interface {
	isFactType()
	Kind() FactKind
}

// TaintSource is a SAST fact: a variable that introduces untrusted data
// into a flow.
type TaintSource struct {
	Variable   string
	Flow       FlowId
	SourceKind string
	Confidence Confidence
}

func (TaintSource) isFactType()     {}
func (TaintSource) Kind() FactKind  { return KindTaintSource }

// TaintSink is a SAST fact: a function that consumes a flow in a dangerous
// way.
type TaintSink struct {
	Function    string
	ConsumesFlow FlowId
	Category    SinkCategory
	Severity    Severity
}

func (TaintSink) isFactType()    {}
func (TaintSink) Kind() FactKind { return KindTaintSink }

// Sanitization is a SAST fact: a method that neutralizes a flow.
type Sanitization struct {
	Method        string
	SanitizesFlow FlowId
	Effective     bool
	Confidence    Confidence
}

func (Sanitization) isFactType()    {}
func (Sanitization) Kind() FactKind { return KindSanitization }

// UnsafeCall is a SAST fact: a call flagged as unsafe independent of any
// flow.
type UnsafeCall struct {
	Function string
	Reason   string
	Severity Severity
}

func (UnsafeCall) isFactType()    {}
func (UnsafeCall) Kind() FactKind { return KindUnsafeCall }

// CryptographicOperation is a SAST fact describing a cryptographic call
// site.
type CryptographicOperation struct {
	Algorithm      CryptoAlgorithm
	KeyLengthBits  int
	Secure         bool
	Recommendation string
}

func (CryptographicOperation) isFactType()    {}
func (CryptographicOperation) Kind() FactKind { return KindCryptographicOp }

// Vulnerability is a SAST fact describing a known weakness at a location.
type Vulnerability struct {
	CWE         string
	OWASP       string
	Severity    Severity
	CVSS        *float64
	Description string
	Confidence  Confidence
}

func (Vulnerability) isFactType()    {}
func (Vulnerability) Kind() FactKind { return KindVulnerability }

// Function is a Quality fact describing one function/method declaration.
type Function struct {
	Name                string
	Visibility          string
	CyclomaticComplexity int
	CognitiveComplexity  int
	LOC                  int
	ParameterCount       int
}

func (Function) isFactType()    {}
func (Function) Kind() FactKind { return KindFunction }

// Variable is a Quality fact describing one variable declaration.
type Variable struct {
	Name      string
	Scope     string
	Mutable   bool
	ValueType string
}

func (Variable) isFactType()    {}
func (Variable) Kind() FactKind { return KindVariable }

// CodeSmell is a Quality fact describing a non-structural quality issue.
type CodeSmell struct {
	SmellKind string
	Severity  Severity
	Message   string
}

func (CodeSmell) isFactType()    {}
func (CodeSmell) Kind() FactKind { return KindCodeSmell }

// ComplexityViolation is a Quality fact: a metric that crossed a
// configured threshold.
type ComplexityViolation struct {
	MetricKind string
	Actual     float64
	Threshold  float64
}

func (ComplexityViolation) isFactType()    {}
func (ComplexityViolation) Kind() FactKind { return KindComplexityViolation }

// Dependency is an SCA fact describing one resolved dependency edge.
type Dependency struct {
	Name      string
	Version   SemanticVersion
	Ecosystem string
	Scope     DependencyScope
	Direct    bool
}

func (Dependency) isFactType()    {}
func (Dependency) Kind() FactKind { return KindDependency }

// DependencyVulnerability is an SCA fact describing a CVE affecting a
// resolved dependency.
type DependencyVulnerability struct {
	DependencyName string
	CVE            string
	Severity       Severity
	CVSS           float64
	AffectedRange  string
	PatchedVersion *SemanticVersion
	Description    string
}

func (DependencyVulnerability) isFactType()    {}
func (DependencyVulnerability) Kind() FactKind { return KindDependencyVulnerable }

// License is an SCA fact describing a dependency's license.
type License struct {
	DependencyName string
	LicenseKind    string
	Compatible     bool
	SPDXId         string
}

func (License) isFactType()    {}
func (License) Kind() FactKind { return KindLicense }

// UncoveredLine is a Coverage fact: a single line not exercised by tests.
type UncoveredLine struct {
	CoveragePercent CoveragePercentage
	BranchPercent   *CoveragePercentage
}

func (UncoveredLine) isFactType()    {}
func (UncoveredLine) Kind() FactKind { return KindUncoveredLine }

// LowTestCoverage is a Coverage fact: a file whose coverage fell below a
// threshold.
type LowTestCoverage struct {
	File            string
	Percent         CoveragePercentage
	TotalLines      int
	UncoveredLines  int
}

func (LowTestCoverage) isFactType()    {}
func (LowTestCoverage) Kind() FactKind { return KindLowTestCoverage }

// CoverageStats is a Coverage fact: an aggregate coverage figure at project,
// module, package, or file scope.
type CoverageStats struct {
	Scope           CoverageScope
	Path            string
	LinePercent     CoveragePercentage
	BranchPercent   *CoveragePercentage
	FunctionPercent *CoveragePercentage
}

func (CoverageStats) isFactType()    {}
func (CoverageStats) Kind() FactKind { return KindCoverageStats }

// CustomFact is the registry-routed escape for fact types not in the
// closed core union. Fields is a dynamic value bag validated against a
// registered FactTypeSchema at IR-validation time (see internal/registry).
type CustomFact struct {
	Discriminant string
	Fields       map[string]any
}

func (CustomFact) isFactType()    {}
func (CustomFact) Kind() FactKind { return KindCustom }
