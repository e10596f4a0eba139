package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1homsi/govern/internal/codec"
	"github.com/1homsi/govern/internal/ir"
)

func samplePath(t *testing.T, p string) ir.ProjectPath {
	t.Helper()
	pp, err := ir.NewProjectPath(p, "/proj")
	require.NoError(t, err)
	return pp
}

func sampleDoc(t *testing.T) ir.IntermediateRepresentation {
	t.Helper()
	flow := ir.NewRandomFlowID()
	loc := &ir.SourceLocation{Path: samplePath(t, "/proj/app.go"), Line: 42}
	cvss := 9.8
	branch := ir.CoveragePercentage(80)

	return ir.IntermediateRepresentation{
		AnalysisID: "run-1",
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		Project: ir.ProjectMetadata{
			Name: "demo", Version: "1.0.0", Root: "/proj", Language: "go",
			GitCommit: "abc123", GitBranch: "main",
		},
		Facts: []ir.Fact{
			{
				ID:         0,
				Type:       ir.TaintSource{Variable: "req.Body", Flow: flow, SourceKind: "http-request", Confidence: ir.ConfidenceHigh},
				Location:   loc,
				Provenance: ir.Provenance{Extractor: ir.NewExtractorId("sast-taint"), ExtractorVersion: "1.2.0", Confidence: ir.ConfidenceHigh},
				ExtractedAt: time.Unix(1700000001, 0).UTC(),
				Tags:       []string{"http"},
				Metadata:   map[string]string{"note": "entrypoint"},
			},
			{
				ID:         1,
				Type:       ir.TaintSink{Function: "db.Query", ConsumesFlow: flow, Category: ir.SinkSqlQuery, Severity: ir.SeverityCritical},
				Location:   loc,
				Provenance: ir.Provenance{Extractor: ir.NewExtractorId("sast-taint"), ExtractorVersion: "1.2.0", Confidence: ir.ConfidenceHigh},
				ExtractedAt: time.Unix(1700000001, 0).UTC(),
			},
			{
				ID:   2,
				Type: ir.Vulnerability{CWE: "CWE-89", OWASP: "A03:2021", Severity: ir.SeverityCritical, CVSS: &cvss, Description: "SQL injection", Confidence: ir.ConfidenceHigh},
			},
			{
				ID:   3,
				Type: ir.Dependency{Name: "golang.org/x/crypto", Version: ir.SemanticVersion{Major: 0, Minor: 17, Patch: 0}, Ecosystem: "go", Scope: ir.ScopeProd, Direct: true},
			},
			{
				ID:   4,
				Type: ir.CoverageStats{Scope: ir.CoverageScopeFile, Path: "app.go", LinePercent: 72.5, BranchPercent: &branch},
			},
			{
				ID:   5,
				Type: ir.CustomFact{Discriminant: "infra::terraform::public_bucket", Fields: map[string]any{"bucket": "logs", "public": true}},
			},
		},
		Stats: ir.AnalysisStats{
			TotalFacts:     6,
			PerKindCounts:  map[ir.FactKind]int{ir.KindTaintSource: 1, ir.KindTaintSink: 1},
			ExtractorsUsed: []ir.ExtractorId{ir.NewExtractorId("sast-taint")},
			WallDuration:   250 * time.Millisecond,
		},
		Schema: ir.SchemaVersion{Major: 1, Minor: 0},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := sampleDoc(t)
	data, err := codec.Encode(doc)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := codec.Decode(data)
	require.NoError(t, err)

	require.Len(t, got.Facts, len(doc.Facts))
	assert.Equal(t, doc.AnalysisID, got.AnalysisID)
	assert.Equal(t, doc.Schema, got.Schema)
	assert.Equal(t, doc.Project, got.Project)
	assert.Equal(t, doc.Stats.TotalFacts, got.Stats.TotalFacts)
	assert.Equal(t, doc.Stats.WallDuration, got.Stats.WallDuration)

	assert.Equal(t, doc.Facts[0].Type, got.Facts[0].Type)
	assert.Equal(t, doc.Facts[1].Type, got.Facts[1].Type)
	assert.Equal(t, doc.Facts[2].Type, got.Facts[2].Type)
	assert.Equal(t, doc.Facts[3].Type, got.Facts[3].Type)
	assert.Equal(t, doc.Facts[4].Type, got.Facts[4].Type)
	assert.Equal(t, doc.Facts[5].Type, got.Facts[5].Type)

	require.NotNil(t, got.Facts[0].Location)
	assert.Equal(t, "app.go", got.Facts[0].Location.Path.String())
	assert.Equal(t, ir.LineNumber(42), got.Facts[0].Location.Line)
	assert.Equal(t, "entrypoint", got.Facts[0].Metadata["note"])
	assert.Equal(t, []string{"http"}, got.Facts[0].Tags)
}

func TestReaderDecodesFactsLazily(t *testing.T) {
	doc := sampleDoc(t)
	data, err := codec.Encode(doc)
	require.NoError(t, err)

	r, err := codec.NewReader(data)
	require.NoError(t, err)
	require.Equal(t, len(doc.Facts), r.Len())

	f, err := r.Fact(3)
	require.NoError(t, err)
	assert.Equal(t, doc.Facts[3].Type, f.Type)
}

func TestReaderFactOutOfRange(t *testing.T) {
	doc := sampleDoc(t)
	data, err := codec.Encode(doc)
	require.NoError(t, err)

	r, err := codec.NewReader(data)
	require.NoError(t, err)

	_, err = r.Fact(999)
	assert.Error(t, err)
}

func TestPathsAreInternedOnce(t *testing.T) {
	doc := sampleDoc(t)
	data, err := codec.Encode(doc)
	require.NoError(t, err)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	// facts 0 and 1 share the same location; the intern table should
	// collapse them to one entry round-tripping to the same path.
	assert.Equal(t, got.Facts[0].Location.Path, got.Facts[1].Location.Path)
}
