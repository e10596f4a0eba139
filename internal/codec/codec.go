// Package codec implements the wire encoding for internal/ir documents
// (spec.md §4.7): CBOR over github.com/fxamacker/cbor/v2, with stable
// integer field tags, a string/path intern table shared by every fact in
// the document, and lazy per-fact payload decoding so a reader that only
// needs a handful of facts out of a large document doesn't pay to decode
// the rest.
package codec

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/1homsi/govern/internal/ir"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.CanonicalEncOptions()
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building canonical CBOR encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: building CBOR decode mode: %v", err))
	}
}

// Encode serializes an IntermediateRepresentation to its wire form. Every
// distinct project path is interned once; facts reference it by index.
func Encode(doc ir.IntermediateRepresentation) ([]byte, error) {
	interner := newInterner()
	wireFacts := make([]wireFact, 0, len(doc.Facts))
	for _, f := range doc.Facts {
		wf, err := encodeFact(f, interner)
		if err != nil {
			return nil, fmt.Errorf("codec: encoding fact %d: %w", f.ID, err)
		}
		wireFacts = append(wireFacts, wf)
	}

	perKind := make(map[string]int, len(doc.Stats.PerKindCounts))
	for k, v := range doc.Stats.PerKindCounts {
		perKind[string(k)] = v
	}
	extractors := make([]string, 0, len(doc.Stats.ExtractorsUsed))
	for _, e := range doc.Stats.ExtractorsUsed {
		extractors = append(extractors, e.String())
	}

	wd := wireDoc{
		SchemaMajor: doc.Schema.Major,
		SchemaMinor: doc.Schema.Minor,
		AnalysisID:  doc.AnalysisID,
		TimestampNs: doc.Timestamp.UnixNano(),
		Project: wireProject{
			Name:      doc.Project.Name,
			Version:   doc.Project.Version,
			Root:      doc.Project.Root,
			Language:  doc.Project.Language,
			GitCommit: doc.Project.GitCommit,
			GitBranch: doc.Project.GitBranch,
		},
		Paths: interner.strings,
		Facts: wireFacts,
		Stats: wireStats{
			TotalFacts:     doc.Stats.TotalFacts,
			PerKindCounts:  perKind,
			ExtractorsUsed: extractors,
			WallDurationNs: int64(doc.Stats.WallDuration),
		},
	}
	return encMode.Marshal(wd)
}

// Decode deserializes a document eagerly: every fact's payload is decoded
// immediately. Use NewReader for large documents that only need a subset
// of facts materialized.
func Decode(data []byte) (ir.IntermediateRepresentation, error) {
	r, err := NewReader(data)
	if err != nil {
		return ir.IntermediateRepresentation{}, err
	}
	facts := make([]ir.Fact, r.Len())
	for i := 0; i < r.Len(); i++ {
		f, err := r.Fact(i)
		if err != nil {
			return ir.IntermediateRepresentation{}, err
		}
		facts[i] = f
	}
	return ir.IntermediateRepresentation{
		AnalysisID: r.doc.AnalysisID,
		Timestamp:  time.Unix(0, r.doc.TimestampNs).UTC(),
		Project:    r.project(),
		Facts:      facts,
		Stats:      r.stats(),
		Schema:     ir.SchemaVersion{Major: r.doc.SchemaMajor, Minor: r.doc.SchemaMinor},
	}, nil
}

// Reader gives lazy, random-access decoding over a wire document: the
// envelope (project metadata, stats, path intern table) and every fact's
// fixed-size header are decoded up front, but a fact's kind-specific
// payload is only unmarshaled the first time Fact(i) is called.
type Reader struct {
	doc wireDoc
}

// NewReader decodes a document's envelope and fact headers, without
// touching any fact's kind-specific payload.
func NewReader(data []byte) (*Reader, error) {
	var wd wireDoc
	if err := decMode.Unmarshal(data, &wd); err != nil {
		return nil, fmt.Errorf("codec: decoding document: %w", err)
	}
	return &Reader{doc: wd}, nil
}

// Len returns the number of facts in the document.
func (r *Reader) Len() int { return len(r.doc.Facts) }

// Fact decodes and returns the i'th fact, including its kind-specific
// payload.
func (r *Reader) Fact(i int) (ir.Fact, error) {
	if i < 0 || i >= len(r.doc.Facts) {
		return ir.Fact{}, fmt.Errorf("codec: fact index %d out of range [0, %d)", i, len(r.doc.Facts))
	}
	return decodeFact(r.doc.Facts[i], r.doc.Paths, r.doc.Project.Root)
}

func (r *Reader) project() ir.ProjectMetadata {
	return ir.ProjectMetadata{
		Name:      r.doc.Project.Name,
		Version:   r.doc.Project.Version,
		Root:      r.doc.Project.Root,
		Language:  r.doc.Project.Language,
		GitCommit: r.doc.Project.GitCommit,
		GitBranch: r.doc.Project.GitBranch,
	}
}

func (r *Reader) stats() ir.AnalysisStats {
	perKind := make(map[ir.FactKind]int, len(r.doc.Stats.PerKindCounts))
	for k, v := range r.doc.Stats.PerKindCounts {
		perKind[ir.FactKind(k)] = v
	}
	extractors := make([]ir.ExtractorId, 0, len(r.doc.Stats.ExtractorsUsed))
	for _, e := range r.doc.Stats.ExtractorsUsed {
		extractors = append(extractors, ir.NewExtractorId(e))
	}
	return ir.AnalysisStats{
		TotalFacts:     r.doc.Stats.TotalFacts,
		PerKindCounts:  perKind,
		ExtractorsUsed: extractors,
		WallDuration:   time.Duration(r.doc.Stats.WallDurationNs),
	}
}

// interner assigns a stable index to each distinct path string, in first-
// seen order, so the wire doc's Paths table and every fact's PathIndex
// agree.
type interner struct {
	index   map[string]int32
	strings []string
}

func newInterner() *interner {
	return &interner{index: make(map[string]int32)}
}

func (n *interner) intern(s string) int32 {
	if idx, ok := n.index[s]; ok {
		return idx
	}
	idx := int32(len(n.strings))
	n.index[s] = idx
	n.strings = append(n.strings, s)
	return idx
}
