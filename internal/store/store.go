// Package store builds and serves the indexed, immutable Fact Store: the
// primary and auxiliary indexes the Query Planner needs to avoid full
// scans (spec.md §4.2). The store is built once per run and never mutated
// thereafter, so it is safe for concurrent read from many goroutines.
package store

import (
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/1homsi/govern/internal/ir"
)

// locationKey is the by-location index's bucket key: an interned path
// handle plus a line number. xxhash of this pair selects a bucket; the
// bucket itself stores the real key alongside its facts so hash collisions
// never corrupt lookups.
type locationKey struct {
	pathHandle uint32
	line       ir.LineNumber
}

func (k locationKey) hash() uint64 {
	var buf [12]byte
	buf[0] = byte(k.pathHandle)
	buf[1] = byte(k.pathHandle >> 8)
	buf[2] = byte(k.pathHandle >> 16)
	buf[3] = byte(k.pathHandle >> 24)
	l := uint32(k.line)
	buf[4] = byte(l)
	buf[5] = byte(l >> 8)
	buf[6] = byte(l >> 16)
	buf[7] = byte(l >> 24)
	return xxhash.Sum64(buf[:8])
}

type locationBucket struct {
	key   locationKey
	facts []ir.FactId
}

// Statistics summarizes the store for the Query Planner's cost model.
type Statistics struct {
	PerKindCounts   map[ir.FactKind]int
	UniqueLocations int
	UniqueFlows     int
	BuildDuration   time.Duration
}

// Store is the immutable, indexed home of one run's validated facts.
type Store struct {
	facts []ir.Fact // arena; index == FactId

	byKind       map[ir.FactKind][]ir.FactId
	byLocation   map[uint64][]*locationBucket
	byFlow       map[ir.FlowId][]ir.FactId
	byDependency map[string][]ir.FactId
	bySeverity   map[ir.Severity][]ir.FactId

	paths     []string
	pathIndex map[string]uint32

	stats Statistics
}

// Build constructs a Store from a validated IR in a single linear pass.
func Build(doc ir.IntermediateRepresentation) *Store {
	start := time.Now()
	s := &Store{
		facts:        make([]ir.Fact, len(doc.Facts)),
		byKind:       make(map[ir.FactKind][]ir.FactId),
		byLocation:   make(map[uint64][]*locationBucket),
		byFlow:       make(map[ir.FlowId][]ir.FactId),
		byDependency: make(map[string][]ir.FactId),
		bySeverity:   make(map[ir.Severity][]ir.FactId),
		pathIndex:    make(map[string]uint32),
	}

	for i, f := range doc.Facts {
		f.ID = ir.FactId(i)
		s.facts[i] = f
		id := f.ID

		s.byKind[f.Kind()] = append(s.byKind[f.Kind()], id)

		if f.Location != nil {
			handle := s.intern(f.Location.Path.String())
			s.indexLocation(handle, f.Location.Line, id)
		}

		if flow, ok := flowOf(f.Type); ok {
			s.byFlow[flow] = append(s.byFlow[flow], id)
		}

		if dep, ok := dependencyNameOf(f.Type); ok {
			s.byDependency[dep] = append(s.byDependency[dep], id)
		}

		if sev, ok := severityOf(f.Type); ok {
			s.bySeverity[sev] = append(s.bySeverity[sev], id)
		}
	}

	perKind := make(map[ir.FactKind]int, len(s.byKind))
	for k, v := range s.byKind {
		perKind[k] = len(v)
	}

	s.stats = Statistics{
		PerKindCounts:   perKind,
		UniqueLocations: countBuckets(s.byLocation),
		UniqueFlows:     len(s.byFlow),
		BuildDuration:   time.Since(start),
	}
	return s
}

func countBuckets(m map[uint64][]*locationBucket) int {
	n := 0
	for _, buckets := range m {
		n += len(buckets)
	}
	return n
}

func (s *Store) intern(path string) uint32 {
	if h, ok := s.pathIndex[path]; ok {
		return h
	}
	h := uint32(len(s.paths))
	s.paths = append(s.paths, path)
	s.pathIndex[path] = h
	return h
}

func (s *Store) indexLocation(pathHandle uint32, line ir.LineNumber, id ir.FactId) {
	key := locationKey{pathHandle: pathHandle, line: line}
	h := key.hash()
	buckets := s.byLocation[h]
	for _, b := range buckets {
		if b.key == key {
			b.facts = append(b.facts, id)
			return
		}
	}
	s.byLocation[h] = append(buckets, &locationBucket{key: key, facts: []ir.FactId{id}})
}

// flowOf extracts the FlowId a fact participates in, if any.
func flowOf(t ir.FactType) (ir.FlowId, bool) {
	switch v := t.(type) {
	case ir.TaintSource:
		return v.Flow, true
	case ir.TaintSink:
		return v.ConsumesFlow, true
	case ir.Sanitization:
		return v.SanitizesFlow, true
	default:
		return "", false
	}
}

func dependencyNameOf(t ir.FactType) (string, bool) {
	switch v := t.(type) {
	case ir.Dependency:
		return v.Name, true
	case ir.DependencyVulnerability:
		return v.DependencyName, true
	case ir.License:
		return v.DependencyName, true
	default:
		return "", false
	}
}

func severityOf(t ir.FactType) (ir.Severity, bool) {
	switch v := t.(type) {
	case ir.TaintSink:
		return v.Severity, true
	case ir.UnsafeCall:
		return v.Severity, true
	case ir.Vulnerability:
		return v.Severity, true
	case ir.CodeSmell:
		return v.Severity, true
	case ir.DependencyVulnerability:
		return v.Severity, true
	default:
		return 0, false
	}
}

// Fact returns the fact stored at id.
func (s *Store) Fact(id ir.FactId) (ir.Fact, bool) {
	if int(id) < 0 || int(id) >= len(s.facts) {
		return ir.Fact{}, false
	}
	return s.facts[id], true
}

// Statistics returns the per-kind counts and index sizes used by the Query
// Planner's cost model.
func (s *Store) Statistics() Statistics { return s.stats }

// IterateByKind returns every FactId of the given discriminant, in
// insertion order.
func (s *Store) IterateByKind(kind ir.FactKind) []ir.FactId {
	return s.byKind[kind]
}

// LookupByLocation returns every fact co-located at (path, line).
func (s *Store) LookupByLocation(path string, line ir.LineNumber) []ir.FactId {
	handle, ok := s.pathIndex[path]
	if !ok {
		return nil
	}
	key := locationKey{pathHandle: handle, line: line}
	for _, b := range s.byLocation[key.hash()] {
		if b.key == key {
			return b.facts
		}
	}
	return nil
}

// LookupByFlow returns every fact participating in flow (source, sinks,
// sanitizations).
func (s *Store) LookupByFlow(flow ir.FlowId) []ir.FactId {
	return s.byFlow[flow]
}

// LookupByDependency returns every Dependency/DependencyVulnerability/
// License fact naming dep.
func (s *Store) LookupByDependency(dep string) []ir.FactId {
	return s.byDependency[dep]
}

// LookupBySeverity returns every severity-bearing fact at the given level.
func (s *Store) LookupBySeverity(sev ir.Severity) []ir.FactId {
	return s.bySeverity[sev]
}

// SpatialJoin yields every pair (a, b) of FactIds of kinds ka and kb that
// share a (path, line) location, per spec.md §4.2: iterate location
// buckets, partition by discriminant within each, emit the Cartesian
// product restricted to ka×kb.
func (s *Store) SpatialJoin(ka, kb ir.FactKind) [][2]ir.FactId {
	var out [][2]ir.FactId
	for _, buckets := range s.byLocation {
		for _, b := range buckets {
			var as, bs []ir.FactId
			for _, id := range b.facts {
				f := s.facts[id]
				if f.Kind() == ka {
					as = append(as, id)
				}
				if f.Kind() == kb {
					bs = append(bs, id)
				}
			}
			for _, a := range as {
				for _, b2 := range bs {
					if ka == kb && a == b2 {
						continue
					}
					out = append(out, [2]ir.FactId{a, b2})
				}
			}
		}
	}
	sortPairs(out)
	return out
}

// FlowJoin yields every pair (a, b) of FactIds of kinds ka and kb that
// share a FlowId.
func (s *Store) FlowJoin(ka, kb ir.FactKind) [][2]ir.FactId {
	var out [][2]ir.FactId
	for _, ids := range s.byFlow {
		var as, bs []ir.FactId
		for _, id := range ids {
			f := s.facts[id]
			if f.Kind() == ka {
				as = append(as, id)
			}
			if f.Kind() == kb {
				bs = append(bs, id)
			}
		}
		for _, a := range as {
			for _, b := range bs {
				if ka == kb && a == b {
					continue
				}
				out = append(out, [2]ir.FactId{a, b})
			}
		}
	}
	sortPairs(out)
	return out
}

func sortPairs(pairs [][2]ir.FactId) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}
