// Package index holds the append-only catalogue of processed calibration
// frames for one calibration type. Records live in an arena owned by the
// Index; queries hand out positional views, never copies of header data.
package index

import (
	"context"
	"fmt"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/rules"
)

// TimeField is the observation timestamp every record must carry. It is a
// monotonically-meaningful float used for recency tie-breaks.
const TimeField = "ORACTIME"

// FileField names the reduced frame a record describes. Callers extract it
// from a selected record; the engine itself never interprets it.
const FileField = "ORACFILE"

// Record is one indexed calibration frame: its header set plus the
// insertion sequence number assigned by the index.
type Record struct {
	Seq    int
	Header header.Set
}

// Time returns the record's ORACTIME as a float.
func (r Record) Time() (float64, error) {
	v, ok := r.Header.Lookup(TimeField)
	if !ok {
		return 0, fmt.Errorf("record %d has no %s", r.Seq, TimeField)
	}
	return v.Float()
}

// File returns the record's frame identifier, or its sequence number
// rendered as text when the field is absent.
func (r Record) File() string {
	if v, ok := r.Header.Lookup(FileField); ok {
		return v.Text()
	}
	return fmt.Sprintf("#%d", r.Seq)
}

// Index is an in-memory, append-only record catalogue. It is not safe for
// concurrent use; within one pipeline run appends and queries are strictly
// interleaved, and sharing an on-disk index across processes is the
// Store's concern.
type Index struct {
	records []Record
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Load builds an index from a store snapshot. Records made visible by a
// concurrent external writer after this point are not seen until the next
// Load.
func Load(ctx context.Context, store Store) (*Index, error) {
	sets, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ix := New()
	for _, h := range sets {
		if _, err := ix.Append(h); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Append adds one record and returns it. Duplicate header sets are legal —
// they are distinct frames taken at different times — but a record without
// a numeric ORACTIME is rejected, since it could never take part in a
// tie-break.
func (ix *Index) Append(h header.Set) (Record, error) {
	v, ok := h.Lookup(TimeField)
	if !ok {
		return Record{}, fmt.Errorf("record has no %s", TimeField)
	}
	if _, err := v.Float(); err != nil {
		return Record{}, fmt.Errorf("%s %q is not numeric", TimeField, v.Text())
	}
	rec := Record{Seq: len(ix.records), Header: h}
	ix.records = append(ix.records, rec)
	return rec, nil
}

// Len returns the number of records.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Records returns the backing record slice in insertion order. Callers
// must not mutate it.
func (ix *Index) Records() []Record {
	return ix.records
}

// Select returns the records the rule set matches against the reference
// header, in insertion order. A per-candidate evaluation error (missing
// field, non-numeric value) disqualifies only that candidate; the scan
// always completes.
func (ix *Index) Select(rs *rules.RuleSet, ref header.Set) []Record {
	var out []Record
	for _, rec := range ix.records {
		ok, err := rs.Matches(ref, rec.Header)
		if err != nil || !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}
