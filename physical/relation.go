// Package physical implements the pull-based physical operators described
// in spec.md §4.4: Filter, Project, Aggregate, and Limit. Each is a small
// state machine pulling arrow.Record batches from its input, mirroring the
// teacher's Volcano-iterator operators/*.go but operating on columnar
// batches instead of types.Row.
package physical

import "github.com/apache/arrow-go/v18/arrow"

// Relation is the pull-based physical operator interface: Next returns
// (nil, nil) once exhausted, matching the teacher's types.Operator
// contract adapted to record batches.
type Relation interface {
	Schema() *arrow.Schema
	Next() (arrow.Record, error)
	Close() error
}
