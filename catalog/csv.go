package catalog

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/physical"
)

// CSVProvider is a Provider backed by a CSV file, adapted from the
// teacher's operators.CSVScan: it reads the header for column names and
// infers each column's type (Int64 -> Float64 -> Utf8, widest-wins) from
// every data row rather than only the first, then streams batches of
// batchSize rows through a columnar builder.
type CSVProvider struct {
	path    string
	mem     memory.Allocator
	schema  *arrow.Schema
	zoneMap *ZoneMap
}

// NewCSVProvider opens path, reads its header and infers a schema. The
// file itself is re-opened on every Scan, so NewCSVProvider does not keep
// a descriptor held open between queries.
func NewCSVProvider(mem memory.Allocator, path string) (*CSVProvider, error) {
	schema, zm, err := inferCSVSchema(path)
	if err != nil {
		return nil, err
	}
	return &CSVProvider{path: path, mem: mem, schema: schema, zoneMap: zm}, nil
}

func (p *CSVProvider) Schema() *arrow.Schema { return p.schema }

// RangeHint returns the zone-map-derived [min, max] range for colIdx, if
// the column was inferred as Int64 and the zone map tracked it. This is a
// pruning hint only, not a cost-based optimization (per SPEC_FULL.md): a
// caller may use it to skip a Filter whose predicate cannot possibly
// match any row, but golap itself does not act on it automatically.
func (p *CSVProvider) RangeHint(colIdx int) (min, max int64, ok bool) {
	if p.zoneMap == nil || colIdx < 0 || colIdx >= len(p.schema.Fields()) {
		return 0, 0, false
	}
	name := p.schema.Field(colIdx).Name
	lo, hasLo := p.zoneMap.MinValues[name]
	hi, hasHi := p.zoneMap.MaxValues[name]
	if !hasLo || !hasHi {
		return 0, 0, false
	}
	return lo, hi, true
}

// Scan implements Provider. projection is accepted but ignored: it does
// not narrow the returned relation's schema (SPEC_FULL.md's resolution of
// spec.md §9 open question 6), every column is read, and the relation does
// not keep it.
func (p *CSVProvider) Scan(ctx context.Context, projection []int, batchSize int) (physical.Relation, error) {
	if batchSize <= 0 {
		batchSize = 1024
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, golaperr.Wrap(golaperr.IO, err, "failed to open CSV file")
	}
	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // skip header
		f.Close()
		return nil, golaperr.Wrap(golaperr.IO, err, "failed to read CSV header")
	}
	return &csvRelation{ctx: ctx, mem: p.mem, file: f, reader: r, schema: p.schema, batchSize: batchSize}, nil
}

type csvRelation struct {
	ctx       context.Context
	mem       memory.Allocator
	file      *os.File
	reader    *csv.Reader
	schema    *arrow.Schema
	batchSize int
	done      bool
}

func (c *csvRelation) Schema() *arrow.Schema { return c.schema }

func (c *csvRelation) Next() (arrow.Record, error) {
	if c.done {
		return nil, nil
	}
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	builders := make([]array.Builder, c.schema.NumFields())
	for i, f := range c.schema.Fields() {
		builders[i] = array.NewBuilder(c.mem, f.Type)
	}

	n := 0
	for n < c.batchSize {
		row, err := c.reader.Read()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			for _, b := range builders {
				b.Release()
			}
			return nil, golaperr.Wrap(golaperr.IO, err, "error reading CSV row")
		}
		for i, f := range c.schema.Fields() {
			var val string
			if i < len(row) {
				val = row[i]
			}
			appendParsed(builders[i], f.Type, val)
		}
		n++
	}

	if n == 0 {
		for _, b := range builders {
			b.Release()
		}
		return nil, nil
	}

	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
		b.Release()
	}
	rec := array.NewRecord(c.schema, cols, int64(n))
	for _, col := range cols {
		col.Release()
	}
	return rec, nil
}

func (c *csvRelation) Close() error {
	return c.file.Close()
}

func appendParsed(b array.Builder, dt arrow.DataType, val string) {
	if val == "" {
		b.AppendNull()
		return
	}
	switch dt.ID() {
	case arrow.INT64:
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.(*array.Int64Builder).Append(v)
	case arrow.FLOAT64:
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			b.AppendNull()
			return
		}
		b.(*array.Float64Builder).Append(v)
	default:
		b.(*array.StringBuilder).Append(val)
	}
}

// inferCSVSchema reads path once fully, inferring each column's type by
// the widest type any row's value demands (Int64 upgrades to Float64 on
// the first non-integer numeric value, then to Utf8 on the first
// non-numeric value), and builds a ZoneMap for every column that stayed
// Int64 throughout — grounded on the teacher's metadata.GenerateZoneMap.
func inferCSVSchema(path string) (*arrow.Schema, *ZoneMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, golaperr.Wrap(golaperr.IO, err, "failed to open CSV file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, golaperr.Wrap(golaperr.IO, err, "failed to read CSV header")
	}

	kinds := make([]int, len(header)) // 0=int64 1=float64 2=string
	zm := newZoneMap()
	for _, h := range header {
		zm.MinValues[h] = 0
		zm.MaxValues[h] = 0
	}
	tracked := make([]bool, len(header))
	initialized := make([]bool, len(header))
	for i := range tracked {
		tracked[i] = true
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, golaperr.Wrap(golaperr.IO, err, "error reading CSV row")
		}
		zm.RowCount++
		for i := range header {
			var val string
			if i < len(row) {
				val = row[i]
			}
			if val == "" {
				continue
			}
			switch kinds[i] {
			case 0:
				if iv, err := strconv.ParseInt(val, 10, 64); err == nil {
					if tracked[i] {
						if !initialized[i] {
							zm.MinValues[header[i]] = iv
							zm.MaxValues[header[i]] = iv
							initialized[i] = true
						} else {
							if iv < zm.MinValues[header[i]] {
								zm.MinValues[header[i]] = iv
							}
							if iv > zm.MaxValues[header[i]] {
								zm.MaxValues[header[i]] = iv
							}
						}
					}
					continue
				}
				tracked[i] = false
				if _, err := strconv.ParseFloat(val, 64); err == nil {
					kinds[i] = 1
				} else {
					kinds[i] = 2
				}
			case 1:
				tracked[i] = false
				if _, err := strconv.ParseFloat(val, 64); err != nil {
					kinds[i] = 2
				}
			}
		}
	}

	fields := make([]arrow.Field, len(header))
	for i, h := range header {
		var dt arrow.DataType
		switch kinds[i] {
		case 0:
			dt = arrow.PrimitiveTypes.Int64
		case 1:
			dt = arrow.PrimitiveTypes.Float64
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: h, Type: dt, Nullable: true}
		if !tracked[i] || kinds[i] != 0 {
			delete(zm.MinValues, h)
			delete(zm.MaxValues, h)
		}
	}

	return arrow.NewSchema(fields, nil), zm, nil
}
