package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCSVProviderInfersWidestTypePerColumn(t *testing.T) {
	path := writeCSV(t, "id,amount,state\n1,10,CO\n2,10.5,NY\n3,abc,CO\n")
	mem := memory.NewGoAllocator()
	p, err := NewCSVProvider(mem, path)
	require.NoError(t, err)

	schema := p.Schema()
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, arrow.INT64, schema.Field(0).Type.ID())
	assert.Equal(t, arrow.STRING, schema.Field(1).Type.ID())
	assert.Equal(t, arrow.STRING, schema.Field(2).Type.ID())
}

func TestCSVProviderRangeHintOnlyForIntColumnsThatStayedInt(t *testing.T) {
	path := writeCSV(t, "id,amount\n5,1.5\n1,2.5\n9,3.5\n")
	mem := memory.NewGoAllocator()
	p, err := NewCSVProvider(mem, path)
	require.NoError(t, err)

	min, max, ok := p.RangeHint(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), min)
	assert.Equal(t, int64(9), max)

	_, _, ok = p.RangeHint(1)
	assert.False(t, ok)
}

func TestCSVProviderScanChunksBatches(t *testing.T) {
	path := writeCSV(t, "id\n1\n2\n3\n4\n5\n")
	mem := memory.NewGoAllocator()
	p, err := NewCSVProvider(mem, path)
	require.NoError(t, err)

	rel, err := p.Scan(context.Background(), nil, 2)
	require.NoError(t, err)
	defer rel.Close()

	var total int64
	batches := 0
	for {
		rec, err := rel.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		total += rec.NumRows()
		batches++
		rec.Release()
	}
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 3, batches)
}

func TestCSVProviderEmptyValueIsNull(t *testing.T) {
	path := writeCSV(t, "id,state\n1,CO\n2,\n")
	mem := memory.NewGoAllocator()
	p, err := NewCSVProvider(mem, path)
	require.NoError(t, err)

	rel, err := p.Scan(context.Background(), nil, 1024)
	require.NoError(t, err)
	defer rel.Close()

	rec, err := rel.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()

	assert.True(t, rec.Column(1).IsNull(1))
}
