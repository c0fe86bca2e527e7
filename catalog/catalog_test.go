package catalog

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golapdb/golap/physical"
)

type stubProvider struct{ schema *arrow.Schema }

func (s *stubProvider) Schema() *arrow.Schema { return s.schema }
func (s *stubProvider) Scan(ctx context.Context, projection []int, batchSize int) (physical.Relation, error) {
	return nil, nil
}

func TestMemCatalogPreloadsBuiltinFunctions(t *testing.T) {
	c := NewMemCatalog()

	fm, ok := c.GetFunctionMeta("sqrt")
	require.True(t, ok)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, fm.ReturnType)

	fm, ok = c.GetFunctionMeta("count")
	require.True(t, ok)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, fm.ReturnType)

	_, ok = c.GetFunctionMeta("nope")
	assert.False(t, ok)
}

func TestMemCatalogRegisterAndLookupTable(t *testing.T) {
	c := NewMemCatalog()
	schema := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	c.RegisterTable("person", &stubProvider{schema: schema})

	got, ok := c.GetTableMeta("person")
	require.True(t, ok)
	assert.Same(t, schema, got)

	_, ok = c.GetTableMeta("missing")
	assert.False(t, ok)
}

func TestMemCatalogRegisterTableReplacesExisting(t *testing.T) {
	c := NewMemCatalog()
	s1 := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int64}}, nil)
	s2 := arrow.NewSchema([]arrow.Field{{Name: "b", Type: arrow.PrimitiveTypes.Int64}}, nil)
	c.RegisterTable("t", &stubProvider{schema: s1})
	c.RegisterTable("t", &stubProvider{schema: s2})

	got, ok := c.GetTableMeta("t")
	require.True(t, ok)
	assert.Same(t, s2, got)
}
