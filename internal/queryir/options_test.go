package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/ir"
)

func TestRawOptionsParse(t *testing.T) {
	opts, err := RawOptions{
		Filter:  "Active eq true",
		OrderBy: "CostPerUnit desc, Id",
		Top:     IntPtr(2),
		Count:   true,
		Select:  "Id, ProductName",
		Expand:  "Policies",
	}.Parse()
	require.NoError(t, err)

	assert.Equal(t, "(Active eq true)", Format(opts.Filter))
	assert.Equal(t, []OrderKey{{Property: "CostPerUnit", Descending: true}, {Property: "Id"}}, opts.OrderBy)
	assert.Nil(t, opts.Skip)
	assert.Equal(t, 2, *opts.Top)
	assert.True(t, opts.Count)
	assert.Equal(t, []string{"Id", "ProductName"}, opts.Select)
	assert.Equal(t, []string{"Policies"}, opts.Expand)
}

func TestRawOptionsParseEmpty(t *testing.T) {
	opts, err := RawOptions{}.Parse()
	require.NoError(t, err)
	assert.Nil(t, opts.Filter)
	assert.Empty(t, opts.OrderBy)
	assert.Empty(t, opts.Select)
}

func TestRawOptionsParseErrors(t *testing.T) {
	_, err := RawOptions{Filter: "Active eq"}.Parse()
	assert.True(t, ir.IsInvalidArgument(err), "got %v", err)

	_, err = RawOptions{OrderBy: "Id sideways"}.Parse()
	assert.True(t, ir.IsInvalidArgument(err), "got %v", err)
}
