package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

func fixture(t *testing.T) *directory.Directory {
	t.Helper()
	schema := &ir.Schema{
		Types: []ir.TypeSpec{
			{Name: "Product", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
				{Name: "Name", Type: ir.FieldString, Nullable: true},
				{Name: "CostPerUnit", Type: ir.FieldDecimal, Nullable: true},
				{Name: "Active", Type: ir.FieldBool},
				{Name: "Launched", Type: ir.FieldDate, Nullable: true},
			}},
			{Name: "Policy", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
				{Name: "Units", Type: ir.FieldInt},
				{Name: "ProductId", Type: ir.FieldString, Nullable: true},
			}},
		},
		Relations: []ir.RelationSpec{{
			Name: "sold", Parent: "Product", Child: "Policy", ForeignKey: "ProductId",
			ParentNav: "Policies", ChildNav: "Product",
		}},
	}
	d, err := directory.New(schema)
	require.NoError(t, err)

	products := []struct {
		id, name, cost string
		active         bool
		launched       string
	}{
		{"1000", "Term Life", "250", true, "2020-01-01"},
		{"1001", "Whole Life", "80", true, "2019-06-15"},
		{"1002", "Dental", "120", false, ""},
		{"1003", "Vision", "45.50", true, "2021-03-01"},
		{"1004", "Disability", "310", true, "2018-11-30"},
		{"1005", "Pet", "", false, "2022-02-02"},
	}
	pk, _ := d.Kind("Product")
	for _, p := range products {
		fields := ir.IRObject{
			"Name":        ir.IRString(p.name),
			"Active":      ir.IRBool(p.active),
			"CostPerUnit": ir.IRNull{},
			"Launched":    ir.IRNull{},
		}
		if p.cost != "" {
			fields["CostPerUnit"] = ir.MustIRNumber(p.cost)
		}
		if p.launched != "" {
			fields["Launched"] = ir.MustIRDate(p.launched)
		}
		require.NoError(t, d.Insert(pk, directory.NewRecord(p.id, fields)))
	}

	polk, _ := d.Kind("Policy")
	for _, pol := range []struct {
		id, product string
		units       int64
	}{
		{"2000", "1000", 3},
		{"2001", "1000", 1},
		{"2002", "1004", 2},
	} {
		require.NoError(t, d.Insert(polk, directory.NewRecord(pol.id, ir.IRObject{
			"Units":     ir.NewIRInt(pol.units),
			"ProductId": ir.IRString(pol.product),
		})))
	}
	return d
}

func mustFilter(t *testing.T, src string) queryir.Expr {
	t.Helper()
	e, err := queryir.ParseFilter(src)
	require.NoError(t, err)
	return e
}

func TestRun_NoOptionsReturnsNativeOrder(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "1001", "1002", "1003", "1004", "1005"}, res.IDs())
	assert.Nil(t, res.Count)
}

func TestRun_UnknownType(t *testing.T) {
	_, err := Run(fixture(t), "Claim", queryir.Options{})
	assert.True(t, ir.IsNotFound(err))
}

func TestRun_BooleanFilterReduction(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{
		Filter: mustFilter(t, "Active eq true and CostPerUnit gt 100"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "1004"}, res.IDs())
}

func TestRun_Filters(t *testing.T) {
	tests := []struct {
		filter string
		want   []string
	}{
		{"Name eq 'Dental'", []string{"1002"}},
		{"contains(Name, 'Life')", []string{"1000", "1001"}},
		{"not Active", []string{"1002", "1005"}},
		{"CostPerUnit eq null", []string{"1005"}},
		{"CostPerUnit ne null and CostPerUnit le 80", []string{"1001", "1003"}},
		{"Launched lt 2020-01-01", []string{"1001", "1002", "1004"}},
		{"Name eq 'Nothing'", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			res, err := Run(fixture(t), "Product", queryir.Options{Filter: mustFilter(t, tt.filter)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.IDs())
		})
	}
}

func TestRun_ArithmeticFilter(t *testing.T) {
	res, err := Run(fixture(t), "Policy", queryir.Options{Filter: mustFilter(t, "Units mul 2 ge 4")})
	require.NoError(t, err)
	assert.Equal(t, []string{"2000", "2002"}, res.IDs())

	_, err = Run(fixture(t), "Product", queryir.Options{Filter: mustFilter(t, "CostPerUnit mul 2 ge 600")})
	assert.True(t, ir.IsTypeMismatch(err), "a null operand is not numeric")
}

func TestRun_FilterIdempotent(t *testing.T) {
	d := fixture(t)
	pk, _ := d.Kind("Product")
	opts := queryir.Options{Filter: mustFilter(t, "CostPerUnit gt 50")}

	first, err := Run(d, "Product", opts)
	require.NoError(t, err)

	recs := make([]*directory.Record, len(first.Rows))
	for i, row := range first.Rows {
		recs[i] = row.Record
	}
	second, err := RunOn(d, pk, recs, opts)
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestRun_FilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter queryir.Expr
		check  func(error) bool
	}{
		{"non-boolean root", mustFilter(t, "CostPerUnit add 1"), ir.IsTypeMismatch},
		{"arithmetic on strings", mustFilter(t, "Name add 1 eq 2"), ir.IsTypeMismatch},
		{"unknown function", mustFilter(t, "startswith(Name, 'T')"), ir.IsNotImplemented},
		{"navigation path", queryir.Binary{Op: queryir.OpEq, Left: queryir.Member{Path: []string{"Product", "Name"}}, Right: queryir.Str("x")}, ir.IsNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(fixture(t), "Product", queryir.Options{Filter: tt.filter})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestRun_UnsupportedFilterFailsOnEmptyCollection(t *testing.T) {
	d := fixture(t)
	pk, _ := d.Kind("Product")
	_, err := RunOn(d, pk, nil, queryir.Options{Filter: mustFilter(t, "startswith(Name, 'T')")})
	assert.True(t, ir.IsNotImplemented(err))
}

func TestRun_CountIsPostFilterPrePaging(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{
		Filter: mustFilter(t, "Active"),
		Count:  true,
		Top:    queryir.IntPtr(1),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Count)
	assert.Equal(t, 4, *res.Count)
	assert.Len(t, res.Rows, 1)
}

func TestRun_OrderBy(t *testing.T) {
	tests := []struct {
		orderBy string
		want    []string
	}{
		{"CostPerUnit", []string{"1005", "1003", "1001", "1002", "1000", "1004"}},
		{"CostPerUnit desc", []string{"1004", "1000", "1002", "1001", "1003", "1005"}},
		{"Name", []string{"1002", "1004", "1005", "1000", "1003", "1001"}},
		{"Launched", []string{"1002", "1004", "1001", "1000", "1003", "1005"}},
		{"Active desc, Name", []string{"1004", "1000", "1003", "1001", "1002", "1005"}},
	}
	for _, tt := range tests {
		t.Run(tt.orderBy, func(t *testing.T) {
			keys, err := queryir.ParseOrderBy(tt.orderBy)
			require.NoError(t, err)
			res, err := Run(fixture(t), "Product", queryir.Options{OrderBy: keys})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.IDs())
		})
	}
}

func TestRun_OrderByIsIdempotentAndStable(t *testing.T) {
	d := fixture(t)
	pk, _ := d.Kind("Product")
	opts := queryir.Options{OrderBy: []queryir.OrderKey{{Property: "Active"}}}

	first, err := Run(d, "Product", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"1002", "1005", "1000", "1001", "1003", "1004"}, first.IDs(),
		"ties keep native order")

	recs := make([]*directory.Record, len(first.Rows))
	for i, row := range first.Rows {
		recs[i] = row.Record
	}
	second, err := RunOn(d, pk, recs, opts)
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestRun_OrderByUnknownProperty(t *testing.T) {
	_, err := Run(fixture(t), "Product", queryir.Options{
		OrderBy: []queryir.OrderKey{{Property: "Colour"}},
	})
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestPage_Laws(t *testing.T) {
	all := []int{0, 1, 2, 3, 4}
	n := len(all)
	for skip := 0; skip <= n+1; skip++ {
		for top := 0; top <= n+1; top++ {
			got, err := Page(all, queryir.IntPtr(skip), queryir.IntPtr(top))
			require.NoError(t, err)
			want := 0
			if skip < n {
				want = min(top, n-skip)
			}
			assert.Len(t, got, want, "skip=%d top=%d", skip, top)
		}
	}

	got, err := Page(all, queryir.IntPtr(0), queryir.IntPtr(n))
	require.NoError(t, err)
	assert.Equal(t, all, got)

	got, err = Page(all, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestPage_Negative(t *testing.T) {
	_, err := Page([]int{1}, queryir.IntPtr(-1), nil)
	assert.True(t, ir.IsInvalidArgument(err))

	_, err = Page([]int{1}, nil, queryir.IntPtr(-1))
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestRun_SkipTop(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{
		Skip: queryir.IntPtr(2),
		Top:  queryir.IntPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1002", "1003"}, res.IDs())

	_, err = Run(fixture(t), "Product", queryir.Options{Skip: queryir.IntPtr(-1)})
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestRun_Select(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{
		Filter: mustFilter(t, "Name eq 'Dental'"),
		Select: []string{"Name"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, ir.IRObject{"Id": ir.IRString("1002"), "Name": ir.IRString("Dental")}, res.Rows[0].Object)

	_, err = Run(fixture(t), "Product", queryir.Options{Select: []string{"Colour"}})
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestRun_Expand(t *testing.T) {
	res, err := Run(fixture(t), "Product", queryir.Options{
		Filter: mustFilter(t, "Id eq '1000' or Id eq '1001'"),
		Expand: []string{"Policies"},
		Select: []string{"Name"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	policies, ok := res.Rows[0].Object["Policies"].(ir.IRArray)
	require.True(t, ok)
	require.Len(t, policies, 2)
	assert.Equal(t, ir.IRString("2000"), policies[0].(ir.IRObject)["Id"])

	empty, ok := res.Rows[1].Object["Policies"].(ir.IRArray)
	require.True(t, ok)
	assert.Empty(t, empty)

	res, err = Run(fixture(t), "Policy", queryir.Options{Expand: []string{"Product"}})
	require.NoError(t, err)
	product, ok := res.Rows[2].Object["Product"].(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRString("Disability"), product["Name"])

	_, err = Run(fixture(t), "Policy", queryir.Options{Expand: []string{"Claims"}})
	assert.True(t, ir.IsNotFound(err))
}

func TestRun_ExpandSingleNull(t *testing.T) {
	d := fixture(t)
	polk, _ := d.Kind("Policy")
	require.NoError(t, d.Insert(polk, directory.NewRecord("2003", ir.IRObject{"Units": ir.NewIRInt(1)})))

	res, err := Run(d, "Policy", queryir.Options{
		Filter: mustFilter(t, "Id eq '2003'"),
		Expand: []string{"Product"},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, ir.IRNull{}, res.Rows[0].Object["Product"])
}
