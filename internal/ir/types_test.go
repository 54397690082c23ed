package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicySpec() TypeSpec {
	return TypeSpec{
		Name: "Policy",
		Fields: []FieldSpec{
			{Name: "Id", Type: FieldString, Key: true},
			{Name: "NumberOfUnits", Type: FieldInt},
			{Name: "PolicyStartDate", Type: FieldDate, Nullable: true},
			{Name: "TotalCostAmount", Type: FieldDecimal, Nullable: true, Computed: true},
		},
	}
}

func TestTypeSpecLookups(t *testing.T) {
	spec := testPolicySpec()

	key, ok := spec.KeyField()
	require.True(t, ok)
	assert.Equal(t, "Id", key.Name)

	_, ok = spec.Field("id")
	assert.False(t, ok, "Field is case sensitive")

	f, ok := spec.FieldFold("numberofunits")
	require.True(t, ok)
	assert.Equal(t, "NumberOfUnits", f.Name)

	stored := spec.StoredFields()
	assert.Len(t, stored, 3)
	for _, f := range stored {
		assert.False(t, f.Computed)
	}

	_, ok = TypeSpec{Name: "Keyless"}.KeyField()
	assert.False(t, ok)
}

func TestFieldSpecZero(t *testing.T) {
	assert.Equal(t, IRBool(false), FieldSpec{Type: FieldBool}.Zero())
	assert.Equal(t, IRNull{}, FieldSpec{Type: FieldBool, Nullable: true}.Zero())
	assert.Equal(t, IRNull{}, FieldSpec{Type: FieldDate, Nullable: true}.Zero())
	requireNumber(t, "0", FieldSpec{Type: FieldInt}.Zero())
}

func TestFieldSpecConvert(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSpec
		in    IRValue
		want  string
	}{
		{"string", FieldSpec{Name: "S", Type: FieldString}, IRString("x"), `"x"`},
		{"number to string key", FieldSpec{Name: "Id", Type: FieldString}, NewIRInt(7), `"7"`},
		{"decimal", FieldSpec{Name: "D", Type: FieldDecimal}, MustIRNumber("1.5"), `1.5`},
		{"decimal from string", FieldSpec{Name: "D", Type: FieldDecimal}, IRString(" 2.25 "), `2.25`},
		{"int", FieldSpec{Name: "I", Type: FieldInt}, MustIRNumber("3.0"), `3`},
		{"int from string", FieldSpec{Name: "I", Type: FieldInt}, IRString("12"), `12`},
		{"bool", FieldSpec{Name: "B", Type: FieldBool}, IRBool(true), `true`},
		{"bool from string", FieldSpec{Name: "B", Type: FieldBool}, IRString(" FALSE "), `false`},
		{"date from string", FieldSpec{Name: "T", Type: FieldDate}, IRString("2016-07-28"), `"2016-07-28"`},
		{"date", FieldSpec{Name: "T", Type: FieldDate}, NewIRDate(2009, time.March, 4), `"2009-03-04"`},
		{"null passes", FieldSpec{Name: "T", Type: FieldDate}, IRNull{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Convert(tt.in)
			require.NoError(t, err)
			data, err := MarshalIRValue(got)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestFieldSpecConvertMismatch(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSpec
		in    IRValue
	}{
		{"fractional int", FieldSpec{Name: "I", Type: FieldInt}, MustIRNumber("1.5")},
		{"word as decimal", FieldSpec{Name: "D", Type: FieldDecimal}, IRString("many")},
		{"yes as bool", FieldSpec{Name: "B", Type: FieldBool}, IRString("yes")},
		{"number as bool", FieldSpec{Name: "B", Type: FieldBool}, NewIRInt(1)},
		{"bad date", FieldSpec{Name: "T", Type: FieldDate}, IRString("07/28/2016")},
		{"bool as string", FieldSpec{Name: "S", Type: FieldString}, IRBool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.Convert(tt.in)
			require.Error(t, err)
			assert.True(t, IsTypeMismatch(err))
			assert.Contains(t, err.Error(), tt.field.Name)
		})
	}
}

func TestFieldSpecString(t *testing.T) {
	assert.Equal(t, "Id string key", FieldSpec{Name: "Id", Type: FieldString, Key: true}.String())
	assert.Equal(t, "TotalCostAmount decimal nullable computed",
		FieldSpec{Name: "TotalCostAmount", Type: FieldDecimal, Nullable: true, Computed: true}.String())
}
