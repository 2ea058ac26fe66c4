package table

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MissingIsDistinct(t *testing.T) {
	assert.True(t, Missing().IsMissing())
	assert.False(t, String("").IsMissing())
	assert.False(t, Int(0).IsMissing())
	assert.True(t, Float(math.NaN()).IsMissing())
	assert.Equal(t, Missing(), Value{})
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string", String("abc"), "abc"},
		{"int", Int(2020), "2020"},
		{"float", Float(2.5), "2.5"},
		{"integral float", Float(2020), "2020"},
		{"bool", Bool(true), "true"},
		{"missing", Missing(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_MatchKey(t *testing.T) {
	assert.True(t, Int(1).Equal(Float(1.0)))
	assert.False(t, Int(1).Equal(String("1")))
	assert.False(t, Float(1.5).Equal(Int(1)))
	assert.True(t, Missing().Equal(Missing()))
}

func TestValue_Of(t *testing.T) {
	assert.Equal(t, Int(3), Of(3))
	assert.Equal(t, String("x"), Of("x"))
	assert.Equal(t, Bool(false), Of(false))
	assert.True(t, Of(nil).IsMissing())
	assert.True(t, Of(struct{}{}).IsMissing())
}

func TestNewSchema_RejectsDuplicates(t *testing.T) {
	_, err := NewSchema("a", "b", "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSchema_ColumnsNamesAbsentColumn(t *testing.T) {
	s, err := NewSchema("id", "name")
	require.NoError(t, err)

	_, err = s.Columns("op", "id", "title")
	require.Error(t, err)

	var iae *InvalidArgumentError
	require.True(t, errors.As(err, &iae))
	assert.Equal(t, "title", iae.Name)
	assert.Contains(t, err.Error(), `"title"`)
}

func sample(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromRows([]string{"id", "name", "year"},
		[]any{1, "A", 2000},
		[]any{2, nil, 2001},
		[]any{1, "A", 2000},
		[]any{3, "C", nil},
	)
	require.NoError(t, err)
	return tbl
}

func TestTable_WithColumnDoesNotMutate(t *testing.T) {
	tbl := sample(t)
	out, err := tbl.WithColumn("flag", []Value{Bool(true), Bool(false), Bool(true), Bool(false)})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "year"}, tbl.Columns())
	assert.Equal(t, []string{"id", "name", "year", "flag"}, out.Columns())

	replaced, err := out.WithColumn("id", []Value{Int(9), Int(9), Int(9), Int(9)})
	require.NoError(t, err)
	assert.Equal(t, Int(9), replaced.Row(0).Value("id"))
	assert.Equal(t, Int(1), out.Row(0).Value("id"))
}

func TestTable_WithColumnLengthMismatch(t *testing.T) {
	_, err := sample(t).WithColumn("x", []Value{Int(1)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTable_Project(t *testing.T) {
	out, err := sample(t).Project("year", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "id"}, out.Columns())
	assert.Equal(t, Int(2000), out.Row(0).Value("year"))

	_, err = sample(t).Project("id", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestTable_DropMissing(t *testing.T) {
	out, err := sample(t).DropMissing("name")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestTable_DropDuplicates(t *testing.T) {
	out := sample(t).DropDuplicates()
	assert.Equal(t, 3, out.Len())

	byID, err := sample(t).DropDuplicatesOn("id")
	require.NoError(t, err)
	assert.Equal(t, 3, byID.Len())
	assert.Equal(t, String("A"), byID.Row(0).Value("name"))
}

func TestTable_SortStable(t *testing.T) {
	out := sample(t).SortStable(func(a, b Record) bool {
		x, _ := a.Value("id").Number()
		y, _ := b.Value("id").Number()
		return x > y
	})
	assert.Equal(t, Int(3), out.Row(0).Value("id"))
	assert.Equal(t, Int(2), out.Row(1).Value("id"))
}

func TestTable_Drop(t *testing.T) {
	out := sample(t).Drop("name", "absent")
	assert.Equal(t, []string{"id", "year"}, out.Columns())
}

func TestTable_MapColumns(t *testing.T) {
	upper := func(v Value) Value {
		s, ok := v.Str()
		if !ok {
			return Missing()
		}
		return String(strings.ToUpper(s))
	}
	tbl, err := FromRows([]string{"name"}, []any{"ab"}, []any{nil})
	require.NoError(t, err)

	out, err := tbl.MapColumns([]string{"name", "absent"}, upper, false, "clean")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "clean_name"}, out.Columns())
	assert.Equal(t, String("AB"), out.Row(0).Value("clean_name"))
	assert.True(t, out.Row(1).Value("clean_name").IsMissing())

	// target already present: skipped
	again, err := out.MapColumns([]string{"name"}, upper, false, "clean")
	require.NoError(t, err)
	assert.Equal(t, out.Columns(), again.Columns())

	sub, err := tbl.MapColumns([]string{"name"}, upper, true, "clean")
	require.NoError(t, err)
	assert.Equal(t, []string{"clean_name"}, sub.Columns())
}

func TestRecord_Map(t *testing.T) {
	r := sample(t).Row(1)
	m := r.Map()
	assert.Equal(t, int64(2), m["id"])
	assert.Nil(t, m["name"])
}
