package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	v, err := ParseValue([]byte(`{"a":{"b":[1,2.50,"x",true,null]},"n":12345678901234567890}`))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())
	assert.Equal(t, []string{"a", "n"}, v.Keys())

	arr, ok := v.Get("a", "b")
	require.True(t, ok)
	assert.Equal(t, KindArray, arr.Kind())
	assert.Equal(t, 5, arr.Len())

	n, ok := arr.Index(1).AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("2.50"), n, "number literal should be preserved")

	big, ok := v.Field("n")
	require.True(t, ok)
	out, err := json.Marshal(big)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890", string(out))

	assert.True(t, arr.Index(4).IsNull())
	assert.True(t, arr.Index(99).IsNull(), "out of range index should be null")
}

func TestParseValue_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ``},
		{name: "malformed", input: `{"a":`},
		{name: "trailing data", input: `{"a":1} {"b":2}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseValue([]byte(tc.input))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestValue_Set(t *testing.T) {
	t.Parallel()

	original, err := ParseValue([]byte(`{"rules":{"overtime":1.25},"name":"base"}`))
	require.NoError(t, err)

	t.Run("replaces nested field without touching receiver", func(t *testing.T) {
		t.Parallel()
		rate, err := Number("1.5")
		require.NoError(t, err)
		updated, err := original.Set([]string{"rules", "overtime"}, rate)
		require.NoError(t, err)

		got, _ := updated.Get("rules", "overtime")
		n, _ := got.AsNumber()
		assert.Equal(t, json.Number("1.5"), n)

		before, _ := original.Get("rules", "overtime")
		n, _ = before.AsNumber()
		assert.Equal(t, json.Number("1.25"), n, "receiver must not change")
	})

	t.Run("creates missing intermediate objects", func(t *testing.T) {
		t.Parallel()
		updated, err := original.Set([]string{"meta", "source", "kind"}, String("import"))
		require.NoError(t, err)

		got, ok := updated.Get("meta", "source", "kind")
		require.True(t, ok)
		s, _ := got.AsString()
		assert.Equal(t, "import", s)
	})

	t.Run("conflict with non-object node", func(t *testing.T) {
		t.Parallel()
		_, err := original.Set([]string{"name", "first"}, String("x"))
		assert.ErrorIs(t, err, ErrPathConflict)
		assert.Contains(t, err.Error(), "name.first")
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := original.Set(nil, String("x"))
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("null receiver becomes an object", func(t *testing.T) {
		t.Parallel()
		updated, err := Null().Set([]string{"a"}, Bool(true))
		require.NoError(t, err)
		assert.Equal(t, KindObject, updated.Kind())
	})
}

func TestValue_MarshalJSON(t *testing.T) {
	t.Parallel()

	v := Object(map[string]Value{
		"z":     Int(1),
		"a":     Array(String("x"), Null(), Bool(false)),
		"empty": Object(nil),
		"list":  Array(),
	})

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":["x",null,false],"empty":{},"list":[],"z":1}`, string(out))
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	a, err := ParseValue([]byte(`{"x":[1,{"y":"z"}],"b":true}`))
	require.NoError(t, err)
	b, err := ParseValue([]byte(`{"b":true,"x":[1,{"y":"z"}]}`))
	require.NoError(t, err)
	c, err := ParseValue([]byte(`{"b":true,"x":[1,{"y":"w"}]}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Int(1).Equal(String("1")))
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	v, err := FromAny(map[string]any{
		"isActive": true,
		"count":    3,
		"rate":     0.5,
		"tags":     []any{"a", int64(2)},
	})
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isActive":true,"count":3,"rate":0.5,"tags":["a",2]}`, string(out))

	_, err = FromAny(map[string]any{"bad": struct{}{}})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestNumber_RejectsInvalidLiterals(t *testing.T) {
	t.Parallel()

	for _, lit := range []string{"", "NaN", "+Inf", "1e", "01", "0x10", "1.", " 1"} {
		_, err := Number(json.Number(lit))
		assert.ErrorIs(t, err, ErrInvalidFormat, "literal %q", lit)
	}

	for _, lit := range []string{"0", "-1", "2.50", "1e10", "-3.2E-4", "12345678901234567890"} {
		v, err := Number(json.Number(lit))
		require.NoError(t, err, "literal %q", lit)
		out, err := v.MarshalJSON()
		require.NoError(t, err)
		assert.True(t, json.Valid(out), "literal %q", lit)
	}
}

func TestFromAny_NonFiniteFloats(t *testing.T) {
	t.Parallel()

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FromAny(f)
		assert.ErrorIs(t, err, ErrInvalidFormat)
	}

	_, err := DocumentFromMap(map[string]any{"rate": math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	v, err := FromAny(1.25)
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("1.25"), n)
}
