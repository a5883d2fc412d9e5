package evaluator_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/lexer"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected bool
	}{
		{evaluator.NewNil(), false},
		{evaluator.NewBool(false), false},
		{evaluator.NewBool(true), true},
		{evaluator.NewNumber(0), false},
		{evaluator.NewNumber(-1), false},
		{evaluator.NewNumber(-0.5), false},
		{evaluator.NewNumber(0.1), true},
		{evaluator.NewNumber(1), true},
		{evaluator.NewNumber(math.NaN()), false},
		{evaluator.NewString(""), false},
		{evaluator.NewString("hello"), true},
		{&evaluator.Closure{Name: lexer.Ident("f", 1)}, true},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.expected, evaluator.Truthiness(tt.value), "test %d: %#v", i, tt.value)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value evaluator.Value
		want  string
	}{
		{evaluator.NewNil(), "nil"},
		{evaluator.NewBool(true), "true"},
		{evaluator.NewNumber(3), "3"},
		{evaluator.NewNumber(-2.5), "-2.5"},
		{evaluator.NewNumber(0.1), "0.1"},
		{evaluator.NewNumber(1e21), "1000000000000000000000"},
		{evaluator.NewString("hi"), "hi"},
		{&evaluator.Closure{Name: lexer.Ident("add", 1)}, "<fn add>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evaluator.Stringify(tt.value))
	}
}

func TestEqual(t *testing.T) {
	fn := &evaluator.Closure{Name: lexer.Ident("f", 1)}
	twin := &evaluator.Closure{Name: lexer.Ident("f", 1)}

	assert.True(t, evaluator.Equal(evaluator.NewNil(), evaluator.NewNil()))
	assert.True(t, evaluator.Equal(evaluator.NewNumber(2), evaluator.NewNumber(2)))
	assert.True(t, evaluator.Equal(evaluator.NewString("a"), evaluator.NewString("a")))
	assert.True(t, evaluator.Equal(fn, fn))
	assert.False(t, evaluator.Equal(fn, twin))
	assert.False(t, evaluator.Equal(evaluator.NewNumber(0), evaluator.NewBool(false)))
	assert.False(t, evaluator.Equal(evaluator.NewNil(), evaluator.NewBool(false)))
	assert.False(t, evaluator.Equal(evaluator.NewNumber(math.NaN()), evaluator.NewNumber(math.NaN())))
}

func TestEnvChain(t *testing.T) {
	global := evaluator.NewEnv(nil)
	global.Define("a", evaluator.NewNumber(1))
	inner := global.Child()
	inner.Define("b", evaluator.NewNumber(2))

	v, ok := inner.Get("a")
	require.True(t, ok)
	assert.Equal(t, evaluator.NewNumber(1), v)

	_, ok = global.Get("b")
	assert.False(t, ok, "parents never see child bindings")

	require.True(t, inner.Assign("a", evaluator.NewNumber(10)))
	v, _ = global.Get("a")
	assert.Equal(t, evaluator.NewNumber(10), v, "assign mutates the owning scope")

	assert.False(t, inner.Assign("zzz", evaluator.NewNil()))
	assert.False(t, inner.Has("zzz"))
	assert.Same(t, global, inner.Parent())
	assert.Nil(t, global.Parent())
}

func TestEnvShadowing(t *testing.T) {
	global := evaluator.NewEnv(nil)
	global.Define("x", evaluator.NewString("outer"))
	inner := global.Child()
	inner.Define("x", evaluator.NewString("inner"))

	require.True(t, inner.Assign("x", evaluator.NewString("changed")))
	v, _ := global.Get("x")
	assert.Equal(t, evaluator.NewString("outer"), v)
	v, _ = inner.Get("x")
	assert.Equal(t, evaluator.NewString("changed"), v)
}

func TestEnvNamesAndSnapshot(t *testing.T) {
	env := evaluator.NewEnv(nil)
	env.Define("b", evaluator.NewNumber(2))
	env.Define("a", evaluator.NewNumber(1))
	env.Child().Define("c", evaluator.NewNumber(3))

	assert.Equal(t, []string{"a", "b"}, env.Names())

	snap := env.Snapshot()
	snap["a"] = evaluator.NewNil()
	v, _ := env.Get("a")
	assert.Equal(t, evaluator.NewNumber(1), v, "snapshot is a copy")
}

func TestValueToJSON(t *testing.T) {
	assert.Equal(t, "null", evaluator.ValueToJSONString(evaluator.NewNil()))
	assert.Equal(t, "3", evaluator.ValueToJSONString(evaluator.NewNumber(3)))
	assert.Equal(t, "2.5", evaluator.ValueToJSONString(evaluator.NewNumber(2.5)))
	assert.Equal(t, "-9223372036854775808", evaluator.ValueToJSONString(evaluator.NewNumber(-(1 << 63))))
	assert.Equal(t, "9223372036854775808", evaluator.ValueToJSONString(evaluator.NewNumber(1<<63)))
	assert.Equal(t, `"+Inf"`, evaluator.ValueToJSONString(evaluator.NewNumber(math.Inf(1))))
	assert.Equal(t, `"hi"`, evaluator.ValueToJSONString(evaluator.NewString("hi")))
	assert.Equal(t, `"<fn f>"`, evaluator.ValueToJSONString(&evaluator.Closure{Name: lexer.Ident("f", 1)}))
}

func TestEnvToJSON(t *testing.T) {
	env := evaluator.NewEnv(nil)
	env.Define("name", evaluator.NewString("slox"))
	env.Define("n", evaluator.NewNumber(1))
	env.Define("ok", evaluator.NewBool(true))

	b, err := evaluator.EnvToJSON(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 1, "name": "slox", "ok": true}`, string(b))
}

func TestParseJSONToValue(t *testing.T) {
	v, err := evaluator.ParseJSONToValue(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, evaluator.NewNumber(42), v)

	v, err = evaluator.ParseJSONToValue(json.RawMessage(`"x"`))
	require.NoError(t, err)
	assert.Equal(t, evaluator.NewString("x"), v)

	v, err = evaluator.ParseJSONToValue(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, evaluator.NewNil(), v)

	_, err = evaluator.ParseJSONToValue(json.RawMessage(`[1]`))
	assert.Error(t, err)
	_, err = evaluator.ParseJSONToValue(json.RawMessage(`{`))
	assert.Error(t, err)
}
