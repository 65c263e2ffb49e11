package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsStr(t *testing.T) {
	p := Params{"path": "/etc/hosts", "mode": float64(420)}

	s, err := p.Str("path")
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", s)

	_, err = p.Str("missing")
	assert.EqualError(t, err, "missing param: missing")

	_, err = p.Str("mode")
	assert.EqualError(t, err, "param mode must be a string")
}

func TestParamsInt64(t *testing.T) {
	// JSON numbers decode as float64; other widths appear when params
	// are built in-process.
	p := Params{"a": float64(65536), "b": int64(2), "c": 3, "d": "x"}

	for key, want := range map[string]int64{"a": 65536, "b": 2, "c": 3} {
		got, err := p.Int64(key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := p.Int64("d")
	assert.Error(t, err)
	_, err = p.Int64("missing")
	assert.Error(t, err)
}

func TestParamsOptInt64(t *testing.T) {
	p := Params{"len": float64(100)}

	n, ok := p.OptInt64("len")
	assert.True(t, ok)
	assert.Equal(t, int64(100), n)

	_, ok = p.OptInt64("off")
	assert.False(t, ok)
}

func TestParamsID(t *testing.T) {
	p := Params{"id": float64(12), "neg": float64(-1)}

	id, err := p.ID("id")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	_, err = p.ID("neg")
	assert.Error(t, err)
}

func TestParamsOptBool(t *testing.T) {
	p := Params{"link": false}
	assert.False(t, p.OptBool("link", true))
	assert.True(t, p.OptBool("parents", true))
	assert.False(t, p.OptBool("parents", false))
}

func TestParamsBytes(t *testing.T) {
	p := Params{"data": Encode64([]byte("payload"))}

	data, err := p.Bytes("data")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	p["data"] = "!!!"
	_, err = p.Bytes("data")
	assert.Error(t, err)
}

func TestParamsOptStrSlice(t *testing.T) {
	p := Params{"args": []interface{}{"-l", "-a", float64(3)}}
	assert.Equal(t, []string{"-l", "-a"}, p.OptStrSlice("args"))
	assert.Nil(t, p.OptStrSlice("missing"))
}

func TestParamsList(t *testing.T) {
	p := Params{"ops": []interface{}{map[string]interface{}{"insert": map[string]interface{}{"data": "aGk="}}}}

	ops, err := p.List("ops")
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	_, err = p.List("missing")
	assert.Error(t, err)
}

func TestParamsNilReceiver(t *testing.T) {
	var p Params

	_, err := p.Str("path")
	assert.Error(t, err)
	assert.True(t, p.OptBool("link", true))
	assert.Nil(t, p.OptStrSlice("args"))
}
