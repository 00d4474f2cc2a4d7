package dbtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"gift_wrap_line":true,"gift_wrap_fee":500}`)))
	assert.Equal(t, true, m["gift_wrap_line"])
	assert.Equal(t, float64(500), m["gift_wrap_fee"])

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	require.Error(t, m.Scan(42))
}

func TestJSONMapValueNilIsNull(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONMap{"size": "M"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":"M"}`, string(v.([]byte)))
}

func TestStringListRoundTrip(t *testing.T) {
	v, err := StringList{"SAVE10", "VIP"}.Value()
	require.NoError(t, err)

	var l StringList
	require.NoError(t, l.Scan(v))
	assert.Equal(t, StringList{"SAVE10", "VIP"}, l)

	var empty StringList
	nv, err := empty.Value()
	require.NoError(t, err)
	assert.Nil(t, nv)
}
