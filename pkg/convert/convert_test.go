package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrTo_ToSize(t *testing.T) {
	cases := map[string]int64{
		"":      0,
		"0":     0,
		"512":   512,
		"512b":  512,
		"10KB":  10 << 10,
		"10 mb": 10 << 20,
		"2GB":   2 << 30,
		"1TB":   1 << 40,
	}
	for in, want := range cases {
		got, err := StrTo(in).ToSize()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := StrTo("ten MB").ToSize()
	assert.Error(t, err)
	assert.EqualValues(t, 7, StrTo("lots").MustToSize(7))
	assert.EqualValues(t, 7, StrTo("-1KB").MustToSize(7))
}

func TestBoolInt(t *testing.T) {
	assert.EqualValues(t, 1, Bool2Int(true))
	assert.EqualValues(t, 0, Bool2Int(false))
	assert.True(t, Int2Bool(2))
	assert.False(t, Int2Bool(0))
}

func TestStructAssign(t *testing.T) {
	type src struct {
		Name  string
		Count int
		Extra bool
	}
	type dst struct {
		Name  string
		Count int
	}
	out, err := StructAssign(src{Name: "a", Count: 3, Extra: true}, &dst{})
	require.NoError(t, err)
	assert.Equal(t, dst{Name: "a", Count: 3}, *out)
}
