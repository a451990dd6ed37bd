package anymask

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputLenConv(t *testing.T) {
	cases := []struct {
		n    int
		desc LayerDesc
		out  int
	}{
		{100, ConvDesc(11, 2, 5, 1), 50},
		{101, ConvDesc(11, 2, 5, 1), 51},
		{50, ConvDesc(11, 1, 5, 1), 50},
		{7, ConvDesc(3, 1, 0, 0), 5},
		{7, ConvDesc(3, 1, 0, 2), 3},
		{5, ConvDesc(3, 1, 0, 2), 1},
		{1, ConvDesc(11, 2, 5, 1), 1},
		{9, ConvDesc(3, 3, 1, 1), 3},
		{10, ConvDesc(3, 3, 1, 1), 4},
	}
	for _, c := range cases {
		actual, err := OutputLen(c.n, c.desc)
		require.NoError(t, err)
		assert.Equal(t, c.out, actual, "length %d through %+v", c.n, c.desc)
	}
}

func TestOutputLenPool(t *testing.T) {
	actual, err := OutputLen(9, PoolDesc(0))
	require.NoError(t, err)
	assert.Equal(t, 4, actual)

	actual, err = OutputLen(9, PoolDesc(3))
	require.NoError(t, err)
	assert.Equal(t, 3, actual)

	_, err = OutputLen(1, PoolDesc(2))
	assert.True(t, errors.Is(err, ErrNonPositiveLength))
}

func TestOutputLenOther(t *testing.T) {
	actual, err := OutputLen(13, OtherDesc())
	require.NoError(t, err)
	assert.Equal(t, 13, actual)

	actual, err = OutputLen(13, LayerDesc{Kind: Kind(42), Kernel: 3, Stride: 2})
	require.NoError(t, err)
	assert.Equal(t, 13, actual)
}

func TestOutputLenErrors(t *testing.T) {
	_, err := OutputLen(3, ConvDesc(5, 1, 0, 1))
	assert.True(t, errors.Is(err, ErrNonPositiveLength))

	_, err = OutputLen(3, ConvDesc(0, 1, 0, 1))
	assert.True(t, errors.Is(err, ErrInvalidDesc))

	_, err = OutputLen(3, ConvDesc(3, -1, 0, 1))
	assert.True(t, errors.Is(err, ErrInvalidDesc))
}

func TestPropagateZeroLength(t *testing.T) {
	descs := []LayerDesc{
		ConvDesc(11, 2, 5, 1),
		OtherDesc(),
		ConvDesc(11, 1, 5, 1),
		PoolDesc(2),
	}
	res, err := PropagateAll([]int{0, 40, 0, 17}, descs...)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 0, 4}, res)
}

func TestPropagateDoesNotModify(t *testing.T) {
	in := []int{4, 8}
	out, err := Propagate(in, PoolDesc(2))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8}, in)
	assert.Equal(t, []int{2, 4}, out)
}

func TestPropagateReportsIndex(t *testing.T) {
	_, err := Propagate([]int{10, 1}, ConvDesc(5, 1, 0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonPositiveLength))
	assert.Contains(t, err.Error(), "length 1")
}
