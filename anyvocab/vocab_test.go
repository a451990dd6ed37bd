package anyvocab

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `id,char,freq
0,<pad>,0
1,<s>,0
2,</s>,0
3, ,100
4,안,10
5,녕,9
6,a,3
`

func testReserved() Reserved {
	return Reserved{Blank: 7, EOS: 2, SOS: 1, Pad: 0}
}

func testVocab(t *testing.T) *Vocab {
	res := testReserved()
	res.Pad = 99
	v, err := LoadCSV(strings.NewReader(strings.Replace(testCSV, "0,<pad>,0\n", "", 1)), res)
	require.NoError(t, err)
	return v
}

func TestLoadCSV(t *testing.T) {
	v := testVocab(t)
	assert.Equal(t, 7, v.Len())
	assert.Equal(t, 8, v.NumClasses())

	ch, ok := v.Char(7)
	require.True(t, ok)
	assert.Equal(t, BlankSymbol, ch)

	id, ok := v.ID("녕")
	require.True(t, ok)
	assert.Equal(t, 5, id)
}

func TestLoadCSVPadCollision(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(testCSV), testReserved())
	assert.True(t, errors.Is(err, ErrPadCollision))
}

func TestLoadCSVBadHeader(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("a,b\n1,x\n"), testReserved())
	assert.Error(t, err)
}

func TestLoadCSVDuplicate(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("id,char\n1,x\n1,y\n"), Reserved{Pad: -1})
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	v := testVocab(t)
	for _, s := range []string{"안녕", "a 안 녕a", ""} {
		ids, err := v.Encode(s)
		require.NoError(t, err)
		decoded, err := v.String(ids)
		require.NoError(t, err)
		assert.Equal(t, s, decoded)
	}
	_, err := v.Encode("b")
	assert.True(t, errors.Is(err, ErrUnknownChar))
}

func TestStringBlankEOS(t *testing.T) {
	v := testVocab(t)
	s, err := v.String([]int{4, 7, 5, 2, 6})
	require.NoError(t, err)
	assert.Equal(t, "안녕", s)
}

func TestStringUnmapped(t *testing.T) {
	v := testVocab(t)
	_, err := v.String([]int{4, 42})
	assert.True(t, errors.Is(err, ErrUnmappedID))

	// Ids after EOS are never looked up.
	s, err := v.String([]int{4, 2, 42})
	require.NoError(t, err)
	assert.Equal(t, "안", s)
}

func TestDecodeTensor(t *testing.T) {
	v := testVocab(t)

	res, err := v.DecodeTensor(&LabelTensor{Shape: []int{3}, Data: []int{6, 7, 6}})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa"}, res)

	res, err = v.DecodeTensor(&LabelTensor{
		Shape: []int{2, 3},
		Data: []int{
			4, 5, 2,
			6, 2, 99,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"안녕", "a"}, res)

	_, err = v.DecodeTensor(&LabelTensor{Shape: []int{1, 1, 1}, Data: []int{4}})
	assert.True(t, errors.Is(err, ErrRank))
	_, err = v.DecodeTensor(&LabelTensor{Data: []int{4}})
	assert.True(t, errors.Is(err, ErrRank))
}

func TestCheckClasses(t *testing.T) {
	v := testVocab(t)
	err := v.CheckClasses(v.NumClasses())
	assert.True(t, errors.Is(err, ErrUnmappedID))

	v, err = New(map[int]string{0: "x", 1: "y"}, Reserved{Blank: 2, EOS: 3, SOS: 4, Pad: -1})
	require.NoError(t, err)
	assert.NoError(t, v.CheckClasses(v.NumClasses()))
	assert.NoError(t, v.CheckClasses(4))
	assert.True(t, errors.Is(v.CheckClasses(5), ErrUnmappedID))
}
