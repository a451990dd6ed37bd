package anycer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	s := Distance("hello world", "helo world")
	assert.Equal(t, Stats{Distance: 1, Length: 10}, s)

	s = Distance("안녕 하세요", "안녕하세오")
	assert.Equal(t, Stats{Distance: 1, Length: 5}, s)

	s = Distance("", "abc")
	assert.Equal(t, Stats{Distance: 3, Length: 0}, s)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "abc", Normalize(" a\tb\nc  "))
}

func TestScoreAccumulate(t *testing.T) {
	batch1, err := Score([]string{"hello world", "abc"}, []string{"helo world", "abd"})
	require.NoError(t, err)
	assert.Equal(t, Stats{Distance: 2, Length: 13}, batch1)

	batch2, err := Score([]string{"xyz"}, []string{""})
	require.NoError(t, err)
	assert.Equal(t, Stats{Distance: 3, Length: 3}, batch2)

	total := batch1.Add(batch2)
	assert.Equal(t, Stats{Distance: 5, Length: 16}, total)
	rate, err := total.Rate()
	require.NoError(t, err)
	assert.InDelta(t, 5.0/16.0, rate, 1e-12)
}

func TestScoreMismatch(t *testing.T) {
	_, err := Score([]string{"a"}, nil)
	assert.True(t, errors.Is(err, ErrCountMismatch))
}

func TestRateEmpty(t *testing.T) {
	var s Stats
	_, err := s.Rate()
	assert.True(t, errors.Is(err, ErrNoReference))

	s, err = Score([]string{" "}, []string{"x"})
	require.NoError(t, err)
	_, err = s.Rate()
	assert.True(t, errors.Is(err, ErrNoReference))
	assert.True(t, math.IsNaN(s.RateOrNaN()))

	assert.Equal(t, 0.25, Stats{Distance: 1, Length: 4}.RateOrNaN())
}
