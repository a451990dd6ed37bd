// Package anycer computes character error rates.
package anycer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Errors returned by the scorer.
var (
	ErrNoReference   = errors.New("character error rate of empty reference")
	ErrCountMismatch = errors.New("reference and hypothesis counts differ")
)

// Stats accumulates edit distances and reference lengths.
//
// The zero value is an empty accumulator.
type Stats struct {
	Distance int
	Length   int
}

// Add returns the sum of two accumulators.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Distance: s.Distance + other.Distance,
		Length:   s.Length + other.Length,
	}
}

// Rate returns Distance/Length.
// It fails if Length is 0.
func (s Stats) Rate() (float64, error) {
	if s.Length == 0 {
		return 0, ErrNoReference
	}
	return float64(s.Distance) / float64(s.Length), nil
}

// RateOrNaN is like Rate, but reports an undefined rate
// as NaN.
func (s Stats) RateOrNaN() float64 {
	if s.Length == 0 {
		return math.NaN()
	}
	return float64(s.Distance) / float64(s.Length)
}

// Normalize removes all whitespace from s.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Distance computes the character-level edit distance
// between the normalized reference and hypothesis.
// Length is the rune count of the normalized reference.
func Distance(ref, hyp string) Stats {
	ref = Normalize(ref)
	hyp = Normalize(hyp)
	return Stats{
		Distance: levenshtein.ComputeDistance(ref, hyp),
		Length:   utf8.RuneCountInString(ref),
	}
}

// Score sums the Distance of every pair.
func Score(refs, hyps []string) (Stats, error) {
	if len(refs) != len(hyps) {
		return Stats{}, fmt.Errorf("%w: %d references, %d hypotheses", ErrCountMismatch,
			len(refs), len(hyps))
	}
	var res Stats
	for i, ref := range refs {
		res = res.Add(Distance(ref, hyps[i]))
	}
	return res, nil
}
