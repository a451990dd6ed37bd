package anyctc

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

var internalCreator = anyvec64.DefaultCreator{}

// vectorTo64 creates a vector with []float64 numeric list
// types.
func vectorTo64(v anyvec.Vector) anyvec.Vector {
	switch d := v.Data().(type) {
	case []float64:
		return internalCreator.MakeVectorData(d)
	case []float32:
		s := make([]float64, len(d))
		for i, x := range d {
			s[i] = float64(x)
		}
		return internalCreator.MakeVectorData(s)
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

// vectorFrom64 converts a []float64 vector to a vector
// of the given creator.
func vectorFrom64(c anyvec.Creator, v anyvec.Vector) anyvec.Vector {
	if c == anyvec.Creator(internalCreator) {
		return v
	}
	return c.MakeVectorData(c.MakeNumericList(v.Data().([]float64)))
}

func batchesTo64(v []*anyseq.Batch) []*anyseq.Batch {
	res := make([]*anyseq.Batch, len(v))
	for i, x := range v {
		res[i] = &anyseq.Batch{
			Packed:  vectorTo64(x.Packed),
			Present: x.Present,
		}
	}
	return res
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
