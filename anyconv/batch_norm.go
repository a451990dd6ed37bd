package anyconv

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	defaultBNStabilizer = 1e-5
	defaultBNMomentum   = 0.1
)

func init() {
	var b BatchNorm
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBatchNorm)
}

// BatchNorm normalizes every channel of its input.
//
// While Training is set, batch statistics are used and
// folded into the running statistics.
// Otherwise the running statistics are used.
type BatchNorm struct {
	// InputCount is the tensor depth.
	InputCount int

	// Post-normalization affine transform.
	Scalers *anydiff.Var
	Biases  *anydiff.Var

	RunningMean     anyvec.Vector
	RunningVariance anyvec.Vector

	// Stabilizer is added to variances to keep them from
	// being 0.
	// If it is 0, a default is used.
	Stabilizer float64

	// Momentum is the weight of a batch in the running
	// statistics.
	// If it is 0, a default is used.
	Momentum float64

	Training bool
}

// DeserializeBatchNorm deserializes a BatchNorm.
//
// The result is not in training mode.
func DeserializeBatchNorm(d []byte) (*BatchNorm, error) {
	var s, b, mean, variance *anyvecsave.S
	var stab, momentum serializer.Float64
	err := serializer.DeserializeAny(d, &s, &b, &mean, &variance, &stab, &momentum)
	if err != nil {
		return nil, essentials.AddCtx("deserialize BatchNorm", err)
	}
	n := s.Vector.Len()
	if b.Vector.Len() != n || mean.Vector.Len() != n || variance.Vector.Len() != n {
		return nil, errors.New("deserialize BatchNorm: inconsistent vector sizes")
	}
	return &BatchNorm{
		InputCount:      n,
		Scalers:         anydiff.NewVar(s.Vector),
		Biases:          anydiff.NewVar(b.Vector),
		RunningMean:     mean.Vector,
		RunningVariance: variance.Vector,
		Stabilizer:      float64(stab),
		Momentum:        float64(momentum),
	}, nil
}

// NewBatchNorm creates a BatchNorm in training mode.
func NewBatchNorm(c anyvec.Creator, inCount int) *BatchNorm {
	oneScaler := c.MakeVector(inCount)
	oneScaler.AddScalar(c.MakeNumeric(1))
	variance := c.MakeVector(inCount)
	variance.AddScalar(c.MakeNumeric(1))
	return &BatchNorm{
		InputCount:      inCount,
		Scalers:         anydiff.NewVar(oneScaler),
		Biases:          anydiff.NewVar(c.MakeVector(inCount)),
		RunningMean:     c.MakeVector(inCount),
		RunningVariance: variance,
		Training:        true,
	}
}

// Desc returns a length-preserving descriptor.
func (b *BatchNorm) Desc() anymask.LayerDesc {
	return anymask.OtherDesc()
}

// Apply applies the layer to a batch of tensors.
func (b *BatchNorm) Apply(in anydiff.Res, d anymask.Dims, batch int) (anydiff.Res, anymask.Dims) {
	if d.Depth != b.InputCount {
		panic("invalid input depth")
	}
	if in.Output().Len() == 0 {
		return in, d
	}
	if b.Training {
		return b.applyBatch(in), d
	}
	return b.applyRunning(in), d
}

func (b *BatchNorm) applyBatch(in anydiff.Res) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		c := in.Output().Creator()

		negMean, secondMoment := rowMoments(in, b.InputCount)
		return anydiff.Pool(negMean, func(negMean anydiff.Res) anydiff.Res {
			variance := anydiff.Sub(secondMoment, anydiff.Square(negMean))
			b.updateRunning(negMean.Output(), variance.Output())

			variance = anydiff.AddScalar(variance, c.MakeNumeric(b.stabilizer()))
			normalizer := anydiff.Pow(variance, c.MakeNumeric(-0.5))

			totalScaler := anydiff.Mul(b.Scalers, normalizer)
			return anydiff.Pool(totalScaler, func(totalScaler anydiff.Res) anydiff.Res {
				return anydiff.ScaleAddRepeated(
					in,
					totalScaler,
					anydiff.Add(b.Biases, anydiff.Mul(negMean, totalScaler)),
				)
			})
		})
	})
}

func (b *BatchNorm) applyRunning(in anydiff.Res) anydiff.Res {
	c := in.Output().Creator()

	normalizer := b.RunningVariance.Copy()
	normalizer.AddScalar(c.MakeNumeric(b.stabilizer()))
	anyvec.Pow(normalizer, c.MakeNumeric(-0.5))

	negMean := b.RunningMean.Copy()
	negMean.Scale(c.MakeNumeric(-1))

	totalScaler := anydiff.Mul(b.Scalers, anydiff.NewConst(normalizer))
	return anydiff.Pool(totalScaler, func(totalScaler anydiff.Res) anydiff.Res {
		return anydiff.ScaleAddRepeated(
			in,
			totalScaler,
			anydiff.Add(b.Biases, anydiff.Mul(anydiff.NewConst(negMean), totalScaler)),
		)
	})
}

func (b *BatchNorm) updateRunning(negMean, variance anyvec.Vector) {
	c := negMean.Creator()
	m := b.momentum()

	b.RunningMean.Scale(c.MakeNumeric(1 - m))
	scaledMean := negMean.Copy()
	scaledMean.Scale(c.MakeNumeric(-m))
	b.RunningMean.Add(scaledMean)

	b.RunningVariance.Scale(c.MakeNumeric(1 - m))
	scaledVar := variance.Copy()
	scaledVar.Scale(c.MakeNumeric(m))
	b.RunningVariance.Add(scaledVar)
}

// Parameters returns a slice containing the scales and
// biases, in that order.
func (b *BatchNorm) Parameters() []*anydiff.Var {
	return []*anydiff.Var{b.Scalers, b.Biases}
}

// SerializerType returns the unique ID used to serialize
// a BatchNorm with the serializer package.
func (b *BatchNorm) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyconv.BatchNorm"
}

// Serialize serializes the layer.
func (b *BatchNorm) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: b.Scalers.Vector},
		&anyvecsave.S{Vector: b.Biases.Vector},
		&anyvecsave.S{Vector: b.RunningMean},
		&anyvecsave.S{Vector: b.RunningVariance},
		serializer.Float64(b.Stabilizer),
		serializer.Float64(b.Momentum),
	)
}

func (b *BatchNorm) stabilizer() float64 {
	if b.Stabilizer == 0 {
		return defaultBNStabilizer
	}
	return b.Stabilizer
}

func (b *BatchNorm) momentum() float64 {
	if b.Momentum == 0 {
		return defaultBNMomentum
	}
	return b.Momentum
}
