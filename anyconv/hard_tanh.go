package anyconv

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/serializer"
)

func init() {
	var h HardTanh
	serializer.RegisterTypedDeserializer(h.SerializerType(), DeserializeHardTanh)
}

// HardTanh clamps its input to [Min, Max].
//
// The gradient is 1 strictly inside the range and 0
// outside of it.
type HardTanh struct {
	Min float64
	Max float64
}

// DeserializeHardTanh deserializes a HardTanh.
func DeserializeHardTanh(d []byte) (*HardTanh, error) {
	var min, max serializer.Float64
	if err := serializer.DeserializeAny(d, &min, &max); err != nil {
		return nil, err
	}
	return &HardTanh{Min: float64(min), Max: float64(max)}, nil
}

// Desc returns a length-preserving descriptor.
func (h *HardTanh) Desc() anymask.LayerDesc {
	return anymask.OtherDesc()
}

// Apply clamps every component.
func (h *HardTanh) Apply(in anydiff.Res, d anymask.Dims, batch int) (anydiff.Res, anymask.Dims) {
	return Clamp(in, h.Min, h.Max), d
}

// SerializerType returns the unique ID used to serialize
// a HardTanh with the serializer package.
func (h *HardTanh) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyconv.HardTanh"
}

// Serialize serializes the HardTanh.
func (h *HardTanh) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Float64(h.Min), serializer.Float64(h.Max))
}

// Clamp computes min + relu(x - min) - relu(x - max).
func Clamp(in anydiff.Res, min, max float64) anydiff.Res {
	if in.Output().Len() == 0 {
		return in
	}
	c := in.Output().Creator()
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		lower := anydiff.ClipPos(anydiff.AddScalar(in, c.MakeNumeric(-min)))
		upper := anydiff.ClipPos(anydiff.AddScalar(in, c.MakeNumeric(-max)))
		return anydiff.AddScalar(anydiff.Sub(lower, upper), c.MakeNumeric(min))
	})
}
