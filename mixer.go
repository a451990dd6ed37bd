package anyspeech

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/serializer"
)

func init() {
	var c ConcatMixer
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConcatMixer)
	var a AddMixer
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAddMixer)
}

// A Mixer combines batches of inputs from two different
// sources into a single vector.
type Mixer interface {
	Mix(in1, in2 anydiff.Res, batch int) anydiff.Res
}

// A ConcatMixer mixes inputs by concatenating inputs.
type ConcatMixer struct{}

// DeserializeConcatMixer deserializes a ConcatMixer.
func DeserializeConcatMixer(d []byte) (ConcatMixer, error) {
	return ConcatMixer{}, nil
}

// Mix produces a vector of concatenated vectors, like
// [in1[0], in2[0], in1[1], in2[1], ...], where in1[n]
// represents the n-th vector in the batch represented
// by in1.
func (c ConcatMixer) Mix(in1, in2 anydiff.Res, batch int) anydiff.Res {
	return anydiff.Pool(in1, func(in1 anydiff.Res) anydiff.Res {
		return anydiff.Pool(in2, func(in2 anydiff.Res) anydiff.Res {
			var res []anydiff.Res
			v1Len := in1.Output().Len() / batch
			v2Len := in2.Output().Len() / batch
			for i := 0; i < batch; i++ {
				res = append(res, anydiff.Slice(in1, i*v1Len, (i+1)*v1Len),
					anydiff.Slice(in2, i*v2Len, (i+1)*v2Len))
			}
			return anydiff.Concat(res...)
		})
	})
}

// SerializerType returns the unique ID used to serialize
// a ConcatMixer with the serializer package.
func (c ConcatMixer) SerializerType() string {
	return "github.com/unixpickle/anyspeech.ConcatMixer"
}

// Serialize serializes the instance.
func (c ConcatMixer) Serialize() ([]byte, error) {
	return []byte{}, nil
}

// An AddMixer sums its two inputs, which must have the
// same size.
// It is used when a bidirectional layer should keep the
// hidden size of a unidirectional one.
type AddMixer struct{}

// DeserializeAddMixer deserializes an AddMixer.
func DeserializeAddMixer(d []byte) (AddMixer, error) {
	return AddMixer{}, nil
}

// Mix adds the inputs.
func (a AddMixer) Mix(in1, in2 anydiff.Res, batch int) anydiff.Res {
	return anydiff.Add(in1, in2)
}

// SerializerType returns the unique ID used to serialize
// an AddMixer with the serializer package.
func (a AddMixer) SerializerType() string {
	return "github.com/unixpickle/anyspeech.AddMixer"
}

// Serialize serializes the instance.
func (a AddMixer) Serialize() ([]byte, error) {
	return []byte{}, nil
}
