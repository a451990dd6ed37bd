package anyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b Bidir
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBidir)
}

// Bidir implements a bi-directional RNN layer.
//
// The forward block is mapped over the input sequence and
// the backward block over the reversed input sequence.
// Outputs for the same timestep are combined with the
// Mixer, forward output first.
type Bidir struct {
	Forward  Block
	Backward Block
	Mixer    anyspeech.Mixer
}

// DeserializeBidir deserializes a Bidir.
func DeserializeBidir(d []byte) (*Bidir, error) {
	var res Bidir
	err := serializer.DeserializeAny(d, &res.Forward, &res.Backward, &res.Mixer)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Bidir", err)
	}
	return &res, nil
}

// Apply applies the bidirectional RNN.
func (b *Bidir) Apply(in anyseq.Seq) anyseq.Seq {
	return anyseq.Pool(in, func(in anyseq.Seq) anyseq.Seq {
		forwOut := Map(in, b.Forward)
		backOut := anyseq.Reverse(Map(anyseq.Reverse(in), b.Backward))
		return anyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
			return b.Mixer.Mix(v[0], v[1], n)
		}, forwOut, backOut)
	})
}

// Parameters returns the parameters of the blocks and
// the Mixer.
func (b *Bidir) Parameters() []*anydiff.Var {
	return anyspeech.AllParameters(b.Forward, b.Backward, b.Mixer)
}

// SerializerType returns the unique ID used to serialize
// a Bidir with the serializer package.
func (b *Bidir) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.Bidir"
}

// Serialize serializes the Bidir.
func (b *Bidir) Serialize() ([]byte, error) {
	return serializer.SerializeAny(b.Forward, b.Backward, b.Mixer)
}
