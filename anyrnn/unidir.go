package anyrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var u Unidir
	serializer.RegisterTypedDeserializer(u.SerializerType(), DeserializeUnidir)
}

// Unidir maps a Block forward over a sequence.
// It is the one-directional counterpart of Bidir.
type Unidir struct {
	Block Block
}

// DeserializeUnidir deserializes a Unidir.
func DeserializeUnidir(d []byte) (*Unidir, error) {
	var res Unidir
	if err := serializer.DeserializeAny(d, &res.Block); err != nil {
		return nil, essentials.AddCtx("deserialize Unidir", err)
	}
	return &res, nil
}

// Apply applies the block.
func (u *Unidir) Apply(in anyseq.Seq) anyseq.Seq {
	return Map(in, u.Block)
}

// Parameters returns the parameters of the block.
func (u *Unidir) Parameters() []*anydiff.Var {
	return anyspeech.AllParameters(u.Block)
}

// SerializerType returns the unique ID used to serialize
// a Unidir with the serializer package.
func (u *Unidir) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyrnn.Unidir"
}

// Serialize serializes the Unidir.
func (u *Unidir) Serialize() ([]byte, error) {
	return serializer.SerializeAny(u.Block)
}
