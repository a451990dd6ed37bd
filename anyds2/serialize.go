package anyds2

import (
	"fmt"
	"os"

	"github.com/unixpickle/anyspeech"
	"github.com/unixpickle/anyspeech/anyrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

var (
	rnnKinds       = []string{anyrnn.KindRNN, anyrnn.KindGRU, anyrnn.KindLSTM}
	rnnActivations = []string{"tanh", "relu"}
	bidirMerges    = []string{MergeConcat, MergeSum}
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
	var l layerList
	serializer.RegisterTypedDeserializer(l.SerializerType(), deserializeLayerList)
}

// DeserializeModel deserializes a Model.
//
// The result is in inference mode.
func DeserializeModel(d []byte) (*Model, error) {
	var numFreq, numClasses, kind, hidden, numLayers, bidir, act, merge serializer.Int
	var dropProb serializer.Float64
	var res Model
	var layers layerList
	err := serializer.DeserializeAny(d, &numFreq, &numClasses, &kind, &hidden, &numLayers,
		&bidir, &dropProb, &act, &merge, &res.Conv1, &res.Norm1, &res.Conv2, &res.Norm2,
		&res.Clamp, &res.Dropout, &layers, &res.Output)
	if err != nil {
		return nil, essentials.AddCtx("deserialize DeepSpeech2 model", err)
	}
	names := make([]string, 3)
	for i, x := range []struct {
		idx   serializer.Int
		names []string
		what  string
	}{
		{kind, rnnKinds, "RNN kind"},
		{act, rnnActivations, "RNN activation"},
		{merge, bidirMerges, "bidirectional merge"},
	} {
		if int(x.idx) < 0 || int(x.idx) >= len(x.names) {
			return nil, fmt.Errorf("deserialize DeepSpeech2 model: unknown %s %d", x.what, x.idx)
		}
		names[i] = x.names[x.idx]
	}
	res.Config = Config{
		NumFreq:       int(numFreq),
		NumClasses:    int(numClasses),
		RNNType:       names[0],
		HiddenSize:    int(hidden),
		NumLayers:     int(numLayers),
		Bidirectional: bidir == 1,
		Dropout:       float64(dropProb),
		RNNActivation: names[1],
		BidirMerge:    names[2],
	}
	if err := res.Config.Validate(); err != nil {
		return nil, essentials.AddCtx("deserialize DeepSpeech2 model", err)
	}
	res.Layers = layers
	res.SetTraining(false)
	return &res, nil
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyds2.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	cfg := m.Config.withDefaults()
	kind := indexOf(rnnKinds, cfg.RNNType)
	act := indexOf(rnnActivations, cfg.RNNActivation)
	merge := indexOf(bidirMerges, cfg.BidirMerge)
	if kind < 0 || act < 0 || merge < 0 {
		return nil, fmt.Errorf("serialize DeepSpeech2 model: unsupported config %+v", cfg)
	}
	bidir := serializer.Int(0)
	if m.Config.Bidirectional {
		bidir = 1
	}
	return serializer.SerializeAny(
		serializer.Int(m.Config.NumFreq),
		serializer.Int(m.Config.NumClasses),
		serializer.Int(kind),
		serializer.Int(m.Config.HiddenSize),
		serializer.Int(m.Config.NumLayers),
		bidir,
		serializer.Float64(m.Config.Dropout),
		serializer.Int(act),
		serializer.Int(merge),
		m.Conv1, m.Norm1, m.Conv2, m.Norm2, m.Clamp,
		m.Dropout,
		layerList(m.Layers),
		m.Output,
	)
}

func indexOf(names []string, name string) int {
	for i, x := range names {
		if x == name {
			return i
		}
	}
	return -1
}

// Save writes the model to a file.
func (m *Model) Save(path string) error {
	data, err := serializer.SerializeWithType(m)
	if err != nil {
		return essentials.AddCtx("save model", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save model", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	m, ok := obj.(*Model)
	if !ok {
		return nil, fmt.Errorf("load model: unexpected type %T", obj)
	}
	return m, nil
}

type layerList []Recurrent

func deserializeLayerList(d []byte) (layerList, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	res := make(layerList, len(slice))
	for i, x := range slice {
		layer, ok := x.(Recurrent)
		if !ok {
			return nil, fmt.Errorf("not a recurrent layer: %T", x)
		}
		res[i] = layer
	}
	return res, nil
}

func (l layerList) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyds2.layerList"
}

func (l layerList) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(l))
	for i, x := range l {
		s, ok := x.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("not a Serializer: %T", x)
		}
		slice[i] = s
	}
	return serializer.SerializeSlice(slice)
}

var (
	_ anyspeech.Model = (*Model)(nil)
	_ Recurrent       = (*anyrnn.Bidir)(nil)
	_ Recurrent       = (*anyrnn.Unidir)(nil)
)
