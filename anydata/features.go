package anydata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// FeatureExt is the extension of feature files.
const FeatureExt = ".feats"

// ErrFeatureShape is returned when a feature file or a
// list of frames is not a frames-by-bins matrix.
var ErrFeatureShape = errors.New("inconsistent feature shape")

// FeaturePath returns the feature file for an audio file:
// the audio path, relative to dir, with its extension
// replaced by FeatureExt.
func FeaturePath(dir, audioPath string) string {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	return filepath.Join(dir, base+FeatureExt)
}

// EncodeFeatures serializes a list of frames.
// Every frame must have the same number of bins.
func EncodeFeatures(frames []anyvec.Vector) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("encode features: %w: no frames", ErrFeatureShape)
	}
	bins := frames[0].Len()
	for i, f := range frames {
		if f.Len() != bins {
			return nil, fmt.Errorf("encode features: %w: frame %d has %d bins, not %d",
				ErrFeatureShape, i, f.Len(), bins)
		}
	}
	joined := frames[0].Creator().Concat(frames...)
	return serializer.SerializeAny(serializer.Int(bins), &anyvecsave.S{Vector: joined})
}

// DecodeFeatures deserializes frames produced by
// EncodeFeatures, converting them to the creator.
func DecodeFeatures(c anyvec.Creator, data []byte) ([]anyvec.Vector, error) {
	var bins serializer.Int
	var joined *anyvecsave.S
	if err := serializer.DeserializeAny(data, &bins, &joined); err != nil {
		return nil, essentials.AddCtx("decode features", err)
	}
	if bins <= 0 || joined.Vector.Len()%int(bins) != 0 {
		return nil, fmt.Errorf("decode features: %w: %d components in rows of %d",
			ErrFeatureShape, joined.Vector.Len(), bins)
	}
	vec := convertVector(c, joined.Vector)
	frames := make([]anyvec.Vector, vec.Len()/int(bins))
	for i := range frames {
		frames[i] = vec.Slice(i*int(bins), (i+1)*int(bins))
	}
	return frames, nil
}

// SaveFeatures writes frames to a file.
func SaveFeatures(path string, frames []anyvec.Vector) error {
	data, err := EncodeFeatures(frames)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save features", err)
	}
	return nil
}

// LoadFeatures reads frames from a file.
func LoadFeatures(c anyvec.Creator, path string) ([]anyvec.Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load features", err)
	}
	return DecodeFeatures(c, data)
}

func convertVector(c anyvec.Creator, v anyvec.Vector) anyvec.Vector {
	if v.Creator() == c {
		return v
	}
	return c.MakeVectorData(c.MakeNumericList(vectorFloats(v)))
}

func vectorFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}
