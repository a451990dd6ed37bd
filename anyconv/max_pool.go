package anyconv

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/serializer"
)

func init() {
	var m MaxPool
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeMaxPool)
}

// MaxPool is a max-pooling layer whose stride equals its
// span.
//
// If the span along a dimension doesn't divide the
// corresponding input dimension, then any input values in
// an "incomplete" pool are ignored.
type MaxPool struct {
	SpanX int
	SpanY int

	cacheLock sync.Mutex
	im2cols   map[anymask.Dims]anyvec.Mapper
}

// DeserializeMaxPool deserializes a MaxPool.
func DeserializeMaxPool(d []byte) (*MaxPool, error) {
	var sX, sY serializer.Int
	if err := serializer.DeserializeAny(d, &sX, &sY); err != nil {
		return nil, err
	}
	return &MaxPool{SpanX: int(sX), SpanY: int(sY)}, nil
}

// Desc returns the time-axis descriptor.
func (m *MaxPool) Desc() anymask.LayerDesc {
	return anymask.PoolDesc(m.SpanX)
}

// OutputDims computes the output dimensions for an
// input.
func (m *MaxPool) OutputDims(in anymask.Dims) anymask.Dims {
	return anymask.Dims{
		Width:  in.Width / m.SpanX,
		Height: in.Height / m.SpanY,
		Depth:  in.Depth,
	}
}

// Apply applies the layer to a batch of tensors.
func (m *MaxPool) Apply(in anydiff.Res, d anymask.Dims, batch int) (anydiff.Res, anymask.Dims) {
	imgSize := d.Size()
	if in.Output().Len() != batch*imgSize {
		panic("incorrect input size")
	}
	outDims := m.OutputDims(d)
	cr := in.Output().Creator()
	if batch == 0 || outDims.Size() == 0 {
		return anydiff.NewConst(cr.MakeVector(batch * outDims.Size())), outDims
	}

	im2col := m.im2col(cr, d)
	im2ColTemp := cr.MakeVector(im2col.OutSize())

	var maxResults []anyvec.Vector
	var maxMaps []anyvec.Mapper
	for i := 0; i < batch; i++ {
		subIn := in.Output().Slice(imgSize*i, imgSize*(i+1))
		im2col.Map(subIn, im2ColTemp)
		mapping := anyvec.MapMax(im2ColTemp, m.SpanX*m.SpanY)
		output := cr.MakeVector(mapping.OutSize())
		mapping.Map(im2ColTemp, output)
		maxMaps = append(maxMaps, mapping)
		maxResults = append(maxResults, output)
	}

	return &maxPoolRes{
		Im2Col: im2col,
		In:     in,
		OutVec: cr.Concat(maxResults...),
		Maps:   maxMaps,
	}, outDims
}

// SerializerType returns the unique ID used to serialize
// a MaxPool with the serializer package.
func (m *MaxPool) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyconv.MaxPool"
}

// Serialize serializes the MaxPool.
func (m *MaxPool) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(m.SpanX),
		serializer.Int(m.SpanY),
	)
}

// im2col returns a cached mapper which groups every pool
// into a contiguous chunk.
func (m *MaxPool) im2col(cr anyvec.Creator, d anymask.Dims) anyvec.Mapper {
	m.cacheLock.Lock()
	defer m.cacheLock.Unlock()
	if res, ok := m.im2cols[d]; ok && res.Creator() == cr {
		return res
	}
	if m.im2cols == nil {
		m.im2cols = map[anymask.Dims]anyvec.Mapper{}
	}

	var mapping []int
	for y := 0; y+m.SpanY <= d.Height; y += m.SpanY {
		for x := 0; x+m.SpanX <= d.Width; x += m.SpanX {
			for subZ := 0; subZ < d.Depth; subZ++ {
				for subY := 0; subY < m.SpanY; subY++ {
					for subX := 0; subX < m.SpanX; subX++ {
						mapping = append(mapping, d.Index(x+subX, y+subY, subZ))
					}
				}
			}
		}
	}

	res := cr.MakeMapper(d.Size(), mapping)
	m.im2cols[d] = res
	return res
}

type maxPoolRes struct {
	Im2Col anyvec.Mapper
	In     anydiff.Res
	OutVec anyvec.Vector
	Maps   []anyvec.Mapper
}

func (m *maxPoolRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *maxPoolRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *maxPoolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	outSize := u.Len() / len(m.Maps)
	var upPieces []anyvec.Vector
	for i, mapper := range m.Maps {
		upSlice := u.Slice(outSize*i, outSize*(i+1))
		permed := u.Creator().MakeVector(mapper.InSize())
		mapper.MapTranspose(upSlice, permed)
		upPiece := u.Creator().MakeVector(m.Im2Col.InSize())
		m.Im2Col.MapTranspose(permed, upPiece)
		upPieces = append(upPieces, upPiece)
	}
	m.In.Propagate(u.Creator().Concat(upPieces...), g)
}
