// Package anyconv provides convolutional stages for
// masked sequence stacks.
//
// All tensors are row-major depth-minor, with the time
// axis along the width.
// Input widths may change from batch to batch.
package anyconv

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Conv
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConv)
}

// Conv is a zero-padded, strided, dilated convolution.
//
// Filters are stored as FilterCount row-major
// depth-minor tensors of FilterWidth by FilterHeight by
// InputDepth.
type Conv struct {
	FilterCount  int
	FilterWidth  int
	FilterHeight int

	StrideX int
	StrideY int

	PaddingX int
	PaddingY int

	// Dilations of 0 are treated as 1.
	DilationX int
	DilationY int

	InputDepth int

	Filters *anydiff.Var
	Biases  *anydiff.Var

	// Parallel spreads the batch across CPU cores.
	Parallel bool

	cacheLock sync.Mutex
	paddings  map[anymask.Dims]anyvec.Mapper
	im2rows   map[anymask.Dims]*Im2Row
}

// DeserializeConv deserializes a Conv.
func DeserializeConv(d []byte) (*Conv, error) {
	var inD, fW, fH, sX, sY, pX, pY, dX, dY serializer.Int
	var f, b *anyvecsave.S
	err := serializer.DeserializeAny(d, &inD, &fW, &fH, &sX, &sY, &pX, &pY, &dX, &dY, &f, &b)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Conv", err)
	}
	filterSize := int(fW * fH * inD)
	if filterSize == 0 || f.Vector.Len()%filterSize != 0 ||
		f.Vector.Len()/filterSize != b.Vector.Len() {
		return nil, errors.New("deserialize Conv: invalid filter dimensions")
	}
	return &Conv{
		FilterCount:  b.Vector.Len(),
		FilterWidth:  int(fW),
		FilterHeight: int(fH),
		StrideX:      int(sX),
		StrideY:      int(sY),
		PaddingX:     int(pX),
		PaddingY:     int(pY),
		DilationX:    int(dX),
		DilationY:    int(dY),
		InputDepth:   int(inD),
		Filters:      anydiff.NewVar(f.Vector),
		Biases:       anydiff.NewVar(b.Vector),
	}, nil
}

// InitRand initializes the filters and biases uniformly
// in [-1/sqrt(fanIn), 1/sqrt(fanIn)).
func (c *Conv) InitRand(cr anyvec.Creator) {
	c.InitZero(cr)
	bound := 1 / math.Sqrt(float64(c.FilterWidth*c.FilterHeight*c.InputDepth))
	for _, v := range c.Parameters() {
		anyvec.Rand(v.Vector, anyvec.Uniform, nil)
		v.Vector.Scale(cr.MakeNumeric(2 * bound))
		v.Vector.AddScalar(cr.MakeNumeric(-bound))
	}
}

// InitZero initializes the layer to zero.
func (c *Conv) InitZero(cr anyvec.Creator) {
	filterSize := c.FilterWidth * c.FilterHeight * c.InputDepth
	c.Filters = anydiff.NewVar(cr.MakeVector(filterSize * c.FilterCount))
	c.Biases = anydiff.NewVar(cr.MakeVector(c.FilterCount))
}

// Desc returns the time-axis descriptor.
func (c *Conv) Desc() anymask.LayerDesc {
	return anymask.ConvDesc(c.FilterWidth, c.StrideX, c.PaddingX, c.DilationX)
}

// OutputDims computes the output dimensions for an
// input.
// A zero-width input produces a zero-width output.
func (c *Conv) OutputDims(in anymask.Dims) anymask.Dims {
	res := anymask.Dims{Depth: c.FilterCount}
	if in.Width > 0 {
		res.Width = numWindows(in.Width+2*c.PaddingX, c.FilterWidth, nonZero(c.StrideX),
			c.DilationX)
	}
	if in.Height > 0 {
		res.Height = numWindows(in.Height+2*c.PaddingY, c.FilterHeight, nonZero(c.StrideY),
			c.DilationY)
	}
	return res
}

// Apply applies the layer to a batch of tensors.
//
// The layer must have been initialized.
func (c *Conv) Apply(in anydiff.Res, d anymask.Dims, batch int) (anydiff.Res, anymask.Dims) {
	if d.Depth != c.InputDepth {
		panic(fmt.Sprintf("input depth should be %d but got %d", c.InputDepth, d.Depth))
	}
	if in.Output().Len() != batch*d.Size() {
		panic("incorrect input size")
	}
	outDims := c.OutputDims(d)
	cr := in.Output().Creator()
	if batch == 0 || outDims.Size() == 0 {
		return anydiff.NewConst(cr.MakeVector(batch * outDims.Size())), outDims
	}
	padMap, im2row := c.mappers(cr, d)
	padded := in
	if c.PaddingX != 0 || c.PaddingY != 0 {
		padded = pad(in, padMap)
	}
	return c.convolve(padded, im2row, batch), outDims
}

// Parameters returns the filters and biases, in that
// order.
//
// If the layer is uninitialized, the result is nil.
func (c *Conv) Parameters() []*anydiff.Var {
	if c.Filters == nil || c.Biases == nil {
		return nil
	}
	return []*anydiff.Var{c.Filters, c.Biases}
}

// SerializerType returns the unique ID used to serialize
// a Conv with the serializer package.
func (c *Conv) SerializerType() string {
	return "github.com/unixpickle/anyspeech/anyconv.Conv"
}

// Serialize serializes the layer.
//
// If the layer was not yet initialized, this fails.
func (c *Conv) Serialize() ([]byte, error) {
	if c.Filters == nil || c.Biases == nil {
		return nil, errors.New("cannot serialize uninitialized Conv")
	}
	return serializer.SerializeAny(
		serializer.Int(c.InputDepth),
		serializer.Int(c.FilterWidth),
		serializer.Int(c.FilterHeight),
		serializer.Int(c.StrideX),
		serializer.Int(c.StrideY),
		serializer.Int(c.PaddingX),
		serializer.Int(c.PaddingY),
		serializer.Int(c.DilationX),
		serializer.Int(c.DilationY),
		&anyvecsave.S{Vector: c.Filters.Vector},
		&anyvecsave.S{Vector: c.Biases.Vector},
	)
}

// mappers returns the cached padding mapper and Im2Row
// for an input size.
func (c *Conv) mappers(cr anyvec.Creator, d anymask.Dims) (anyvec.Mapper, *Im2Row) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if c.paddings == nil {
		c.paddings = map[anymask.Dims]anyvec.Mapper{}
		c.im2rows = map[anymask.Dims]*Im2Row{}
	}
	padMap, ok := c.paddings[d]
	if !ok || padMap.Creator() != cr {
		padMap = padMapper(cr, d, c.PaddingX, c.PaddingY)
		c.paddings[d] = padMap
	}
	im2row, ok := c.im2rows[d]
	if !ok {
		im2row = &Im2Row{
			WindowWidth:  c.FilterWidth,
			WindowHeight: c.FilterHeight,
			StrideX:      nonZero(c.StrideX),
			StrideY:      nonZero(c.StrideY),
			DilationX:    c.DilationX,
			DilationY:    c.DilationY,
			Input:        paddedDims(d, c.PaddingX, c.PaddingY),
		}
		c.im2rows[d] = im2row
	}
	return padMap, im2row
}
