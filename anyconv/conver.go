package anyconv

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// convolve performs the convolution on a padded batch
// using the im2row technique, where input tensors are
// converted to matrices and multiplied by the filters.
func (c *Conv) convolve(in anydiff.Res, im2row *Im2Row, batch int) anydiff.Res {
	cr := in.Output().Creator()
	filterMatrix := c.filterMatrix()
	rows := im2row.NumX() * im2row.NumY()
	outImgSize := rows * c.FilterCount

	productResults := make([]anyvec.Vector, batch)
	c.mapper(im2row)(in.Output(), func(i int, imgMatrix *anyvec.Matrix) {
		prodMat := &anyvec.Matrix{
			Data: cr.MakeVector(outImgSize),
			Rows: rows,
			Cols: c.FilterCount,
		}
		prodMat.Product(false, true, cr.MakeNumeric(1), imgMatrix, filterMatrix,
			cr.MakeNumeric(0))
		productResults[i] = prodMat.Data
	})

	outData := cr.Concat(productResults...)
	anyvec.AddRepeated(outData, c.Biases.Vector)

	ourVars := anydiff.VarSet{}
	ourVars.Add(c.Filters)
	ourVars.Add(c.Biases)

	return &convRes{
		Layer:  c,
		Im2Row: im2row,
		N:      batch,
		In:     in,
		OutVec: outData,
		V:      anydiff.MergeVarSets(in.Vars(), ourVars),
	}
}

func (c *Conv) filterMatrix() *anyvec.Matrix {
	return &anyvec.Matrix{
		Data: c.Filters.Vector,
		Rows: c.FilterCount,
		Cols: c.FilterWidth * c.FilterHeight * c.InputDepth,
	}
}

func (c *Conv) mapper(im2row *Im2Row) func(anyvec.Vector, func(int, *anyvec.Matrix)) {
	if c.Parallel {
		return im2row.MapParallel
	}
	return im2row.MapAll
}

type convRes struct {
	Layer  *Conv
	Im2Row *Im2Row
	N      int
	In     anydiff.Res
	OutVec anyvec.Vector
	V      anydiff.VarSet
}

func (c *convRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *convRes) Vars() anydiff.VarSet {
	return c.V
}

func (c *convRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	doIn := g.Intersects(c.In.Vars())

	outSize := u.Len() / c.N
	inSize := c.In.Output().Len() / c.N

	filterMat := c.Layer.filterMatrix()

	one := u.Creator().MakeNumeric(1)
	zero := u.Creator().MakeNumeric(0)

	if biasGrad, ok := g[c.Layer.Biases]; ok {
		c.propagateBiases(biasGrad, u)
	}

	inputUpstreams := make([]anyvec.Vector, c.N)
	var updateLock sync.Mutex
	c.loopImageMatrix(g, func(i int, imgMat *anyvec.Matrix) {
		uMat := &anyvec.Matrix{
			Data: u.Slice(outSize*i, outSize*(i+1)),
			Rows: c.Im2Row.NumX() * c.Im2Row.NumY(),
			Cols: c.Layer.FilterCount,
		}
		if filterGrad, ok := g[c.Layer.Filters]; ok {
			fgMat := *filterMat
			fgMat.Data = filterGrad.Creator().MakeVector(filterGrad.Len())
			fgMat.Product(true, false, one, uMat, imgMat, zero)
			updateLock.Lock()
			filterGrad.Add(fgMat.Data)
			updateLock.Unlock()
		}
		if doIn {
			imgMat.Product(false, false, one, uMat, filterMat, zero)
			inUp := u.Creator().MakeVector(inSize)
			c.Im2Row.Mapper(u.Creator()).MapTranspose(imgMat.Data, inUp)
			inputUpstreams[i] = inUp
		}
	})

	if doIn {
		c.In.Propagate(u.Creator().Concat(inputUpstreams...), g)
	}
}

func (c *convRes) loopImageMatrix(g anydiff.Grad, f func(i int, m *anyvec.Matrix)) {
	if _, ok := g[c.Layer.Filters]; ok {
		c.Layer.mapper(c.Im2Row)(c.In.Output(), f)
	} else if c.Layer.Parallel {
		c.Im2Row.CallParallel(c.In.Output().Creator(), c.N, f)
	} else {
		c.Im2Row.CallAll(c.In.Output().Creator(), c.N, f)
	}
}

func (c *convRes) propagateBiases(biasGrad, upstream anyvec.Vector) {
	upMat := &anyvec.Matrix{
		Data: upstream,
		Rows: upstream.Len() / c.Layer.Biases.Vector.Len(),
		Cols: c.Layer.Biases.Vector.Len(),
	}
	oneMat := &anyvec.Matrix{
		Data: upstream.Creator().MakeVector(upMat.Rows),
		Rows: upMat.Rows,
		Cols: 1,
	}
	oneMat.Data.AddScalar(upstream.Creator().MakeNumeric(1))
	resMat := &anyvec.Matrix{
		Data: biasGrad,
		Rows: biasGrad.Len(),
		Cols: 1,
	}
	one := upstream.Creator().MakeNumeric(1)
	resMat.Product(true, false, one, upMat, oneMat, one)
}
