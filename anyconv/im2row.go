package anyconv

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/unixpickle/anyspeech/anymask"
	"github.com/unixpickle/anyvec"
)

// Im2Row maps (possibly overlapping) regions in an input
// tensor to rows in a matrix.
// The regions are defined by sliding a window of size
// WindowWidth by WindowHeight along the image with a
// stride of StrideX and StrideY.
// Window entries are DilationX and DilationY components
// apart.
//
// The i-th row corresponds to the i-th (x,y) coordinate
// in the output tensor of a Conv.
//
// An Im2Row caches its mapper.
// You should not modify an Im2Row after using it for any
// mapping operation.
type Im2Row struct {
	WindowWidth  int
	WindowHeight int

	StrideX int
	StrideY int

	DilationX int
	DilationY int

	Input anymask.Dims

	mapperLock sync.Mutex
	mapper     anyvec.Mapper
}

// NumX returns the number of horizontal sliding window
// positions.
func (m *Im2Row) NumX() int {
	return numWindows(m.Input.Width, m.WindowWidth, m.StrideX, m.DilationX)
}

// NumY returns the number of vertical sliding window
// positions.
func (m *Im2Row) NumY() int {
	return numWindows(m.Input.Height, m.WindowHeight, m.StrideY, m.DilationY)
}

// MakeOut allocates a row matrix for the output of Map.
func (m *Im2Row) MakeOut(c anyvec.Creator) *anyvec.Matrix {
	rows := m.NumX() * m.NumY()
	cols := m.WindowWidth * m.WindowHeight * m.Input.Depth
	return &anyvec.Matrix{Data: c.MakeVector(rows * cols), Rows: rows, Cols: cols}
}

// MapAll maps one or more input tensor to a row matrix.
//
// The f func is called for every input tensor in order.
// It should not keep a reference to the matrix after it
// returns, since the matrix may be reused.
func (m *Im2Row) MapAll(in anyvec.Vector, f func(idx int, m *anyvec.Matrix)) {
	m.mapImpl(in, f, false)
}

// MapParallel is like MapAll, except that f may be called
// multiple times concurrently and the calls are not
// necessarily in order.
func (m *Im2Row) MapParallel(in anyvec.Vector, f func(idx int, m *anyvec.Matrix)) {
	m.mapImpl(in, f, true)
}

func (m *Im2Row) mapImpl(in anyvec.Vector, f func(idx int, m *anyvec.Matrix),
	parallel bool) {
	inSize := m.Input.Size()
	if in.Len()%inSize != 0 {
		panic(fmt.Sprintf("input length %d not divisible by %d", in.Len(), inSize))
	}

	mapper := m.Mapper(in.Creator())
	mapAndCall := func(i int, m *anyvec.Matrix) {
		subIn := in.Slice(inSize*i, inSize*(i+1))
		mapper.Map(subIn, m.Data)
		f(i, m)
	}

	n := in.Len() / inSize
	if parallel {
		m.CallParallel(in.Creator(), n, mapAndCall)
	} else {
		m.CallAll(in.Creator(), n, mapAndCall)
	}
}

// CallAll allocates a matrix and calls f once per tensor
// without mapping anything into the matrix.
func (m *Im2Row) CallAll(c anyvec.Creator, n int, f func(int, *anyvec.Matrix)) {
	imageMat := m.MakeOut(c)
	for i := 0; i < n; i++ {
		f(i, imageMat)
	}
}

// CallParallel is like CallAll, but it calls f from
// multiple Goroutines.
func (m *Im2Row) CallParallel(c anyvec.Creator, n int, f func(int, *anyvec.Matrix)) {
	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < runtime.GOMAXPROCS(0); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			imageMat := m.MakeOut(c)
			for i := range jobs {
				f(i, imageMat)
			}
		}()
	}

	wg.Wait()
}

// Mapper returns a mapper for the mapping.
func (m *Im2Row) Mapper(c anyvec.Creator) anyvec.Mapper {
	m.mapperLock.Lock()
	defer m.mapperLock.Unlock()
	if m.mapper != nil && m.mapper.Creator() == c {
		return m.mapper
	}

	in := m.Input
	dx, dy := nonZero(m.DilationX), nonZero(m.DilationY)
	var mapping []int
	for yIdx := 0; yIdx < m.NumY(); yIdx++ {
		y := yIdx * m.StrideY
		for xIdx := 0; xIdx < m.NumX(); xIdx++ {
			x := xIdx * m.StrideX
			for subY := 0; subY < m.WindowHeight; subY++ {
				for subX := 0; subX < m.WindowWidth; subX++ {
					base := in.Index(x+subX*dx, y+subY*dy, 0)
					for subZ := 0; subZ < in.Depth; subZ++ {
						mapping = append(mapping, base+subZ)
					}
				}
			}
		}
	}

	m.mapper = c.MakeMapper(in.Size(), mapping)
	return m.mapper
}

// numWindows computes how many dilated windows fit along
// an axis.
func numWindows(size, window, stride, dilation int) int {
	span := nonZero(dilation)*(window-1) + 1
	if size < span {
		return 0
	}
	return (size-span)/stride + 1
}

func nonZero(x int) int {
	if x == 0 {
		return 1
	}
	return x
}
