// Package anymask keeps batches of zero-padded,
// variable-length tensors consistent as they pass
// through layers that change their time dimension.
//
// Tensors are row-major depth-minor, like the tensors
// used by anyconv.
// The width of a tensor is the time axis, the height is
// the frequency axis, and the depth is the channel axis.
package anymask

import (
	"errors"
	"fmt"
)

// Errors returned by length propagation.
var (
	ErrInvalidDesc       = errors.New("invalid layer descriptor")
	ErrNonPositiveLength = errors.New("non-positive propagated length")
	ErrLengthMismatch    = errors.New("propagated length disagrees with tensor width")
)

// Kind is the kind of a layer, as far as sequence lengths
// are concerned.
type Kind int

// These are the supported layer kinds.
// Any kind other than Conv and MaxPool preserves lengths.
const (
	Other Kind = iota
	Conv
	MaxPool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Other:
		return "other"
	case Conv:
		return "conv"
	case MaxPool:
		return "maxpool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// LayerDesc describes how a layer changes the time axis.
//
// For Conv, a Stride or Dilation of 0 means 1.
// For MaxPool, a Stride of 0 means 2, and the remaining
// fields are ignored.
type LayerDesc struct {
	Kind     Kind
	Kernel   int
	Stride   int
	Padding  int
	Dilation int
}

// ConvDesc creates a descriptor for a convolution along
// the time axis.
func ConvDesc(kernel, stride, padding, dilation int) LayerDesc {
	return LayerDesc{
		Kind:     Conv,
		Kernel:   kernel,
		Stride:   stride,
		Padding:  padding,
		Dilation: dilation,
	}
}

// PoolDesc creates a descriptor for a max-pool with the
// given stride along the time axis.
func PoolDesc(stride int) LayerDesc {
	return LayerDesc{Kind: MaxPool, Kernel: stride, Stride: stride}
}

// OtherDesc creates a length-preserving descriptor.
func OtherDesc() LayerDesc {
	return LayerDesc{Kind: Other}
}

// StrideOrDefault returns the effective stride.
func (l LayerDesc) StrideOrDefault() int {
	if l.Stride != 0 {
		return l.Stride
	}
	if l.Kind == MaxPool {
		return 2
	}
	return 1
}

// DilationOrDefault returns the effective dilation.
func (l LayerDesc) DilationOrDefault() int {
	if l.Dilation == 0 {
		return 1
	}
	return l.Dilation
}

// Validate checks that the descriptor can be used to
// propagate lengths.
func (l LayerDesc) Validate() error {
	switch l.Kind {
	case Conv:
		if l.Kernel < 1 || l.Stride < 0 || l.Padding < 0 || l.Dilation < 0 {
			return fmt.Errorf("%w: %+v", ErrInvalidDesc, l)
		}
	case MaxPool:
		if l.Stride < 0 {
			return fmt.Errorf("%w: %+v", ErrInvalidDesc, l)
		}
	}
	return nil
}

// OutputLen computes the output length for a single
// input length.
//
// A zero input length always yields zero.
// A positive input length which would produce a
// non-positive output length is an error.
func OutputLen(n int, d LayerDesc) (int, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative input length %d", ErrInvalidDesc, n)
	}
	if n == 0 {
		return 0, nil
	}
	var res int
	switch d.Kind {
	case Conv:
		span := d.DilationOrDefault()*(d.Kernel-1) + 1
		padded := n + 2*d.Padding
		if padded < span {
			res = 0
		} else {
			res = (padded-span)/d.StrideOrDefault() + 1
		}
	case MaxPool:
		res = n / d.StrideOrDefault()
	default:
		return n, nil
	}
	if res <= 0 {
		return 0, fmt.Errorf("%w: %s layer maps length %d to %d", ErrNonPositiveLength,
			d.Kind, n, res)
	}
	return res, nil
}

// Propagate maps every length through the layer.
// The input slice is not modified.
func Propagate(lengths []int, d LayerDesc) ([]int, error) {
	res := make([]int, len(lengths))
	for i, n := range lengths {
		out, err := OutputLen(n, d)
		if err != nil {
			return nil, fmt.Errorf("propagate length %d: %w", i, err)
		}
		res[i] = out
	}
	return res, nil
}

// PropagateAll maps lengths through a chain of layers.
func PropagateAll(lengths []int, descs ...LayerDesc) ([]int, error) {
	for _, d := range descs {
		var err error
		lengths, err = Propagate(lengths, d)
		if err != nil {
			return nil, err
		}
	}
	return lengths, nil
}
