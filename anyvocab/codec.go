package anyvocab

import (
	"fmt"
	"strings"
)

// A LabelTensor is a label array of rank 1 or 2.
// Data is row-major.
type LabelTensor struct {
	Shape []int
	Data  []int
}

// Rows splits the tensor into rows.
// A rank 1 tensor is a single row.
func (l *LabelTensor) Rows() ([][]int, error) {
	size := 1
	for _, x := range l.Shape {
		size *= x
	}
	if len(l.Shape) == 0 || len(l.Shape) > 2 {
		return nil, fmt.Errorf("%w: %d", ErrRank, len(l.Shape))
	}
	if size != len(l.Data) {
		return nil, fmt.Errorf("label tensor of shape %v has %d entries", l.Shape, len(l.Data))
	}
	if len(l.Shape) == 1 {
		return [][]int{l.Data}, nil
	}
	rows := make([][]int, l.Shape[0])
	for i := range rows {
		rows[i] = l.Data[i*l.Shape[1] : (i+1)*l.Shape[1]]
	}
	return rows, nil
}

// String decodes a label sequence.
//
// Decoding stops at the first EOS.
// Blanks are skipped.
func (v *Vocab) String(ids []int) (string, error) {
	var res strings.Builder
	for _, id := range ids {
		if id == v.EOS {
			break
		} else if id == v.Blank {
			continue
		}
		ch, ok := v.idToChar[id]
		if !ok {
			return "", fmt.Errorf("%w: %d", ErrUnmappedID, id)
		}
		res.WriteString(ch)
	}
	return res.String(), nil
}

// Strings decodes a batch of label sequences, one string
// per sequence.
func (v *Vocab) Strings(rows [][]int) ([]string, error) {
	res := make([]string, len(rows))
	for i, row := range rows {
		s, err := v.String(row)
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		res[i] = s
	}
	return res, nil
}

// DecodeTensor decodes a rank 1 tensor to one string or a
// rank 2 tensor to one string per row.
func (v *Vocab) DecodeTensor(l *LabelTensor) ([]string, error) {
	rows, err := l.Rows()
	if err != nil {
		return nil, err
	}
	return v.Strings(rows)
}
