// Package anyvocab maps between characters and the label
// ids that speech models emit.
package anyvocab

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/unixpickle/essentials"
)

// BlankSymbol is the character registered for the blank
// id when the vocabulary file does not define one.
const BlankSymbol = "<blank>"

// Errors returned by the vocabulary and codec.
var (
	ErrUnmappedID   = errors.New("unmapped label id")
	ErrUnknownChar  = errors.New("character not in vocabulary")
	ErrRank         = errors.New("unsupported label rank")
	ErrPadCollision = errors.New("pad id collides with a vocabulary id")
)

// Reserved stores the ids with special meaning.
type Reserved struct {
	Blank int
	EOS   int
	SOS   int
	Pad   int
}

// A Vocab is a bidirectional mapping between characters
// and label ids.
type Vocab struct {
	Reserved

	idToChar map[int]string
	charToID map[string]int
}

// New creates a Vocab from an id to character mapping.
//
// If r.Blank is not mapped, it is mapped to BlankSymbol.
// The pad id may not be mapped.
func New(idToChar map[int]string, r Reserved) (*Vocab, error) {
	v := &Vocab{
		Reserved: r,
		idToChar: map[int]string{},
		charToID: map[string]int{},
	}
	for id, ch := range idToChar {
		if id == r.Pad {
			return nil, fmt.Errorf("%w: %d (%q)", ErrPadCollision, id, ch)
		}
		if other, ok := v.charToID[ch]; ok {
			return nil, fmt.Errorf("character %q mapped by ids %d and %d", ch, other, id)
		}
		v.idToChar[id] = ch
		v.charToID[ch] = id
	}
	if _, ok := v.idToChar[r.Blank]; !ok {
		if r.Blank == r.Pad {
			return nil, fmt.Errorf("%w: blank id %d", ErrPadCollision, r.Blank)
		}
		v.idToChar[r.Blank] = BlankSymbol
		v.charToID[BlankSymbol] = r.Blank
	}
	return v, nil
}

// LoadCSV reads a vocabulary table.
//
// The first row is a header which must name an "id"
// column and a "char" column.
// Other columns are ignored.
func LoadCSV(r io.Reader, res Reserved) (*Vocab, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, essentials.AddCtx("load vocabulary", err)
	}
	idCol, charCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "id":
			idCol = i
		case "char":
			charCol = i
		}
	}
	if idCol < 0 || charCol < 0 {
		return nil, fmt.Errorf("load vocabulary: header %v needs id and char columns", header)
	}
	mapping := map[int]string{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, essentials.AddCtx("load vocabulary", err)
		}
		if idCol >= len(row) || charCol >= len(row) {
			return nil, fmt.Errorf("load vocabulary: short row %v", row)
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			return nil, essentials.AddCtx("load vocabulary", err)
		}
		if _, ok := mapping[id]; ok {
			return nil, fmt.Errorf("load vocabulary: duplicate id %d", id)
		}
		mapping[id] = row[charCol]
	}
	v, err := New(mapping, res)
	if err != nil {
		return nil, essentials.AddCtx("load vocabulary", err)
	}
	return v, nil
}

// LoadFile is like LoadCSV, but it reads from a file.
func LoadFile(path string, res Reserved) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, res)
}

// Len returns the number of mapped ids, including the
// blank id.
func (v *Vocab) Len() int {
	return len(v.idToChar)
}

// NumClasses returns the number of model outputs needed
// to cover every mapped id.
func (v *Vocab) NumClasses() int {
	var max int
	for id := range v.idToChar {
		if id+1 > max {
			max = id + 1
		}
	}
	return max
}

// Char returns the character for an id.
func (v *Vocab) Char(id int) (string, bool) {
	ch, ok := v.idToChar[id]
	return ch, ok
}

// ID returns the id for a character.
func (v *Vocab) ID(ch string) (int, bool) {
	id, ok := v.charToID[ch]
	return id, ok
}

// Encode maps every character of s to its id.
func (v *Vocab) Encode(s string) ([]int, error) {
	res := make([]int, 0, len(s))
	for _, ch := range s {
		id, ok := v.charToID[string(ch)]
		if !ok {
			return nil, fmt.Errorf("encode %q: %w: %q", s, ErrUnknownChar, ch)
		}
		res = append(res, id)
	}
	return res, nil
}

// CheckClasses verifies that every model output id in
// [0, numClasses) decodes, so that a prediction can never
// be an unmapped id.
func (v *Vocab) CheckClasses(numClasses int) error {
	for id := 0; id < numClasses; id++ {
		if _, ok := v.idToChar[id]; !ok && id != v.EOS {
			return fmt.Errorf("%w: output class %d", ErrUnmappedID, id)
		}
	}
	return nil
}
