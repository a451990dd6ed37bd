package anydata

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anyspeech/anysgd"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testVocab(t *testing.T) *anyvocab.Vocab {
	v, err := anyvocab.New(map[int]string{1: "a", 2: "b", 3: " "},
		anyvocab.Reserved{Blank: 0, EOS: 4, SOS: 5, Pad: 6})
	require.NoError(t, err)
	return v
}

func testFrames(c anyvec.Creator, frames [][]float64) []anyvec.Vector {
	var res []anyvec.Vector
	for _, f := range frames {
		res = append(res, c.MakeVectorData(c.MakeNumericList(f)))
	}
	return res
}

func TestMakeBatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	samples := []*Sample{
		{Input: testFrames(c, [][]float64{{1, 2}, {3, 4}, {5, 6}}), Transcript: "ab"},
		{Input: testFrames(c, [][]float64{{7, 8}}), Transcript: "b a b"},
	}
	b, err := MakeBatch(c, samples, testVocab(t))
	require.NoError(t, err)

	f := b.Features
	assert.Equal(t, []int{3, 1}, f.Lengths)
	assert.Equal(t, 3, f.Dims.Width)
	assert.Equal(t, 2, f.Dims.Height)
	assert.Equal(t, 1, f.Dims.Depth)
	assert.Equal(t, []float64{
		1, 3, 5, 2, 4, 6,
		7, 0, 0, 8, 0, 0,
	}, f.Data.Output().Data())

	assert.Equal(t, [][]int{{1, 2}, {2, 3, 1, 3, 2}}, b.Labels)
	assert.Equal(t, 5, b.MaxLabelLen())
	assert.Equal(t, []int{2, 6}, b.Targets.Shape)
	assert.Equal(t, []int{
		1, 2, 4, 6, 6, 6,
		2, 3, 1, 3, 2, 4,
	}, b.Targets.Data)
	assert.Equal(t, []string{"ab", "b a b"}, b.Transcripts)

	strs, err := testVocab(t).DecodeTensor(b.Targets)
	require.NoError(t, err)
	assert.Equal(t, b.Transcripts, strs)
}

func TestMakeBatchErrors(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := testVocab(t)

	_, err := MakeBatch(c, nil, v)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = MakeBatch(c, []*Sample{
		{Input: testFrames(c, [][]float64{{1, 2}}), Transcript: "a"},
		{Input: testFrames(c, [][]float64{{1, 2, 3}}), Transcript: "a"},
	}, v)
	assert.ErrorIs(t, err, ErrFeatureShape)

	_, err = MakeBatch(c, []*Sample{
		{Input: testFrames(c, [][]float64{{1, 2}}), Transcript: "abc"},
	}, v)
	assert.ErrorIs(t, err, anyvocab.ErrUnknownChar)
}

func TestFeatureFiles(t *testing.T) {
	dir := t.TempDir()
	path := FeaturePath(dir, "clip.wav")
	assert.Equal(t, filepath.Join(dir, "clip"+FeatureExt), path)

	frames := testFrames(anyvec32.CurrentCreator(), [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, SaveFeatures(path, frames))

	loaded, err := LoadFeatures(anyvec64.DefaultCreator{}, path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []float64{1, 2, 3}, loaded[0].Data())
	assert.Equal(t, []float64{4, 5, 6}, loaded[1].Data())

	_, err = EncodeFeatures(nil)
	assert.ErrorIs(t, err, ErrFeatureShape)
}

func TestManifestList(t *testing.T) {
	dir := t.TempDir()
	c := anyvec64.DefaultCreator{}
	entries := []Entry{
		{AudioPath: "x.pcm", Transcript: "ab"},
		{AudioPath: "y.pcm", Transcript: "ba"},
		{AudioPath: "z.pcm", Transcript: "a"},
	}
	for i, e := range entries {
		frames := make([][]float64, i+1)
		for j := range frames {
			frames[j] = []float64{float64(i), float64(j)}
		}
		require.NoError(t, SaveFeatures(FeaturePath(dir, e.AudioPath), testFrames(c, frames)))
	}
	list := &ManifestList{Creator: c, FeatureDir: dir, Entries: entries}

	sub := list.Slice(1, 3).(*ManifestList)
	sample, err := sub.GetSample(0)
	require.NoError(t, err)
	assert.Equal(t, "ba", sample.Transcript)
	assert.Len(t, sample.Input, 2)

	iter := Batches(list, 2)
	first, err := iter.Next()
	require.NoError(t, err)
	assert.Len(t, first, 2)
	second, err := iter.Next()
	require.NoError(t, err)
	assert.Len(t, second, 1)
	_, err = iter.Next()
	assert.Equal(t, io.EOF, err)

	preloaded, err := Preload(list)
	require.NoError(t, err)
	assert.Equal(t, 3, preloaded.LenAt(2))

	list.Entries = append(list.Entries, Entry{AudioPath: "missing.pcm"})
	_, err = Preload(list)
	assert.Error(t, err)
}

func TestSortSampleList(t *testing.T) {
	var list SliceList
	for _, n := range []int{5, 1, 4, 2, 3, 6} {
		list = append(list, &Sample{Input: make([]anyvec.Vector, n)})
	}
	sorted := &SortSampleList{SortableSampleList: list, BatchSize: 3}
	anysgd.Shuffle(sorted)
	for i := 0; i < sorted.Len(); i += 3 {
		for j := i + 1; j < i+3; j++ {
			assert.LessOrEqual(t, sorted.LenAt(j-1), sorted.LenAt(j))
		}
	}
	sub := sorted.Slice(0, 3).(*SortSampleList)
	assert.Equal(t, 3, sub.BatchSize)
	assert.Equal(t, 3, sub.Len())
}
