package anydata

import (
	"sort"

	"github.com/unixpickle/anyspeech/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Sample is a sequence of feature frames paired with
// its transcript.
type Sample struct {
	Input      []anyvec.Vector
	Transcript string
}

// A SampleList is an anysgd.SampleList that produces
// speech samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
}

// A SortableSampleList is a SampleList with an extra
// LenAt method for efficiently getting the number of
// frames in a sample.
type SortableSampleList interface {
	SampleList

	LenAt(idx int) int
}

// A SliceList is a SampleList with in-memory samples.
type SliceList []*Sample

// Len returns the number of samples.
func (s SliceList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceList) Slice(i, j int) anysgd.SampleList {
	return append(SliceList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}

// LenAt returns the number of frames in a sample.
func (s SliceList) LenAt(idx int) int {
	return len(s[idx].Input)
}

// A ManifestList is a SampleList that reads each sample's
// features from disk when it is requested.
type ManifestList struct {
	Creator anyvec.Creator

	// FeatureDir is the directory which FeaturePath
	// resolves audio paths against.
	FeatureDir string

	Entries []Entry
}

// Len returns the number of entries.
func (m *ManifestList) Len() int {
	return len(m.Entries)
}

// Swap swaps two entries.
func (m *ManifestList) Swap(i, j int) {
	m.Entries[i], m.Entries[j] = m.Entries[j], m.Entries[i]
}

// Slice copies a sub-slice of the list.
func (m *ManifestList) Slice(i, j int) anysgd.SampleList {
	return &ManifestList{
		Creator:    m.Creator,
		FeatureDir: m.FeatureDir,
		Entries:    append([]Entry{}, m.Entries[i:j]...),
	}
}

// GetSample loads the features for an entry.
func (m *ManifestList) GetSample(idx int) (*Sample, error) {
	entry := m.Entries[idx]
	frames, err := LoadFeatures(m.Creator, FeaturePath(m.FeatureDir, entry.AudioPath))
	if err != nil {
		return nil, essentials.AddCtx("get sample "+entry.AudioPath, err)
	}
	return &Sample{Input: frames, Transcript: entry.Transcript}, nil
}

// Preload reads every sample of a list into memory.
func Preload(s SampleList) (SliceList, error) {
	res := make(SliceList, s.Len())
	for i := range res {
		sample, err := s.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("preload", err)
		}
		res[i] = sample
	}
	return res, nil
}

// A SortSampleList wraps a SampleList and ensures that
// samples will be sorted by length within reasonably
// small chunks.
// This keeps the padding in each mini-batch small.
type SortSampleList struct {
	SortableSampleList

	// BatchSize is the size of the chunks that should be
	// sorted.
	BatchSize int
}

// Slice produces a subset of the SortSampleList.
func (s *SortSampleList) Slice(i, j int) anysgd.SampleList {
	sliced := s.SortableSampleList.Slice(i, j)
	return &SortSampleList{
		SortableSampleList: sliced.(SortableSampleList),
		BatchSize:          s.BatchSize,
	}
}

// PostShuffle sorts chunks of samples.
func (s *SortSampleList) PostShuffle() {
	for i := 0; i < s.Len(); i += s.BatchSize {
		bs := s.BatchSize
		if bs > s.Len()-i {
			bs = s.Len() - i
		}
		sort.Sort(&sorter{S: s.SortableSampleList, Start: i, End: i + bs})
	}
}

type sorter struct {
	S     SortableSampleList
	Start int
	End   int
}

func (s *sorter) Len() int {
	return s.End - s.Start
}

func (s *sorter) Swap(i, j int) {
	s.S.Swap(i+s.Start, j+s.Start)
}

func (s *sorter) Less(i, j int) bool {
	return s.S.LenAt(i+s.Start) < s.S.LenAt(j+s.Start)
}
