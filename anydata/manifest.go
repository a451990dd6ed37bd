// Package anydata loads speech datasets: transcript
// manifests, pre-extracted feature files, and padded
// batches for training and evaluation.
package anydata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/unixpickle/essentials"
)

// ErrManifestRow is returned for manifest rows that do
// not have three tab-separated fields.
var ErrManifestRow = errors.New("malformed manifest row")

// An Entry is one row of a manifest.
type Entry struct {
	AudioPath  string
	Transcript string
}

// LoadManifest reads a tab-separated manifest.
//
// Each line has the form "path<TAB>ignored<TAB>transcript".
// Trailing carriage returns and blank lines are ignored.
func LoadManifest(r io.Reader) ([]Entry, error) {
	var res []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("load manifest: line %d: %w (%d fields)",
				lineNum, ErrManifestRow, len(fields))
		}
		res = append(res, Entry{AudioPath: fields[0], Transcript: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("load manifest", err)
	}
	return res, nil
}

// LoadManifestFile is like LoadManifest, but it reads
// from a file.
func LoadManifestFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load manifest", err)
	}
	defer f.Close()
	return LoadManifest(f)
}

// Split shuffles a copy of the entries and splits it into
// a training set of trainCount entries and a validation
// set with the rest.
//
// If trainCount exceeds the number of entries, the
// validation set is empty.
// The same seed always produces the same split.
func Split(entries []Entry, trainCount int, seed int64) (train, valid []Entry) {
	shuffled := append([]Entry{}, entries...)
	gen := rand.New(rand.NewSource(seed))
	gen.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if trainCount > len(shuffled) {
		trainCount = len(shuffled)
	} else if trainCount < 0 {
		trainCount = 0
	}
	return shuffled[:trainCount], shuffled[trainCount:]
}
