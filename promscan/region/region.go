// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package region computes clamped promoter coordinate windows adjacent
// to genomic features.
package region

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/biogo/seq/linear"
)

// Mode selects which side of a feature the window covers. Naming
// follows the promoter convention of the original tool: the window is
// taken relative to the feature in genome coordinates and the meaning
// of Downstream and Upstream swaps between strands.
type Mode int

const (
	Downstream Mode = iota
	Upstream
	Both
)

func (m Mode) String() string {
	switch m {
	case Downstream:
		return "downstream"
	case Upstream:
		return "upstream"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "downstream", "down", "d":
		return Downstream, nil
	case "upstream", "up", "u":
		return Upstream, nil
	case "both", "b":
		return Both, nil
	}
	return 0, fmt.Errorf("region: invalid mode %q", s)
}

// MinLength is the smallest accepted window size; computed intervals
// with end−start below this are dropped.
const MinLength = 10

var (
	// ErrUnknownSequence reports a feature on a sequence absent from
	// the length index.
	ErrUnknownSequence = errors.New("region: sequence not found in genome")

	// ErrShortRegion reports a computed interval shorter than MinLength.
	ErrShortRegion = errors.New("region: region shorter than minimum length")
)

// Feature is the coordinate source a window is computed from: either a
// resolved annotation feature or, under the coordinate source override,
// the alignment coordinates of a selected hit. Coordinates are 1-based
// inclusive.
type Feature struct {
	SubjectID string
	SeqID     string
	Start     int
	End       int
	Strand    seq.Strand
}

// Window is a clamped promoter coordinate interval. Start is at least 1
// and End at most the sequence length. Coordinates are 1-based inclusive.
type Window struct {
	SeqID  string
	Start  int
	End    int
	Strand seq.Strand
}

// Key returns the region key used for provenance lookup.
func (w Window) Key() string {
	return fmt.Sprintf("%s:%d-%d", w.SeqID, w.Start, w.End)
}

// StrandSymbol returns the single byte representation of a strand,
// '-' for minus and '+' otherwise.
func StrandSymbol(s seq.Strand) byte {
	if s == seq.Minus {
		return '-'
	}
	return '+'
}

// LengthIndex maps sequence ids to their total lengths. It is used only
// for boundary clamping.
type LengthIndex map[string]int

// ReadLengthIndex builds a LengthIndex from a FASTA stream.
func ReadLengthIndex(r io.Reader) (LengthIndex, error) {
	idx := make(LengthIndex)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		s := sc.Seq()
		idx[s.Name()] = s.Len()
	}
	return idx, sc.Error()
}

type spanKey struct {
	strand seq.Strand
	mode   Mode
}

type spanFunc func(start, end, window int, include bool) (int, int)

// rawSpan is the raw coordinate rule set, dispatched on the
// (strand, mode) pair. Downstream and Upstream swap their formulas
// between strands because the biological direction flips; Both is
// strand independent and always contains the feature span. The table
// must not be collapsed into a single formula.
var rawSpan = map[spanKey]spanFunc{
	{seq.Plus, Downstream}: func(fs, fe, w int, inc bool) (int, int) {
		if inc {
			return fs - w - 1, fe
		}
		return fs - w - 1, fs - 1
	},
	{seq.Plus, Upstream}: func(fs, fe, w int, inc bool) (int, int) {
		if inc {
			return fs, fe + 1 + w
		}
		return fe + 1, fe + 1 + w
	},
	{seq.Minus, Downstream}: func(fs, fe, w int, inc bool) (int, int) {
		if inc {
			return fs, fe + 1 + w
		}
		return fe + 1, fe + 1 + w
	},
	{seq.Minus, Upstream}: func(fs, fe, w int, inc bool) (int, int) {
		if inc {
			return fs - w - 1, fe
		}
		return fs - w - 1, fs - 1
	},
	{seq.Plus, Both}: func(fs, fe, w int, _ bool) (int, int) {
		return fs - w - 1, fe + 1 + w
	},
	{seq.Minus, Both}: func(fs, fe, w int, _ bool) (int, int) {
		return fs - w - 1, fe + 1 + w
	},
}

// Calculator computes windows for features under a fixed mode, window
// size and length index. Window size must be positive; this is
// validated by the caller at configuration time.
type Calculator struct {
	Mode           Mode
	Window         int
	IncludeFeature bool
	Lengths        LengthIndex
}

// Calculate returns the clamped window for f, or an error describing
// why the feature was rejected. Rejections are expected filtering
// outcomes, not failures: ErrUnknownSequence when f's sequence id is
// absent from the length index, ErrShortRegion when the clamped
// interval is shorter than MinLength. Features without a minus strand
// are treated as plus strand.
func (c Calculator) Calculate(f Feature) (Window, error) {
	length, ok := c.Lengths[f.SeqID]
	if !ok {
		return Window{}, ErrUnknownSequence
	}
	strand := f.Strand
	if strand != seq.Minus {
		strand = seq.Plus
	}
	span, ok := rawSpan[spanKey{strand, c.Mode}]
	if !ok {
		return Window{}, fmt.Errorf("region: invalid mode %v", c.Mode)
	}
	start, end := span(f.Start, f.End, c.Window, c.IncludeFeature)
	if start <= 0 {
		start = 1
	}
	if end >= length {
		end = length
	}
	if end-start < MinLength {
		return Window{}, ErrShortRegion
	}
	return Window{SeqID: f.SeqID, Start: start, End: end, Strand: strand}, nil
}
