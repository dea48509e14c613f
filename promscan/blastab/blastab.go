// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blastab provides parsing and threshold filtering of tabular
// pairwise alignment hits as produced by blastn with
// -outfmt '6 std qlen slen'.
package blastab

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/biogo/biogo/seq"
)

// FieldCount is the number of tab-separated fields in a hit record.
const FieldCount = 14

// Hit is a single tabular alignment record.
type Hit struct {
	QueryID   string
	SubjectID string

	// Identity is the percent identity of the alignment in [0,100].
	Identity float64

	Length   int
	Mismatch int
	GapOpen  int

	QueryStart, QueryEnd     int
	SubjectStart, SubjectEnd int

	EValue   float64
	BitScore float64

	// QueryLen and SubjectLen are the full lengths of the aligned
	// sequences. Both must be positive for coverage to be defined.
	QueryLen   int
	SubjectLen int
}

// QueryCoverage returns the percentage of the query spanned by the
// alignment, rounded to one decimal place.
func (h Hit) QueryCoverage() float64 {
	return round1(float64(h.Length) * 100 / float64(h.QueryLen))
}

// SubjectCoverage returns the percentage of the subject spanned by the
// alignment, rounded to one decimal place.
func (h Hit) SubjectCoverage() float64 {
	return round1(float64(h.Length) * 100 / float64(h.SubjectLen))
}

// Strand returns the strand of the subject match, inferred from the
// order of the subject coordinates.
func (h Hit) Strand() seq.Strand {
	if h.SubjectStart <= h.SubjectEnd {
		return seq.Plus
	}
	return seq.Minus
}

// SubjectSpan returns the subject coordinates of the hit normalized
// so that start is not greater than end.
func (h Hit) SubjectSpan() (start, end int) {
	if h.SubjectStart <= h.SubjectEnd {
		return h.SubjectStart, h.SubjectEnd
	}
	return h.SubjectEnd, h.SubjectStart
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// ParseHit parses a single tab-separated hit line. A line that does not
// split into exactly FieldCount fields, or whose numeric fields do not
// parse, is a malformed record.
func ParseHit(line string) (Hit, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != FieldCount {
		return Hit{}, fmt.Errorf("blastab: expected %d fields, got %d", FieldCount, len(fields))
	}
	var (
		h   Hit
		err error
	)
	h.QueryID = fields[0]
	h.SubjectID = fields[1]
	h.Identity, err = strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Hit{}, fmt.Errorf("blastab: bad identity %q: %v", fields[2], err)
	}
	ints := []struct {
		dst  *int
		name string
		s    string
	}{
		{&h.Length, "length", fields[3]},
		{&h.Mismatch, "mismatch", fields[4]},
		{&h.GapOpen, "gapopen", fields[5]},
		{&h.QueryStart, "qstart", fields[6]},
		{&h.QueryEnd, "qend", fields[7]},
		{&h.SubjectStart, "sstart", fields[8]},
		{&h.SubjectEnd, "send", fields[9]},
		{&h.QueryLen, "qlen", fields[12]},
		{&h.SubjectLen, "slen", fields[13]},
	}
	for _, f := range ints {
		*f.dst, err = strconv.Atoi(f.s)
		if err != nil {
			return Hit{}, fmt.Errorf("blastab: bad %s %q: %v", f.name, f.s, err)
		}
	}
	h.EValue, err = strconv.ParseFloat(fields[10], 64)
	if err != nil {
		return Hit{}, fmt.Errorf("blastab: bad evalue %q: %v", fields[10], err)
	}
	h.BitScore, err = strconv.ParseFloat(fields[11], 64)
	if err != nil {
		return Hit{}, fmt.Errorf("blastab: bad bitscore %q: %v", fields[11], err)
	}
	return h, nil
}

// Thresholds are the minimum coverage and identity percentages a hit
// must reach to be selected. All values are non-negative percentages.
type Thresholds struct {
	QueryCov   float64
	SubjectCov float64
	Identity   float64
}

// Selected is a hit that passed all thresholds, reduced to the fields
// used by downstream stages. Coordinates are normalized, start ≤ end.
type Selected struct {
	SubjectID string
	QueryID   string
	Strand    seq.Strand
	Start     int
	End       int
}

// Stats summarises a filtering run. Mean values cover all well formed
// hits, selected or not, and are rounded to one decimal place. A hit
// failing several thresholds increments each failed counter.
type Stats struct {
	Total          int
	Malformed      int
	UniqueSubjects int

	FailQueryCov   int
	FailSubjectCov int
	FailIdentity   int

	MeanQueryCov   float64
	MeanSubjectCov float64
	MeanIdentity   float64
}

// Filter folds a sequence of hits into the set of selected hits and the
// run statistics. Selection is first-seen-wins per subject id: once a
// subject id has been selected, later passing hits for the same subject
// do not replace it. Hits with non-positive query or subject lengths
// are counted as malformed and skipped without being divided into.
func Filter(hits []Hit, t Thresholds) ([]Selected, Stats) {
	var (
		stats    Stats
		selected []Selected

		chosen   = make(map[string]bool)
		subjects = make(map[string]bool)

		sumQC, sumSC, sumID float64
		valid               int
	)
	for _, h := range hits {
		stats.Total++
		if h.QueryLen <= 0 || h.SubjectLen <= 0 {
			stats.Malformed++
			continue
		}
		valid++
		subjects[h.SubjectID] = true

		qc := h.QueryCoverage()
		sc := h.SubjectCoverage()
		sumQC += qc
		sumSC += sc
		sumID += h.Identity

		pass := true
		if qc < t.QueryCov {
			stats.FailQueryCov++
			pass = false
		}
		if sc < t.SubjectCov {
			stats.FailSubjectCov++
			pass = false
		}
		if h.Identity < t.Identity {
			stats.FailIdentity++
			pass = false
		}
		if !pass || chosen[h.SubjectID] {
			continue
		}
		chosen[h.SubjectID] = true
		start, end := h.SubjectSpan()
		selected = append(selected, Selected{
			SubjectID: h.SubjectID,
			QueryID:   h.QueryID,
			Strand:    h.Strand(),
			Start:     start,
			End:       end,
		})
	}
	stats.UniqueSubjects = len(subjects)
	if valid > 0 {
		stats.MeanQueryCov = round1(sumQC / float64(valid))
		stats.MeanSubjectCov = round1(sumSC / float64(valid))
		stats.MeanIdentity = round1(sumID / float64(valid))
	}
	return selected, stats
}

// FilterReader reads tabular hits from r and filters them with Filter.
// Lines that fail to parse are counted as malformed and skipped. Blank
// lines are ignored. The returned error reflects read failures only;
// malformed records are never an error.
func FilterReader(r io.Reader, t Thresholds) ([]Selected, Stats, error) {
	var (
		hits      []Hit
		malformed int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		h, err := ParseHit(line)
		if err != nil {
			malformed++
			continue
		}
		hits = append(hits, h)
	}
	if err := sc.Err(); err != nil {
		return nil, Stats{}, err
	}
	selected, stats := Filter(hits, t)
	stats.Total += malformed
	stats.Malformed += malformed
	return selected, stats, nil
}
