// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/biogo/biogo/seq"
	check "gopkg.in/check.v1"

	"promex/promscan/blastab"
	"promex/promscan/extract"
	"promex/promscan/region"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// TestEndToEnd follows one hit through the whole pipeline: selection,
// annotation resolution, window computation, extraction and provenance
// decoration.
func (s *S) TestEndToEnd(c *check.C) {
	hits := "Q1\tS1\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300\n"
	annotation := "Chr1\ttest\tgene\t1000\t1300\t.\t+\t.\tID=S1\n"
	genome := ">Chr1\n" + strings.Repeat("ACGTACGTAC", 500) + "\n"

	store, err := extract.ReadGenome(strings.NewReader(genome))
	c.Assert(err, check.Equals, nil)
	lengths := region.LengthIndex(store.Lengths())
	c.Assert(lengths["Chr1"], check.Equals, 5000)

	cfg := Config{
		Thresholds: blastab.Thresholds{QueryCov: 70, SubjectCov: 70, Identity: 30},
		Mode:       region.Downstream,
		Window:     200,
	}
	var warn bytes.Buffer
	res, err := Run(strings.NewReader(hits), strings.NewReader(annotation), lengths, cfg, &warn)
	c.Assert(err, check.Equals, nil)

	c.Assert(res.Selected, check.HasLen, 1)
	c.Check(res.Selected[0].SubjectID, check.Equals, "S1")
	c.Check(res.Stats.Total, check.Equals, 1)
	c.Check(res.Unresolved, check.Equals, 0)

	c.Assert(res.Windows, check.HasLen, 1)
	c.Check(res.Windows[0], check.DeepEquals, region.Window{
		SeqID: "Chr1", Start: 799, End: 999, Strand: seq.Plus,
	})

	seqs, err := store.Extract(res.Windows)
	c.Assert(err, check.Equals, nil)
	c.Assert(seqs, check.HasLen, 1)
	c.Check(seqs[0].Name(), check.Equals, "Chr1:799-999(+)")
	c.Check(res.Ledger.Describe(seqs[0].Name()), check.Equals, "SubjID=S1 QueryID=Q1")
	c.Check(warn.String(), check.Equals, "")
}

func (s *S) TestAlignCoordsOverride(c *check.C) {
	// The subject id is the sequence id under the override; the
	// annotation source is not consulted at all.
	hits := "Q1\tChr1\t95\t300\t0\t0\t1\t300\t1300\t1000\t1e-50\t500\t300\t5000\n"
	lengths := region.LengthIndex{"Chr1": 5000}

	cfg := Config{
		Thresholds:  blastab.Thresholds{QueryCov: 70, SubjectCov: 0, Identity: 30},
		Mode:        region.Upstream,
		Window:      500,
		AlignCoords: true,
	}
	res, err := Run(strings.NewReader(hits), nil, lengths, cfg, nil)
	c.Assert(err, check.Equals, nil)

	c.Assert(res.Features, check.HasLen, 1)
	c.Check(res.Features[0], check.DeepEquals, region.Feature{
		SubjectID: "Chr1", SeqID: "Chr1", Start: 1000, End: 1300, Strand: seq.Minus,
	})
	// Minus strand upstream: featureStart−window−1 .. featureStart−1.
	c.Assert(res.Windows, check.HasLen, 1)
	c.Check(res.Windows[0], check.DeepEquals, region.Window{
		SeqID: "Chr1", Start: 499, End: 999, Strand: seq.Minus,
	})
}

func (s *S) TestRejectionBookkeeping(c *check.C) {
	hits := strings.Join([]string{
		// Resolves and yields a window.
		"Q1\tS1\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300",
		// No annotation feature.
		"Q2\tS2\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300",
		// Feature on a sequence missing from the genome.
		"Q3\tS3\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300",
		// Feature too close to the sequence start: short region.
		"Q4\tS4\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300",
	}, "\n") + "\n"
	annotation := strings.Join([]string{
		"Chr1\ttest\tgene\t1000\t1300\t.\t+\t.\tID=S1",
		"ChrN\ttest\tgene\t1000\t1300\t.\t+\t.\tID=S3",
		"Chr1\ttest\tgene\t5\t100\t.\t+\t.\tID=S4",
	}, "\n") + "\n"
	lengths := region.LengthIndex{"Chr1": 5000}

	cfg := Config{
		Thresholds: blastab.Thresholds{QueryCov: 70, SubjectCov: 70, Identity: 30},
		Mode:       region.Downstream,
		Window:     200,
	}
	var warn bytes.Buffer
	res, err := Run(strings.NewReader(hits), strings.NewReader(annotation), lengths, cfg, &warn)
	c.Assert(err, check.Equals, nil)

	c.Check(res.Selected, check.HasLen, 4)
	c.Check(res.Unresolved, check.Equals, 1)
	c.Check(res.UnknownSequence, check.Equals, 1)
	c.Check(res.ShortRegion, check.Equals, 1)
	c.Assert(res.Windows, check.HasLen, 1)
	c.Check(res.Windows[0].Key(), check.Equals, "Chr1:799-999")

	c.Check(strings.Count(warn.String(), "warning:"), check.Equals, 3)
	c.Check(warn.String(), check.Matches, `(?s).*no annotation feature for subject S2.*`)
	c.Check(warn.String(), check.Matches, `(?s).*sequence ChrN not found in genome.*`)
	c.Check(warn.String(), check.Matches, `(?s).*shorter than 10 bp, dropped.*`)
}
