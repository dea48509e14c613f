// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blastab

import (
	"strings"
	"testing"

	"github.com/biogo/biogo/seq"
	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestParseHit(c *check.C) {
	h, err := ParseHit("Q1\tS1\t95.5\t300\t10\t2\t1\t300\t1300\t1000\t1e-50\t512.3\t300\t4000")
	c.Assert(err, check.Equals, nil)
	c.Check(h, check.DeepEquals, Hit{
		QueryID:      "Q1",
		SubjectID:    "S1",
		Identity:     95.5,
		Length:       300,
		Mismatch:     10,
		GapOpen:      2,
		QueryStart:   1,
		QueryEnd:     300,
		SubjectStart: 1300,
		SubjectEnd:   1000,
		EValue:       1e-50,
		BitScore:     512.3,
		QueryLen:     300,
		SubjectLen:   4000,
	})
	c.Check(h.Strand(), check.Equals, seq.Minus)
	start, end := h.SubjectSpan()
	c.Check(start, check.Equals, 1000)
	c.Check(end, check.Equals, 1300)
	c.Check(h.QueryCoverage(), check.Equals, 100.0)
	c.Check(h.SubjectCoverage(), check.Equals, 7.5)
}

func (s *S) TestParseHitMalformed(c *check.C) {
	for i, line := range []string{
		"Q1\tS1\t95.5",
		"Q1\tS1\t95.5\t300\t10\t2\t1\t300\t1000\t1300\t1e-50\t512.3\t300",
		"Q1\tS1\t95.5\t300\t10\t2\t1\t300\t1000\t1300\t1e-50\t512.3\t300\t4000\textra",
		"Q1\tS1\tnot-a-number\t300\t10\t2\t1\t300\t1000\t1300\t1e-50\t512.3\t300\t4000",
		"Q1\tS1\t95.5\tx\t10\t2\t1\t300\t1000\t1300\t1e-50\t512.3\t300\t4000",
	} {
		_, err := ParseHit(line)
		c.Check(err, check.NotNil, check.Commentf("Test %d", i))
	}
}

func (s *S) TestCoverageMonotonic(c *check.C) {
	prev := -1.0
	for _, length := range []int{10, 50, 100, 200, 300} {
		h := Hit{Length: length, QueryLen: 300, SubjectLen: 300}
		qc := h.QueryCoverage()
		c.Check(qc >= 0, check.Equals, true)
		c.Check(qc <= 100*float64(300)/float64(h.QueryLen), check.Equals, true)
		c.Check(qc > prev, check.Equals, true)
		prev = qc
	}
}

func hit(q, subj string, ident float64, length, qlen, slen, sstart, send int) Hit {
	return Hit{
		QueryID: q, SubjectID: subj,
		Identity: ident, Length: length,
		QueryLen: qlen, SubjectLen: slen,
		SubjectStart: sstart, SubjectEnd: send,
	}
}

func (s *S) TestFilter(c *check.C) {
	hits := []Hit{
		// Selected.
		hit("Q1", "S1", 95, 300, 300, 300, 1000, 1300),
		// Same subject, also passing: first seen wins.
		hit("Q2", "S1", 99, 300, 300, 300, 2000, 2300),
		// Fails identity and query coverage simultaneously.
		hit("Q3", "S2", 10, 30, 300, 300, 1, 30),
		// Malformed lengths.
		hit("Q4", "S3", 90, 100, 0, 300, 1, 100),
		// Minus strand selection.
		hit("Q5", "S4", 80, 240, 300, 300, 600, 400),
	}
	t := Thresholds{QueryCov: 70, SubjectCov: 5, Identity: 30}

	selected, stats := Filter(hits, t)

	c.Check(selected, check.DeepEquals, []Selected{
		{SubjectID: "S1", QueryID: "Q1", Strand: seq.Plus, Start: 1000, End: 1300},
		{SubjectID: "S4", QueryID: "Q5", Strand: seq.Minus, Start: 400, End: 600},
	})
	c.Check(stats.Total, check.Equals, 5)
	c.Check(stats.Malformed, check.Equals, 1)
	c.Check(stats.UniqueSubjects, check.Equals, 3)
	c.Check(stats.FailQueryCov, check.Equals, 1)
	c.Check(stats.FailIdentity, check.Equals, 1)
	c.Check(stats.FailSubjectCov, check.Equals, 0)

	// Means cover all well formed hits, not only selected ones.
	c.Check(stats.MeanQueryCov, check.Equals, 72.5)
	c.Check(stats.MeanIdentity, check.Equals, 71.0)

	// Idempotence: the same input yields the same output.
	again, astats := Filter(hits, t)
	c.Check(again, check.DeepEquals, selected)
	c.Check(astats, check.DeepEquals, stats)
}

func (s *S) TestFilterEmpty(c *check.C) {
	selected, stats := Filter(nil, Thresholds{QueryCov: 70, SubjectCov: 70, Identity: 30})
	c.Check(selected, check.HasLen, 0)
	c.Check(stats, check.DeepEquals, Stats{})
}

func (s *S) TestFilterReader(c *check.C) {
	in := "Q1\tS1\t95\t300\t0\t0\t1\t300\t1000\t1300\t1e-50\t500\t300\t300\n" +
		"bad line\n" +
		"\n" +
		"Q2\tS2\t20\t300\t0\t0\t1\t300\t1\t300\t1e-5\t50\t300\t300\n"
	selected, stats, err := FilterReader(strings.NewReader(in), Thresholds{QueryCov: 70, SubjectCov: 70, Identity: 30})
	c.Assert(err, check.Equals, nil)
	c.Check(selected, check.HasLen, 1)
	c.Check(selected[0].SubjectID, check.Equals, "S1")
	c.Check(stats.Total, check.Equals, 3)
	c.Check(stats.Malformed, check.Equals, 1)
	c.Check(stats.FailIdentity, check.Equals, 1)
}
