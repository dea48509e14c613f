// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline sequences the promoter resolution stages: hit
// filtering, feature resolution and window computation. Stages run
// batchwise; each consumes the previous stage's complete output.
package pipeline

import (
	"fmt"
	"io"
	"sort"

	"promex/promscan/annot"
	"promex/promscan/blastab"
	"promex/promscan/provenance"
	"promex/promscan/region"
)

// Config fixes the behaviour of a single run.
type Config struct {
	Thresholds blastab.Thresholds

	Mode           region.Mode
	Window         int
	IncludeFeature bool

	// AlignCoords selects the coordinate source override: windows are
	// computed from the alignment coordinates of the selected hits and
	// the annotation source is not consulted. The selection is global
	// to the run, never per record.
	AlignCoords bool
}

// Result carries the outputs and bookkeeping of a run. Per-record
// rejections never abort a run; they are counted here and reported in
// the run summary.
type Result struct {
	Selected []blastab.Selected
	Stats    blastab.Stats

	Features []region.Feature
	Windows  []region.Window
	Ledger   *provenance.Ledger

	Unresolved      int
	AnnotMalformed  int
	UnknownSequence int
	ShortRegion     int
}

// Run executes the filter, resolution and region stages. annotation is
// ignored (and may be nil) when cfg.AlignCoords is set. Warnings for
// dropped records are written to warn, which may be nil.
func Run(hits, annotation io.Reader, lengths region.LengthIndex, cfg Config, warn io.Writer) (*Result, error) {
	if warn == nil {
		warn = io.Discard
	}
	res := &Result{Ledger: provenance.NewLedger()}

	var err error
	res.Selected, res.Stats, err = blastab.FilterReader(hits, cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	for _, sel := range res.Selected {
		res.Ledger.AddQuery(sel.SubjectID, sel.QueryID)
	}

	if cfg.AlignCoords {
		for _, sel := range res.Selected {
			res.Features = append(res.Features, region.Feature{
				SubjectID: sel.SubjectID,
				SeqID:     sel.SubjectID,
				Start:     sel.Start,
				End:       sel.End,
				Strand:    sel.Strand,
			})
		}
	} else {
		wanted := make(map[string]bool, len(res.Selected))
		for _, sel := range res.Selected {
			wanted[sel.SubjectID] = true
		}
		features, malformed, err := annot.Resolve(annotation, wanted)
		if err != nil {
			return nil, err
		}
		res.AnnotMalformed = malformed
		for _, sel := range res.Selected {
			f, ok := features[sel.SubjectID]
			if !ok {
				res.Unresolved++
				fmt.Fprintf(warn, "warning: no annotation feature for subject %s\n", sel.SubjectID)
				continue
			}
			res.Features = append(res.Features, region.Feature{
				SubjectID: sel.SubjectID,
				SeqID:     f.SeqID,
				Start:     f.Start,
				End:       f.End,
				Strand:    f.Strand,
			})
		}
	}

	// Deterministic downstream order regardless of input order.
	sort.Slice(res.Features, func(i, j int) bool {
		return res.Features[i].SubjectID < res.Features[j].SubjectID
	})

	calc := region.Calculator{
		Mode:           cfg.Mode,
		Window:         cfg.Window,
		IncludeFeature: cfg.IncludeFeature,
		Lengths:        lengths,
	}
	for _, f := range res.Features {
		w, err := calc.Calculate(f)
		switch err {
		case nil:
			res.Windows = append(res.Windows, w)
			res.Ledger.AddRegion(w.Key(), f.SubjectID)
		case region.ErrUnknownSequence:
			res.UnknownSequence++
			fmt.Fprintf(warn, "warning: %s: sequence %s not found in genome\n", f.SubjectID, f.SeqID)
		case region.ErrShortRegion:
			res.ShortRegion++
			fmt.Fprintf(warn, "warning: %s: region %s:%d-%d shorter than %d bp, dropped\n",
				f.SubjectID, f.SeqID, f.Start, f.End, region.MinLength)
		default:
			return nil, err
		}
	}

	return res, nil
}
