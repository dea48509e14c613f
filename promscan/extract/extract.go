// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extract retrieves promoter window subsequences from a genome,
// either directly from an in-memory sequence store or by driving an
// external extraction tool that honours the same contract: one sequence
// per interval, reverse complemented for minus strand windows, named
// seqID:start-end(strand).
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/biogo/seq/linear"

	"promex/promscan/region"
)

// Store holds genome sequences by name.
type Store map[string]*linear.Seq

// ReadGenome reads a FASTA stream into a Store.
func ReadGenome(r io.Reader) (Store, error) {
	store := make(Store)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		store[s.Name()] = s
	}
	return store, sc.Error()
}

// Lengths returns the sequence length index of the store.
func (s Store) Lengths() map[string]int {
	lengths := make(map[string]int, len(s))
	for name, sq := range s {
		lengths[name] = sq.Len()
	}
	return lengths
}

// ID returns the extraction identifier for a window.
func ID(w region.Window) string {
	return fmt.Sprintf("%s:%d-%d(%c)", w.SeqID, w.Start, w.End, region.StrandSymbol(w.Strand))
}

// Extract returns one sequence per window, reverse complemented for
// minus strand windows. Window coordinates are 1-based inclusive.
func (s Store) Extract(windows []region.Window) ([]*linear.Seq, error) {
	var out []*linear.Seq
	for _, w := range windows {
		ref, ok := s[w.SeqID]
		if !ok {
			return nil, fmt.Errorf("extract: unknown sequence %q", w.SeqID)
		}
		if w.Start < 1 || w.End > ref.Len() || w.Start > w.End {
			return nil, fmt.Errorf("extract: %s: interval out of range", ID(w))
		}
		// Copy the letters so that reverse complementing the window
		// cannot touch the stored genome sequence.
		letters := append(alphabet.Letters(nil), ref.Seq[w.Start-1:w.End]...)
		ss := linear.NewSeq(ID(w), letters, alphabet.DNA)
		if w.Strand == seq.Minus {
			ss.RevComp()
		}
		out = append(out, ss)
	}
	return out, nil
}

// Tool invokes an external extraction command. The command is run as
//
//	cmd genome intervals
//
// where intervals is the coordinate interval file written by the
// pipeline, and must write FASTA to stdout with one record per
// interval, identified as seqID:start-end(strand).
type Tool struct {
	Cmd       string
	Genome    string
	Intervals string
}

// BuildCommand constructs the extraction command, resolving the
// executable on the current PATH.
func (t Tool) BuildCommand() (*exec.Cmd, error) {
	if t.Cmd == "" {
		return nil, errors.New("extract: no extraction command")
	}
	path, err := exec.LookPath(t.Cmd)
	if err != nil {
		return nil, err
	}
	return exec.Command(path, t.Genome, t.Intervals), nil
}

// Extract runs the external tool to completion and parses its output.
// The call blocks until the tool exits; a non-zero exit status is an
// error.
func (t Tool) Extract() ([]*linear.Seq, error) {
	cmd, err := t.BuildCommand()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	cmd.Stdout = buf
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("extract: %s failed: %v", t.Cmd, err)
	}
	return ReadSeqs(buf)
}

// ReadSeqs collects all sequences from a FASTA stream.
func ReadSeqs(r io.Reader) ([]*linear.Seq, error) {
	var out []*linear.Seq
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	for sc.Next() {
		out = append(out, sc.Seq().(*linear.Seq))
	}
	return out, sc.Error()
}
