// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package annot resolves feature identifiers against a tab-separated
// nine column genome annotation stream with ;-separated key=value
// attributes.
package annot

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/seq"
)

// FieldCount is the number of tab-separated fields in an annotation record.
const FieldCount = 9

// Feature is one genomic feature drawn from the annotation source.
type Feature struct {
	SeqID  string
	Source string
	Type   string
	Start  int
	End    int
	Score  string
	Strand seq.Strand
	Frame  string

	// ID is the value of the ID attribute.
	ID string
}

func parseStrand(s string) seq.Strand {
	switch s {
	case "+":
		return seq.Plus
	case "-":
		return seq.Minus
	}
	return seq.None
}

// attribute returns the value of the named key in a ;-separated
// key=value attribute list, or "" if the key is absent.
func attribute(attrs, key string) string {
	for _, kv := range strings.Split(attrs, ";") {
		kv = strings.TrimSpace(kv)
		i := strings.Index(kv, "=")
		if i < 0 {
			continue
		}
		if kv[:i] == key {
			return kv[i+1:]
		}
	}
	return ""
}

// Resolve reads annotation records from r and returns the features whose
// ID attribute is in wanted, keyed by that id. Lines containing '#' are
// comments and are skipped entirely. Records that do not split into
// exactly FieldCount fields, or whose coordinates do not parse, are
// counted as malformed and skipped. If the same id occurs more than
// once, the first record is retained. A wanted id with no matching
// feature is simply absent from the result.
func Resolve(r io.Reader, wanted map[string]bool) (map[string]Feature, int, error) {
	features := make(map[string]Feature)
	var malformed int

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<22)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.Contains(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != FieldCount {
			malformed++
			continue
		}
		id := attribute(fields[8], "ID")
		if id == "" || !wanted[id] {
			continue
		}
		if _, ok := features[id]; ok {
			continue
		}
		start, err := strconv.Atoi(fields[3])
		if err != nil {
			malformed++
			continue
		}
		end, err := strconv.Atoi(fields[4])
		if err != nil {
			malformed++
			continue
		}
		features[id] = Feature{
			SeqID:  fields[0],
			Source: fields[1],
			Type:   fields[2],
			Start:  start,
			End:    end,
			Score:  fields[5],
			Strand: parseStrand(fields[6]),
			Frame:  fields[7],
			ID:     id,
		}
	}
	if err := sc.Err(); err != nil {
		return nil, malformed, err
	}
	return features, malformed, nil
}
