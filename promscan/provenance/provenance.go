// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package provenance maintains the traceable chain from an extracted
// promoter region back to the subject feature it was derived from and
// the query that selected that subject.
package provenance

import (
	"fmt"
	"strings"
)

// Ledger is an append-only mapping from region key to subject id and
// from subject id to originating query id.
type Ledger struct {
	regionSubject map[string]string
	subjectQuery  map[string]string
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		regionSubject: make(map[string]string),
		subjectQuery:  make(map[string]string),
	}
}

// AddQuery records the originating query for a subject id. The first
// recorded association is fixed; later calls for the same subject are
// no-ops.
func (l *Ledger) AddQuery(subjectID, queryID string) {
	if _, ok := l.subjectQuery[subjectID]; ok {
		return
	}
	l.subjectQuery[subjectID] = queryID
}

// AddRegion records the subject id a region key was derived from.
func (l *Ledger) AddRegion(key, subjectID string) {
	l.regionSubject[key] = subjectID
}

// normalize strips one trailing parenthesised group from an extracted
// sequence identifier, so that ids of the form seq:start-end(+) match
// the region key they were derived from.
func normalize(id string) string {
	if strings.HasSuffix(id, ")") {
		if i := strings.LastIndex(id, "("); i >= 0 {
			return id[:i]
		}
	}
	return id
}

// Lookup returns the subject and query ids recorded for an extracted
// sequence identifier. An unknown identifier returns empty strings;
// this is a normal outcome, not an error.
func (l *Ledger) Lookup(id string) (subjectID, queryID string) {
	subjectID, ok := l.regionSubject[normalize(id)]
	if !ok {
		return "", ""
	}
	return subjectID, l.subjectQuery[subjectID]
}

// Describe returns the description text attached to an extracted
// sequence.
func (l *Ledger) Describe(id string) string {
	subj, query := l.Lookup(id)
	return fmt.Sprintf("SubjID=%s QueryID=%s", subj, query)
}
