// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package search wraps invocation of the external pairwise alignment
// search tool.
package search

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// OutFormat is the tabular output contract expected by the hit filter:
// the twelve standard columns followed by query and subject lengths.
const OutFormat = "6 std qlen slen"

// BLASTN describes a blastn invocation searching query sequences
// against a subject sequence file.
type BLASTN struct {
	// Cmd is the executable name. If empty, "blastn" is used.
	Cmd string

	Query   string
	Subject string

	// EValue is the expectation value cutoff passed to the tool.
	// Zero means the tool default.
	EValue float64
}

// BuildCommand constructs the search command, resolving the executable
// on the current PATH. An unresolvable executable is an environment
// error and should abort the run before any processing begins.
func (b BLASTN) BuildCommand() (*exec.Cmd, error) {
	name := b.Cmd
	if name == "" {
		name = "blastn"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}
	args := []string{
		"-query", b.Query,
		"-subject", b.Subject,
		"-outfmt", OutFormat,
	}
	if b.EValue > 0 {
		args = append(args, "-evalue", fmt.Sprint(b.EValue))
	}
	return exec.Command(path, args...), nil
}

// Hits runs the search to completion and returns its tabular output.
// The call blocks until the tool exits; a non-zero exit status is an
// error.
func (b BLASTN) Hits() (*bytes.Buffer, error) {
	cmd, err := b.BuildCommand()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	cmd.Stdout = buf
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("search: blastn failed: %v", err)
	}
	return buf, nil
}
