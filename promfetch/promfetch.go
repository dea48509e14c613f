// Copyright ©2024 The promex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// promfetch retrieves query gene sequences from NCBI via an Entrez
// search, producing FASTA input suitable for promscan's search stage.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/biogo/ncbi/entrez"
)

const tool = "promex.promfetch"

var (
	db      = flag.String("db", "nuccore", "database to search.")
	query   = flag.String("query", "", "Entrez search term for the query genes (required).")
	rettype = flag.String("rettype", "fasta", "format of the returned data.")
	retmax  = flag.Int("retmax", 500, "number of records to be retrieved per request.")
	out     = flag.String("out", "", "destination of the returned data. Defaults to stdout.")
	email   = flag.String("email", "", "email address to be sent to the server (required).")
	retries = flag.Int("retry", 5, "number of attempts to retrieve the data.")
	help    = flag.Bool("help", false, "print this usage message.")
)

func main() {
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *query == "" || *email == "" {
		flag.Usage()
		os.Exit(1)
	}

	h := entrez.History{}
	s, err := entrez.DoSearch(*db, *query, nil, &h, tool, *email)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "will retrieve %d records.\n", s.Count)

	of := os.Stdout
	if *out != "" {
		of, err = os.Create(*out)
		if err != nil {
			log.Fatalf("could not create %q: %v", *out, err)
		}
		defer of.Close()
	}

	var (
		buf   = &bytes.Buffer{}
		p     = &entrez.Parameters{RetMax: *retmax, RetType: *rettype, RetMode: "text"}
		bn, n int64
	)
	for p.RetStart = 0; p.RetStart < s.Count; p.RetStart += p.RetMax {
		fmt.Fprintf(os.Stderr, "attempting to retrieve %d records starting from %d with %d retries.\n", p.RetMax, p.RetStart, *retries)
		var t int
		for t = 0; t < *retries; t++ {
			buf.Reset()
			var (
				r   io.ReadCloser
				_bn int64
			)
			r, err = entrez.Fetch(*db, p, tool, *email, &h)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to retrieve on attempt %d... retrying.\n", t)
				continue
			}
			_bn, err = io.Copy(buf, r)
			bn += _bn
			r.Close()
			if err == nil {
				break
			}
			fmt.Fprintf(os.Stderr, "failed to buffer on attempt %d... retrying.\n", t)
		}
		if err != nil {
			log.Fatalf("exceeded retries: last error: %v", err)
		}

		_n, err := io.Copy(of, buf)
		n += _n
		if err != nil {
			log.Fatalf("failed to write output: %v", err)
		}
	}
	if bn != n {
		fmt.Fprintf(os.Stderr, "writethrough mismatch: %d != %d\n", bn, n)
	}
}
