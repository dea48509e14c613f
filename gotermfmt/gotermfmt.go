// gotermfmt reformats GO-term annotations from a fixed column report
// into one identifier/term pair per line for downstream tabulation.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

var (
	inf   = flag.String("in", "", "input report file name. Defaults to stdin.")
	outf  = flag.String("out", "", "output file name. Defaults to stdout.")
	idCol = flag.Int("idcol", 1, "1-based column holding the record identifier.")
	goCol = flag.Int("gocol", 2, "1-based column holding the GO term list.")
	sep   = flag.String("sep", ",", "separator between GO terms within the column.")
	help  = flag.Bool("help", false, "help prints this message.")
)

func main() {
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *idCol < 1 || *goCol < 1 {
		log.Fatal("column numbers are 1-based")
	}

	in := os.Stdin
	var err error
	if *inf != "" {
		in, err = os.Open(*inf)
		if err != nil {
			log.Fatalf("could not open %q: %v", *inf, err)
		}
		defer in.Close()
	}

	out := os.Stdout
	if *outf != "" {
		out, err = os.Create(*outf)
		if err != nil {
			log.Fatalf("could not create %q: %v", *outf, err)
		}
		defer out.Close()
	}
	b := bufio.NewWriter(out)
	defer b.Flush()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<22)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < *idCol || len(fields) < *goCol {
			continue
		}
		id := fields[*idCol-1]
		terms := fields[*goCol-1]
		if terms == "" || terms == "." || terms == "-" {
			continue
		}
		for _, term := range strings.Split(terms, *sep) {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			fmt.Fprintf(b, "%s\t%s\n", id, term)
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("failed during read: %v", err)
	}
}
