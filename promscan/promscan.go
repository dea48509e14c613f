// promscan identifies candidate promoter regions for a set of query
// genes. Pairwise alignment hits are filtered by coverage and identity
// thresholds, the surviving subjects are resolved to annotated genome
// features, and a strand-aware upstream, downstream or two-sided window
// is computed for each feature, clamped to the sequence bounds. The
// windows are extracted from the genome and each extracted sequence is
// decorated with its provenance: the subject feature it derives from
// and the query that selected the subject.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/store/step"

	"promex/promscan/blastab"
	"promex/promscan/extract"
	"promex/promscan/pipeline"
	"promex/promscan/provenance"
	"promex/promscan/region"
	"promex/promscan/search"
)

func main() {
	hitsName := flag.String("hits", "", "filename for tabular alignment input (14 column, -outfmt '6 std qlen slen'). If empty, blastn is run on -query against -genome.")
	queryName := flag.String("query", "", "filename for query FASTA input, used when -hits is not given.")
	blastCmd := flag.String("blastn", "blastn", "name of the blastn executable.")
	genomeName := flag.String("genome", "", "filename for genome FASTA input (required).")
	annotName := flag.String("annot", "", "filename for annotation input (required unless -aligncoords).")
	outName := flag.String("out", "", "filename for decorated FASTA output. Defaults to stdout.")
	intervalsName := flag.String("intervals", "promoters.tsv", "filename for the coordinate interval output.")
	gffName := flag.String("gff", "", "filename for an optional GFF track of accepted windows.")
	covName := flag.String("covrep", "", "filename for an optional promoter coverage report.")
	modeName := flag.String("mode", "upstream", "region mode: upstream, downstream or both.")
	window := flag.Int("window", 2000, "window size (bp).")
	include := flag.Bool("include", false, "include the feature sequence in the window.")
	alignCoords := flag.Bool("aligncoords", false, "compute windows from alignment coordinates instead of annotation coordinates.")
	minQC := flag.Float64("qcov", 70, "minimum query coverage (%).")
	minSC := flag.Float64("scov", 70, "minimum subject coverage (%).")
	minID := flag.Float64("ident", 30, "minimum identity (%).")
	extractor := flag.String("extractor", "", "external extraction command, run as 'cmd genome intervals' with FASTA on stdout. Built-in extraction if empty.")
	help := flag.Bool("help", false, "print this usage message.")

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	// Configuration errors are fatal before the pipeline starts.
	if *genomeName == "" {
		log.Fatal("missing genome file")
	}
	if *hitsName == "" && *queryName == "" {
		log.Fatal("need either -hits or -query")
	}
	if *annotName == "" && !*alignCoords {
		log.Fatal("missing annotation file (or use -aligncoords)")
	}
	if *window <= 0 {
		log.Fatalf("invalid window size: %d", *window)
	}
	if *minQC < 0 || *minSC < 0 || *minID < 0 {
		log.Fatal("thresholds must be non-negative percentages")
	}
	mode, err := region.ParseMode(*modeName)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	// Hits: a pre-computed file, or a synchronous blastn run.
	var hitsIn io.Reader
	if *hitsName != "" {
		f := mustOpen(*hitsName)
		defer f.Close()
		hitsIn = bufio.NewReader(f)
		fmt.Fprintf(os.Stderr, "reading alignment hits from %q.\n", *hitsName)
	} else {
		b := search.BLASTN{Cmd: *blastCmd, Query: *queryName, Subject: *genomeName}
		fmt.Fprintf(os.Stderr, "running %s on %q against %q.\n", *blastCmd, *queryName, *genomeName)
		buf, err := b.Hits()
		if err != nil {
			log.Fatalf("alignment search failed: %v", err)
		}
		hitsIn = buf
	}

	var annotIn io.Reader
	if !*alignCoords {
		f := mustOpen(*annotName)
		defer f.Close()
		annotIn = bufio.NewReader(f)
		fmt.Fprintf(os.Stderr, "reading annotation features from %q.\n", *annotName)
	}

	gf := mustOpen(*genomeName)
	fmt.Fprintf(os.Stderr, "reading genome sequences from %q.\n", *genomeName)
	store, err := extract.ReadGenome(bufio.NewReader(gf))
	gf.Close()
	if err != nil {
		log.Fatalf("failed to read genome: %v", err)
	}
	if len(store) == 0 {
		log.Fatalf("no sequences in %q", *genomeName)
	}
	lengths := region.LengthIndex(store.Lengths())

	cfg := pipeline.Config{
		Thresholds:     blastab.Thresholds{QueryCov: *minQC, SubjectCov: *minSC, Identity: *minID},
		Mode:           mode,
		Window:         *window,
		IncludeFeature: *include,
		AlignCoords:    *alignCoords,
	}
	res, err := pipeline.Run(hitsIn, annotIn, lengths, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	err = writeIntervals(*intervalsName, res.Windows)
	if err != nil {
		log.Fatalf("failed to write intervals: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d intervals to %q.\n", len(res.Windows), *intervalsName)

	if *gffName != "" {
		err = writeGFF(*gffName, res.Windows, res.Ledger)
		if err != nil {
			log.Fatalf("failed to write GFF track: %v", err)
		}
	}
	if *covName != "" {
		err = writeCoverage(*covName, res.Windows, lengths)
		if err != nil {
			log.Fatalf("failed to write coverage report: %v", err)
		}
	}

	// Extraction: built in, or an external collaborator consuming the
	// interval file.
	var seqs []*linear.Seq
	if *extractor == "" {
		seqs, err = store.Extract(res.Windows)
	} else {
		tool := extract.Tool{Cmd: *extractor, Genome: *genomeName, Intervals: *intervalsName}
		fmt.Fprintf(os.Stderr, "running extraction command %q.\n", *extractor)
		seqs, err = tool.Extract()
	}
	if err != nil {
		log.Fatalf("extraction failed: %v", err)
	}

	out := os.Stdout
	if *outName != "" {
		out, err = os.Create(*outName)
		if err != nil {
			log.Fatalf("could not create %q: %v", *outName, err)
		}
		defer out.Close()
	}
	buf := bufio.NewWriter(out)
	defer buf.Flush()
	w := fasta.NewWriter(buf, 60)
	for _, s := range seqs {
		s.Desc = res.Ledger.Describe(s.Name())
		_, err = w.Write(s)
		if err != nil {
			log.Fatalf("failed to write sequence %q: %v", s.Name(), err)
		}
	}

	summarise(os.Stderr, res, len(seqs))
}

func mustOpen(name string) *os.File {
	f, err := os.Open(name)
	if err != nil {
		log.Fatalf("could not open %q: %v", name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		log.Fatalf("could not stat %q: %v", name, err)
	}
	if fi.Size() == 0 {
		log.Fatalf("empty input file %q", name)
	}
	return f
}

// writeIntervals writes the coordinate interval artifact consumed by
// the extraction stage. The file is only created once the region stage
// has completed in full.
func writeIntervals(name string, windows []region.Window) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	b := bufio.NewWriter(f)
	defer b.Flush()
	for _, w := range windows {
		_, err = fmt.Fprintf(b, "%s\t%d\t%d\t%c\n", w.SeqID, w.Start, w.End, region.StrandSymbol(w.Strand))
		if err != nil {
			return err
		}
	}
	return nil
}

func writeGFF(name string, windows []region.Window, led *provenance.Ledger) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	b := bufio.NewWriter(f)
	defer b.Flush()
	w := gff.NewWriter(b, 60, true)

	ft := &gff.Feature{
		Source:  "promscan",
		Feature: "promoter",
		FeatAttributes: gff.Attributes{
			{Tag: "SubjID"},
			{Tag: "QueryID"},
		},
	}
	for _, win := range windows {
		subj, query := led.Lookup(win.Key())
		ft.SeqName = win.SeqID
		ft.FeatStart = win.Start - 1
		ft.FeatEnd = win.End
		ft.FeatStrand = win.Strand
		ft.FeatFrame = gff.NoFrame
		ft.FeatAttributes[0].Value = subj
		ft.FeatAttributes[1].Value = query
		_, err = w.Write(ft)
		if err != nil {
			return err
		}
	}
	return nil
}

// stepBool is a bool type satisfying the step.Equaler interface.
type stepBool bool

// Equal returns whether b equals e. Equal assumes the underlying type
// of e is a stepBool.
func (b stepBool) Equal(e step.Equaler) bool {
	return b == e.(stepBool)
}

// writeCoverage reports, for each sequence carrying at least one
// accepted window, the number of positions covered by windows and the
// covered fraction of the sequence.
func writeCoverage(name string, windows []region.Window, lengths region.LengthIndex) error {
	coverage := make(map[string]*step.Vector)
	for _, w := range windows {
		v, ok := coverage[w.SeqID]
		if !ok {
			var err error
			v, err = step.New(0, lengths[w.SeqID], stepBool(false))
			if err != nil {
				return err
			}
			coverage[w.SeqID] = v
		}
		v.SetRange(w.Start-1, w.End, stepBool(true))
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	tw := tabwriter.NewWriter(f, 0, 0, 1, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "sequence\tcovered\tlength\tfraction")

	names := make([]string, 0, len(coverage))
	for n := range coverage {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		var covered int
		coverage[n].Do(func(start, end int, e step.Equaler) {
			if e.(stepBool) {
				covered += end - start
			}
		})
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\n", n, covered, lengths[n], float64(covered)/float64(lengths[n]))
	}
	return nil
}

func summarise(w io.Writer, res *pipeline.Result, extracted int) {
	st := res.Stats
	fmt.Fprintf(w, "\nrun summary:\n")
	fmt.Fprintf(w, " alignment records:        %d (%d malformed, skipped)\n", st.Total, st.Malformed)
	fmt.Fprintf(w, " unique subjects:          %d\n", st.UniqueSubjects)
	fmt.Fprintf(w, " failed query coverage:    %d\n", st.FailQueryCov)
	fmt.Fprintf(w, " failed subject coverage:  %d\n", st.FailSubjectCov)
	fmt.Fprintf(w, " failed identity:          %d\n", st.FailIdentity)
	fmt.Fprintf(w, " mean qcov/scov/ident:     %.1f/%.1f/%.1f\n", st.MeanQueryCov, st.MeanSubjectCov, st.MeanIdentity)
	fmt.Fprintf(w, " selected subjects:        %d\n", len(res.Selected))
	if res.AnnotMalformed != 0 {
		fmt.Fprintf(w, " malformed annotations:    %d (skipped)\n", res.AnnotMalformed)
	}
	fmt.Fprintf(w, " unresolved subjects:      %d\n", res.Unresolved)
	fmt.Fprintf(w, " regions accepted:         %d\n", len(res.Windows))
	fmt.Fprintf(w, " regions too short:        %d\n", res.ShortRegion)
	fmt.Fprintf(w, " sequences not in genome:  %d\n", res.UnknownSequence)
	fmt.Fprintf(w, " extracted and decorated:  %d\n", extracted)
}
