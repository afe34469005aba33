// gsw-align aligns a batch of fixed-length reads against a sequence graph
// and writes per-read scores as TSV.
//
// The graph is described as one TSV row per node, in topological order:
//
//	endpos<TAB>seq<TAB>preds
//
// where endpos is the 1-based coordinate of the node's last base, seq is
// the node sequence ("-" for a deletion edge), and preds is a
// comma-separated list of 0-based node row indices ("." for none).
//
// Example:
//
//	gsw-align -reads reads.fa -graph graph.tsv -profile M=2,MM=6,GOD=5,GED=3 -out scores.tsv
package main

import (
	"bufio"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/gsw/align"
	"github.com/grailbio/gsw/encoding/reads"
	"github.com/grailbio/gsw/graph"
	"github.com/pkg/errors"
)

var (
	readsFlag   = flag.String("reads", "", "read batch (FASTA or one read per line, optionally gzipped)")
	graphFlag   = flag.String("graph", "", "graph description TSV")
	targetsFlag = flag.String("targets", "", "optional per-read target positions, one per line (0 = none)")
	profileFlag = flag.String("profile", "M=2,MM=2,GOD=3,GED=1,GOF=3,GEF=1", "score profile in key=value form")
	eteFlag     = flag.Bool("ete", false, "end-to-end alignment instead of local")
	wordFlag    = flag.Bool("word", false, "use 16-bit score lanes")
	tolFlag     = flag.Int("tolerance", 0, "correctness window half-width (0 = readLen/4)")
	outFlag     = flag.String("out", "-", "output TSV path, - for stdout")
)

// engine abstracts over the lane-width instantiations.
type engine interface {
	Align(reads []string, targets []int, nodes []*graph.Node) (*align.Results, error)
}

func run() error {
	if *readsFlag == "" || *graphFlag == "" {
		return errors.New("-reads and -graph are required")
	}
	batch, err := reads.Open(*readsFlag)
	if err != nil {
		return err
	}
	if len(batch.Seqs) == 0 {
		return errors.Errorf("%s: no reads", *readsFlag)
	}
	g, err := loadGraph(*graphFlag)
	if err != nil {
		return err
	}
	var targets []int
	if *targetsFlag != "" {
		if targets, err = loadTargets(*targetsFlag, len(batch.Seqs)); err != nil {
			return err
		}
	}

	prof, err := align.ParseScoreProfile(*profileFlag)
	if err != nil {
		return err
	}
	prof.EndToEnd = *eteFlag
	if *tolFlag > 0 {
		prof.Tol = *tolFlag
	}

	var a engine
	switch {
	case *wordFlag && *eteFlag:
		a, err = align.NewWordETE(batch.ReadLen, prof)
	case *wordFlag:
		a, err = align.NewWord(batch.ReadLen, prof)
	case *eteFlag:
		a, err = align.NewETE(batch.ReadLen, prof)
	default:
		a, err = align.New(batch.ReadLen, prof)
	}
	if err != nil {
		return err
	}

	log.Printf("aligning %d reads of length %d against %d nodes",
		len(batch.Seqs), batch.ReadLen, g.NumNodes())
	results, err := a.Align(batch.Seqs, targets, g.Nodes())
	if err != nil {
		return err
	}

	out := os.Stdout
	if *outFlag != "-" {
		if out, err = os.Create(*outFlag); err != nil {
			return errors.Wrap(err, "create output")
		}
		defer out.Close() // nolint: errcheck
	}
	return results.WriteTSV(out, batch.Names)
}

func loadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "graph: open")
	}
	defer f.Close() // nolint: errcheck

	g := graph.New()
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			return nil, errors.Errorf("%s:%d: want 3 columns, got %d", path, lineno, len(cols))
		}
		endPos, err := strconv.Atoi(cols[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: endpos", path, lineno)
		}
		seq := cols[1]
		if seq == "-" {
			seq = ""
		}
		id := g.AddNode(endPos, seq)
		if cols[2] == "." {
			continue
		}
		for _, p := range strings.Split(cols[2], ",") {
			pred, err := strconv.ParseUint(p, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d: predecessor %q", path, lineno, p)
			}
			if err := g.AddEdge(pred, id); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, lineno)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "graph: read")
	}
	if g.NumNodes() == 0 {
		return nil, errors.Errorf("%s: empty graph", path)
	}
	return g, nil
}

func loadTargets(path string, nReads int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "targets: open")
	}
	defer f.Close() // nolint: errcheck

	var targets []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t, err := strconv.Atoi(line)
		if err != nil {
			return nil, errors.Wrapf(err, "targets: line %d", len(targets)+1)
		}
		targets = append(targets, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "targets: read")
	}
	if len(targets) != nReads {
		return nil, errors.Errorf("targets: %d entries for %d reads", len(targets), nReads)
	}
	return targets, nil
}

func main() {
	cleanup := grail.Init()
	defer cleanup()
	if err := run(); err != nil {
		log.Panic(err)
	}
}
