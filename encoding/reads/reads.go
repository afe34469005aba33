// Package reads loads read batches for alignment.  Input is either FASTA
// or one read per line; lowercase bases are capitalized and anything that
// is not ACGTN becomes N, matching the normalization the aligner applies.
// Gzip input is detected by magic bytes so ".gz" suffixes are optional.
package reads

import (
	"bufio"
	"io"
	"os"

	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Batch is a set of equal-length reads.  Names holds FASTA record names
// and is nil for line-oriented input.
type Batch struct {
	Names []string
	Seqs  []string
	// ReadLen is the shared read length; zero for an empty batch.
	ReadLen int
}

// cleanASCIIReadTable capitalizes acgtn and maps every other character to
// 'N'.
var cleanASCIIReadTable = [...]byte{
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'A', 'N', 'C', 'N', 'N', 'N', 'G', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'T', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'A', 'N', 'C', 'N', 'N', 'N', 'G', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'T', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N',
	'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N', 'N'}

// cleanRead copies line into a fresh buffer, normalizing as it goes, and
// returns it as a string without another copy.
func cleanRead(line []byte) string {
	buf := simd.MakeUnsafe(len(line))
	for i, c := range line {
		buf[i] = cleanASCIIReadTable[c]
	}
	return gunsafe.BytesToString(buf)
}

// Open loads a batch from a file, transparently decompressing gzip.
func Open(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, errors.Wrap(err, "reads: open")
	}
	defer f.Close() // nolint: errcheck
	b, err := Read(f)
	if err != nil {
		return Batch{}, errors.Wrapf(err, "reads: %s", path)
	}
	return b, nil
}

// Read loads a batch from r.
func Read(r io.Reader) (Batch, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return Batch{}, errors.Wrap(err, "gzip")
		}
		defer gz.Close() // nolint: errcheck
		br = bufio.NewReader(gz)
	}
	if first, err := br.Peek(1); err == nil && first[0] == '>' {
		return readFASTA(br)
	}
	return readLines(br)
}

func readLines(br *bufio.Reader) (Batch, error) {
	var b Batch
	scanner := bufio.NewScanner(br)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		b.Seqs = append(b.Seqs, cleanRead(line))
	}
	if err := scanner.Err(); err != nil {
		return Batch{}, errors.Wrap(err, "couldn't read batch")
	}
	return b, validate(&b)
}

func readFASTA(br *bufio.Reader) (Batch, error) {
	var b Batch
	var name string
	var seq []byte
	flush := func() error {
		if name == "" && seq == nil {
			return nil
		}
		if len(seq) == 0 {
			return errors.Errorf("empty FASTA record %q", name)
		}
		b.Names = append(b.Names, name)
		b.Seqs = append(b.Seqs, cleanRead(seq))
		seq = seq[:0]
		return nil
	}
	scanner := bufio.NewScanner(br)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return Batch{}, err
			}
			fields := string(line[1:])
			for i := 0; i < len(fields); i++ {
				if fields[i] == ' ' || fields[i] == '\t' {
					fields = fields[:i]
					break
				}
			}
			name = fields
			continue
		}
		if name == "" {
			return Batch{}, errors.Errorf("malformed FASTA: sequence before first header")
		}
		seq = append(seq, line...)
	}
	if err := scanner.Err(); err != nil {
		return Batch{}, errors.Wrap(err, "couldn't read FASTA batch")
	}
	if err := flush(); err != nil {
		return Batch{}, err
	}
	return b, validate(&b)
}

func validate(b *Batch) error {
	if len(b.Seqs) == 0 {
		return nil
	}
	b.ReadLen = len(b.Seqs[0])
	for i, s := range b.Seqs {
		if len(s) != b.ReadLen {
			return errors.Errorf("read %d has length %d, batch read length is %d",
				i, len(s), b.ReadLen)
		}
	}
	return nil
}
