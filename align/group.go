package align

import (
	"fmt"

	"github.com/grailbio/gsw/nuc"
	"github.com/grailbio/gsw/simdvec"
)

// readGroup interleaves up to simdvec.Lanes equal-length reads so that
// vector p holds base p of every read: vecs[p] lane i is read i's base at
// offset p.  Lanes beyond the loaded read count are padded with N, which
// pays the ambiguity penalty at every cell; the walker discards their
// tracker output when results are cropped.
type readGroup[E simdvec.Elem] struct {
	readLen int
	vecs    []simdvec.Vec[E]
}

func newReadGroup[E simdvec.Elem](readLen int) readGroup[E] {
	return readGroup[E]{
		readLen: readLen,
		vecs:    make([]simdvec.Vec[E], readLen),
	}
}

// load packages the given reads.  Caller guarantees the batch fits in one
// lane group and that every read has the group's read length; violations
// are bugs in the walker, not user errors.
func (g *readGroup[E]) load(reads []string) {
	if len(reads) > simdvec.Lanes {
		panic(fmt.Sprintf("align: %d reads exceed group capacity %d", len(reads), simdvec.Lanes))
	}
	for r, read := range reads {
		if len(read) != g.readLen {
			panic(fmt.Sprintf("align: read length %d in a group of read length %d", len(read), g.readLen))
		}
		for p := 0; p < g.readLen; p++ {
			g.vecs[p][r] = E(nuc.FromChar(read[p]))
		}
	}
	for r := len(reads); r < simdvec.Lanes; r++ {
		for p := 0; p < g.readLen; p++ {
			g.vecs[p][r] = E(nuc.N)
		}
	}
}
