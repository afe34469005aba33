package align

import "github.com/grailbio/gsw/nuc"

// This file holds a plain scalar rendering of the same recurrence the
// vectorized kernel computes.  It exists to validate the SIMD engine on
// linear references and as a readable statement of the scoring model; it
// allocates full matrices and is far too slow for production use.

// scalarMatrix is a (readLen+1) x (refLen+1) score matrix in row-major
// order.
type scalarMatrix struct {
	nRow, nCol int
	data       []int
}

func newScalarMatrix(n, m int) scalarMatrix {
	return scalarMatrix{nRow: n, nCol: m, data: make([]int, n*m)}
}

func (m scalarMatrix) at(i, j int) int { return m.data[i*m.nCol+j] }
func (m scalarMatrix) set(i, j, v int) { m.data[i*m.nCol+j] = v }

// substScore prices aligning read base r against reference base f.
func substScore(prof ScoreProfile, r, f nuc.Base) int {
	switch {
	case r == nuc.N || f == nuc.N:
		return -prof.Ambig
	case r == f:
		return prof.Match
	default:
		return -prof.Mismatch
	}
}

// ScalarLocal computes a Smith-Waterman local alignment of read against a
// linear reference and returns the best score with the 1-based reference
// coordinate of its last cell.  Ties resolve to the later reference
// position, matching the vectorized tracker.
func ScalarLocal(read, ref []nuc.Base, prof ScoreProfile) (score, pos int) {
	nr, nc := len(read)+1, len(ref)+1
	s := newScalarMatrix(nr, nc)
	d := newScalarMatrix(nr, nc)
	ins := newScalarMatrix(nr, nc)
	const negInf = -(1 << 30)
	for i := 0; i < nr; i++ {
		d.set(i, 0, negInf)
		ins.set(i, 0, negInf)
	}
	for j := 0; j < nc; j++ {
		d.set(0, j, negInf)
		ins.set(0, j, negInf)
	}
	score, pos = 0, 0
	for j := 1; j < nc; j++ {
		for i := 1; i < nr; i++ {
			dv := max(d.at(i-1, j)-prof.RefGapExt, s.at(i-1, j)-prof.RefGapOpen-prof.RefGapExt)
			iv := max(ins.at(i, j-1)-prof.ReadGapExt, s.at(i, j-1)-prof.ReadGapOpen-prof.ReadGapExt)
			sv := s.at(i-1, j-1) + substScore(prof, read[i-1], ref[j-1])
			best := max(0, max(dv, max(iv, sv)))
			d.set(i, j, dv)
			ins.set(i, j, iv)
			s.set(i, j, best)
			if best >= score && best > 0 {
				score, pos = best, j
			}
		}
	}
	return score, pos
}

// ScalarGlobal computes the end-to-end counterpart: the whole read must be
// consumed, the reference end is free.  It returns the best last-row score
// (possibly negative) and its 1-based reference coordinate.
func ScalarGlobal(read, ref []nuc.Base, prof ScoreProfile) (score, pos int) {
	nr, nc := len(read)+1, len(ref)+1
	s := newScalarMatrix(nr, nc)
	d := newScalarMatrix(nr, nc)
	ins := newScalarMatrix(nr, nc)
	const negInf = -(1 << 30)
	for i := 1; i < nr; i++ {
		// Gapping through i read bases before any reference base.  The
		// insertion state starts from the same boundary, as the engine's
		// seed does.
		s.set(i, 0, -prof.ReadGapOpen-(i-1)*prof.ReadGapExt)
		ins.set(i, 0, s.at(i, 0))
	}
	for j := 0; j < nc; j++ {
		// Alignment may start at any reference position for free; the row-0
		// deletion state is likewise pinned at zero.
		s.set(0, j, 0)
		d.set(0, j, 0)
	}
	for j := 1; j < nc; j++ {
		for i := 1; i < nr; i++ {
			dv := max(d.at(i-1, j)-prof.RefGapExt, s.at(i-1, j)-prof.RefGapOpen-prof.RefGapExt)
			iv := max(ins.at(i, j-1)-prof.ReadGapExt, s.at(i, j-1)-prof.ReadGapOpen-prof.ReadGapExt)
			sv := s.at(i-1, j-1) + substScore(prof, read[i-1], ref[j-1])
			d.set(i, j, dv)
			ins.set(i, j, iv)
			s.set(i, j, max(dv, max(iv, sv)))
		}
	}
	score, pos = negInf, 0
	for j := 1; j < nc; j++ {
		if v := s.at(nr-1, j); v >= score {
			score, pos = v, j
		}
	}
	return score, pos
}
