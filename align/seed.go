package align

import "github.com/grailbio/gsw/simdvec"

// seed carries the trailing DP state of a filled node to its successors:
// the last score column and the last read-gap column, each readLen+1 rows.
type seed[E simdvec.Elem] struct {
	scol []simdvec.Vec[E]
	icol []simdvec.Vec[E]
}

func newSeed[E simdvec.Elem](readLen int) *seed[E] {
	return &seed[E]{
		scol: make([]simdvec.Vec[E], readLen+1),
		icol: make([]simdvec.Vec[E], readLen+1),
	}
}

func (s *seed[E]) copyFrom(o *seed[E]) {
	copy(s.scol, o.scol)
	copy(s.icol, o.icol)
}

// seedStore maps node ID to that node's outgoing seed.  Retired seeds go on
// a free list so steady-state alignment does not allocate; a pinched-node
// flush retires every live entry at once.
type seedStore[E simdvec.Elem] struct {
	m    map[uint64]*seed[E]
	free []*seed[E]
}

func (st *seedStore[E]) init() {
	st.m = make(map[uint64]*seed[E])
}

// flush retires all live seeds.
func (st *seedStore[E]) flush() {
	for id, s := range st.m {
		st.free = append(st.free, s)
		delete(st.m, id)
	}
}

// take returns a seed buffer of the given read length, reusing a retired
// one when available.
func (st *seedStore[E]) take(readLen int) *seed[E] {
	if n := len(st.free); n > 0 {
		s := st.free[n-1]
		st.free = st.free[:n-1]
		return s
	}
	return newSeed[E](readLen)
}

func (st *seedStore[E]) insert(id uint64, s *seed[E]) {
	st.m[id] = s
}

func (st *seedStore[E]) get(id uint64) (*seed[E], bool) {
	s, ok := st.m[id]
	return s, ok
}

func (st *seedStore[E]) len() int { return len(st.m) }
