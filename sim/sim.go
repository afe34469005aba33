// Package sim draws reads from random paths of a sequence graph and
// corrupts them with a configurable error model.  The emitted truth
// position feeds the aligner's target-position bookkeeping, which is how
// benchmark correctness rates are scored.
package sim

import (
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gsw/graph"
	"github.com/grailbio/gsw/nuc"
)

// Profile controls read generation.
type Profile struct {
	// Len is the emitted read length.
	Len int
	// Mut and Indel are error amounts.  With Rand set they are per-base
	// rates; otherwise they are absolute counts per read.
	Mut   float64
	Indel float64
	Rand  bool
}

// Read is one simulated read.
type Read struct {
	Seq string
	// EndPos is the 1-based reference coordinate of the read's last base
	// before errors were applied; it is directly usable as the aligner's
	// target position.
	EndPos int
	// SubErrs and IndelErrs count the introduced errors.
	SubErrs   int
	IndelErrs int
}

// maxAttempts bounds the rejection-sampling loop per emitted read.
const maxAttempts = 1000

// Simulator generates reads from a fixed graph.  Not safe for concurrent
// use; it owns its rand.Rand.
type Simulator struct {
	nodes []*graph.Node
	byID  map[uint64]*graph.Node
	succs map[uint64][]uint64
	// cumLen[i] is the total sequence length of nodes[0..i], for picking a
	// start node weighted by length.
	cumLen []int
	prof   Profile
	rng    *rand.Rand
}

// New builds a simulator over the given topological node range.
func New(nodes []*graph.Node, prof Profile, rng *rand.Rand) (*Simulator, error) {
	if prof.Len <= 0 {
		return nil, errors.E("sim: read length must be positive")
	}
	if !prof.Rand && int(prof.Mut+0.5)+int(prof.Indel+0.5) >= prof.Len {
		return nil, errors.E("sim: more error sites than read bases")
	}
	s := &Simulator{
		nodes: nodes,
		byID:  make(map[uint64]*graph.Node, len(nodes)),
		succs: make(map[uint64][]uint64),
		prof:  prof,
		rng:   rng,
	}
	total := 0
	for _, n := range nodes {
		s.byID[n.ID] = n
		total += n.Len()
		s.cumLen = append(s.cumLen, total)
		for _, p := range n.Preds {
			s.succs[p] = append(s.succs[p], n.ID)
		}
	}
	if total == 0 {
		return nil, errors.E("sim: graph range has no sequence")
	}
	return s, nil
}

// Next emits one read, or ok=false if no acceptable read was found within
// the attempt budget (e.g. the graph is shorter than the read length).
func (s *Simulator) Next() (r Read, ok bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if r, ok = s.tryRead(); ok {
			return r, true
		}
	}
	return Read{}, false
}

func (s *Simulator) tryRead() (Read, bool) {
	// Start node weighted by sequence length, then a uniform offset in it.
	w := s.rng.Intn(s.cumLen[len(s.cumLen)-1])
	idx := 0
	for s.cumLen[idx] <= w {
		idx++
	}
	n := s.nodes[idx]
	off := s.rng.Intn(n.Len())

	src := make([]nuc.Base, 0, s.prof.Len)
	endPos := 0
	for {
		take := s.prof.Len - len(src)
		if take > n.Len()-off {
			take = n.Len() - off
		}
		src = append(src, n.Seq[off:off+take]...)
		endPos = n.EndPos - n.Len() + off + take
		if len(src) == s.prof.Len {
			break
		}
		next := s.succs[n.ID]
		if len(next) == 0 {
			return Read{}, false // ran off the end of the graph
		}
		n = s.byID[next[s.rng.Intn(len(next))]]
		off = 0
	}

	nCount := 0
	for _, b := range src {
		if b == nuc.N {
			nCount++
		}
	}
	if nCount >= s.prof.Len/2 {
		return Read{}, false
	}

	seq, subs, indels := s.mutate(src)
	if len(seq) < s.prof.Len {
		return Read{}, false
	}
	return Read{
		Seq:       nuc.BasesToString(seq[:s.prof.Len]),
		EndPos:    endPos,
		SubErrs:   subs,
		IndelErrs: indels,
	}, true
}

// mutate applies the error model.  The result may be shorter than Len when
// deletions outnumber insertions; the caller rejects those.
func (s *Simulator) mutate(src []nuc.Base) (out []nuc.Base, subs, indels int) {
	out = make([]nuc.Base, 0, len(src)+4)
	if s.prof.Rand {
		for _, b := range src {
			switch {
			case s.rng.Float64() < s.prof.Mut:
				out = append(out, s.substitute(b))
				subs++
			case s.rng.Float64() < s.prof.Indel/2:
				out = append(out, nuc.RandBase(s.rng), b) // insertion
				indels++
			case s.rng.Float64() < s.prof.Indel/2:
				indels++ // deletion
			default:
				out = append(out, b)
			}
		}
		return out, subs, indels
	}

	// Fixed-count mode: distinct error sites, substitutions placed first.
	subs = int(s.prof.Mut + 0.5)
	indels = int(s.prof.Indel + 0.5)
	sites := map[int]byte{}
	for len(sites) < subs {
		sites[s.rng.Intn(len(src))] = 's'
	}
	for placed := 0; placed < indels; {
		loc := s.rng.Intn(len(src))
		if _, taken := sites[loc]; taken {
			continue
		}
		if s.rng.Intn(2) == 0 {
			sites[loc] = 'i'
		} else {
			sites[loc] = 'd'
		}
		placed++
	}
	for i, b := range src {
		switch sites[i] {
		case 's':
			out = append(out, s.substitute(b))
		case 'i':
			out = append(out, nuc.RandBase(s.rng), b)
		case 'd':
		default:
			out = append(out, b)
		}
	}
	return out, subs, indels
}

// substitute returns a random base different from b.
func (s *Simulator) substitute(b nuc.Base) nuc.Base {
	for {
		if m := nuc.RandBase(s.rng); m != b {
			return m
		}
	}
}
