package align

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/gsw/graph"
	"github.com/grailbio/gsw/nuc"
	"github.com/grailbio/gsw/simdvec"
)

// ReadCapacity is the number of reads aligned per lane group.
const ReadCapacity = simdvec.Lanes

// defaultTolFactor sets the default correctness window to readLen/4.
const defaultTolFactor = 4

// pendingTarget tracks one outstanding target-position capture for the
// current group.  The walker keeps these sorted by ascending position so
// the kernel advances a single cursor per node.
type pendingTarget struct {
	lane  int
	pos   int
	score int
}

// Aligner aligns batches of fixed-length reads against a graph range.  E
// selects the lane width; see New and NewWord.  An Aligner owns all of its
// working buffers and must not be shared between goroutines; run one
// Aligner per goroutine instead.
type Aligner[E simdvec.Elem] struct {
	readLen int
	ete     bool
	prof    ScoreProfile
	bias    E

	// Splatted scoring constants.  mismatchVec and ambigVec hold negated
	// penalties so the match contribution is a single blended add.
	matchVec, mismatchVec, ambigVec simdvec.Vec[E]
	gapOpenExtRead, gapExtRead      simdvec.Vec[E]
	gapOpenExtRef, gapExtRef        simdvec.Vec[E]

	group readGroup[E]

	// Working DP columns, readLen+1 rows each.  Only the current column is
	// held; s doubles as the node's outgoing score column.
	s, dc, ic []simdvec.Vec[E]
	sd        simdvec.Vec[E]

	// Tracker state for the group in flight.
	maxScore, subScore    simdvec.Vec[E]
	maxPos, subPos        [simdvec.Lanes]int
	maxCount, subCount    [simdvec.Lanes]int
	corFlag               [simdvec.Lanes]uint8
	targetLow, targetHigh [simdvec.Lanes]int
	targets               []pendingTarget

	store     seedStore[E]
	work      *seed[E]
	predSeeds []*seed[E]

	stats Stats
}

// New returns a local-alignment engine with 8-bit lanes for reads of the
// given length.  It fails when readLen times the match score cannot be
// represented in an 8-bit lane.
func New(readLen int, prof ScoreProfile) (*Aligner[int8], error) {
	return newAligner[int8](readLen, prof, false)
}

// NewETE returns an end-to-end engine with 8-bit lanes.
func NewETE(readLen int, prof ScoreProfile) (*Aligner[int8], error) {
	return newAligner[int8](readLen, prof, true)
}

// NewWord returns a local-alignment engine with 16-bit lanes, for callers
// that need more dynamic range than 8-bit lanes offer.
func NewWord(readLen int, prof ScoreProfile) (*Aligner[int16], error) {
	return newAligner[int16](readLen, prof, false)
}

// NewWordETE returns an end-to-end engine with 16-bit lanes.
func NewWordETE(readLen int, prof ScoreProfile) (*Aligner[int16], error) {
	return newAligner[int16](readLen, prof, true)
}

func newAligner[E simdvec.Elem](readLen int, prof ScoreProfile, ete bool) (*Aligner[E], error) {
	if readLen <= 0 {
		return nil, errors.E("align: read length must be positive")
	}
	a := &Aligner[E]{
		readLen: readLen,
		ete:     ete,
		group:   newReadGroup[E](readLen),
		s:       make([]simdvec.Vec[E], readLen+1),
		dc:      make([]simdvec.Vec[E], readLen+1),
		ic:      make([]simdvec.Vec[E], readLen+1),
		targets: make([]pendingTarget, 0, simdvec.Lanes),
		work:    newSeed[E](readLen),
	}
	a.store.init()
	if prof.Tol == 0 {
		prof.Tol = readLen / defaultTolFactor
	}
	if err := a.SetScores(prof); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadLen returns the read length the engine was built for.
func (a *Aligner[E]) ReadLen() int { return a.readLen }

// EndToEnd reports the engine's alignment mode.
func (a *Aligner[E]) EndToEnd() bool { return a.ete }

// Tolerance returns the current correctness window half-width.
func (a *Aligner[E]) Tolerance() int { return a.prof.Tol }

// SetTolerance changes the correctness window half-width.
func (a *Aligner[E]) SetTolerance(tol int) { a.prof.Tol = tol }

// Stats returns counters accumulated since construction.
func (a *Aligner[E]) Stats() Stats { return a.stats }

// SetScores installs a new scoring scheme.  The profile's EndToEnd bit is
// overridden by the engine's own mode.  It fails when the lane type cannot
// represent readLen times the match score.
func (a *Aligner[E]) SetScores(prof ScoreProfile) error {
	prof.EndToEnd = a.ete
	bias, err := computeBias[E](a.readLen, prof)
	if err != nil {
		return err
	}
	a.prof = prof
	a.bias = bias
	a.matchVec = simdvec.Splat(simdvec.Clamp[E](prof.Match))
	a.mismatchVec = simdvec.Splat(simdvec.Clamp[E](-prof.Mismatch))
	a.ambigVec = simdvec.Splat(simdvec.Clamp[E](-prof.Ambig))
	a.gapOpenExtRead = simdvec.Splat(simdvec.Clamp[E](prof.ReadGapOpen + prof.ReadGapExt))
	a.gapExtRead = simdvec.Splat(simdvec.Clamp[E](prof.ReadGapExt))
	a.gapOpenExtRef = simdvec.Splat(simdvec.Clamp[E](prof.RefGapOpen + prof.RefGapExt))
	a.gapExtRef = simdvec.Splat(simdvec.Clamp[E](prof.RefGapExt))
	// Row 0 of the reference-gap column is pinned at the bias; fillNode
	// rewrites every other row per column.
	a.dc[0] = simdvec.Splat(bias)
	return nil
}

var saturationWarnOnce sync.Once

// computeBias picks the score shift for the lane type.  Local mode starts
// every cell at the lane minimum, which doubles as the Smith-Waterman zero
// floor.  End-to-end mode shifts scores up so the best attainable score
// (readLen * match) lands exactly on the lane maximum.
func computeBias[E simdvec.Elem](readLen int, prof ScoreProfile) (E, error) {
	if readLen*prof.Match > simdvec.RangeSize[E]() {
		return 0, errors.E(fmt.Sprintf(
			"align: insufficient lane width for read length %d with match score %d",
			readLen, prof.Match))
	}
	if !prof.EndToEnd {
		return simdvec.MinVal[E](), nil
	}
	b := int(simdvec.MaxVal[E]()) - readLen*prof.Match
	if prof.ReadGapOpen+prof.ReadGapExt*(readLen-1) > b || readLen*prof.Mismatch > b {
		saturationWarnOnce.Do(func() {
			log.Error.Printf(
				"align: possible score saturation in end-to-end mode: lane max %d, bias %d",
				int(simdvec.MaxVal[E]()), b)
		})
	}
	return simdvec.Clamp[E](b), nil
}

// Align aligns reads against nodes and returns a fresh Results.  targets
// supplies one 1-based target position per read (0 means none) and may be
// nil.
func (a *Aligner[E]) Align(reads []string, targets []int, nodes []*graph.Node) (*Results, error) {
	out := &Results{}
	if err := a.AlignInto(reads, targets, nodes, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AlignInto is Align writing into a caller-owned Results, reusing its
// buffers.  nodes must be in topological order with every predecessor of a
// non-initial node inside the range; the first node of the range is seeded
// fresh regardless of its predecessors.
func (a *Aligner[E]) AlignInto(reads []string, targets []int, nodes []*graph.Node, out *Results) error {
	if targets != nil && len(targets) != len(reads) {
		return errors.E(fmt.Sprintf("align: %d targets for %d reads", len(targets), len(reads)))
	}
	if len(reads) == 0 {
		out.Resize(0)
		out.Profile = a.prof
		return nil
	}
	if len(nodes) == 0 {
		return errors.E("align: empty graph range")
	}
	for i, rd := range reads {
		if len(rd) != a.readLen {
			return errors.E(fmt.Sprintf("align: read %d has length %d, engine expects %d",
				i, len(rd), a.readLen))
		}
	}

	numGroups := 1 + (len(reads)-1)/ReadCapacity
	out.Resize(numGroups * ReadCapacity)
	for i := range out.Correct {
		out.Correct[i] = 0
	}
	for i := range out.TargetScore {
		out.TargetScore[i] = TargetScoreUndefined
	}

	for g := 0; g < numGroups; g++ {
		beg := g * ReadCapacity
		end := min(beg+ReadCapacity, len(reads))
		var groupTargets []int
		if targets != nil {
			groupTargets = targets[beg:end]
		}
		if err := a.alignGroup(reads[beg:end], groupTargets, nodes, out, beg); err != nil {
			return err
		}
	}

	out.Resize(len(reads))
	out.Profile = a.prof
	return nil
}

func (a *Aligner[E]) alignGroup(reads []string, targets []int, nodes []*graph.Node, out *Results, beg int) error {
	a.group.load(reads)
	a.store.flush()
	a.stats.Groups++

	minVec := simdvec.Splat(simdvec.MinVal[E]())
	a.maxScore = minVec
	a.subScore = minVec
	for i := 0; i < simdvec.Lanes; i++ {
		a.maxPos[i], a.subPos[i] = 0, 0
		a.maxCount[i], a.subCount[i] = 0, 0
		a.corFlag[i] = 0
		// An empty window: no position can satisfy low <= p <= high.
		a.targetLow[i], a.targetHigh[i] = 1, 0
	}
	a.targets = a.targets[:0]
	for j := range reads {
		t := 0
		if targets != nil {
			t = targets[j]
		}
		if t != 0 {
			a.targetLow[j] = t - a.prof.Tol
			a.targetHigh[j] = t + a.prof.Tol
		}
		a.targets = append(a.targets, pendingTarget{lane: j, pos: t, score: math.MinInt32})
	}
	sort.Slice(a.targets, func(i, j int) bool { return a.targets[i].pos < a.targets[j].pos })

	// First node of the range always starts from a fresh seed.
	a.initSeed(a.work)
	nxt := a.store.take(a.readLen)
	a.fillNode(nodes[0], a.work, nxt)
	a.store.insert(nodes[0].ID, nxt)
	for _, n := range nodes[1:] {
		if err := a.mergeSeed(n.Preds, a.work); err != nil {
			return err
		}
		if n.Pinched {
			a.store.flush()
			a.stats.SeedFlushes++
		}
		nxt := a.store.take(a.readLen)
		a.fillNode(n, a.work, nxt)
		a.store.insert(n.ID, nxt)
	}

	for i := range reads {
		out.MaxScore[beg+i] = int(a.maxScore[i]) - int(a.bias)
		out.MaxPos[beg+i] = a.maxPos[i]
		out.MaxCount[beg+i] = a.maxCount[i]
		out.SubScore[beg+i] = int(a.subScore[i]) - int(a.bias)
		out.SubPos[beg+i] = a.subPos[i]
		out.SubCount[beg+i] = a.subCount[i]
		out.Correct[beg+i] = a.corFlag[i]
	}
	for _, t := range a.targets {
		if t.pos == 0 || t.score == math.MinInt32 {
			out.TargetScore[beg+t.lane] = TargetScoreUndefined
			continue
		}
		out.TargetScore[beg+t.lane] = t.score - int(a.bias)
	}
	return nil
}

// initSeed resets a seed to the pre-alignment boundary condition.  In
// end-to-end mode row i additionally pays for gapping through i read bases
// before any reference base is consumed.
func (a *Aligner[E]) initSeed(s *seed[E]) {
	biasVec := simdvec.Splat(a.bias)
	for i := range s.scol {
		s.scol[i] = biasVec
	}
	if a.ete {
		for i := 0; i < a.readLen; i++ {
			v := int(a.bias) - a.prof.ReadGapOpen - i*a.prof.ReadGapExt
			s.scol[i+1] = simdvec.Splat(simdvec.Clamp[E](v))
		}
	}
	copy(s.icol, s.scol)
}

// mergeSeed combines the seeds of all predecessors into dst, row-wise
// lane-max.  A predecessor missing from the store means the caller's node
// range is not topologically ordered.
func (a *Aligner[E]) mergeSeed(preds []uint64, dst *seed[E]) error {
	if len(preds) == 0 {
		a.initSeed(dst)
		return nil
	}
	a.predSeeds = a.predSeeds[:0]
	for _, id := range preds {
		s, ok := a.store.get(id)
		if !ok {
			return errors.E(fmt.Sprintf("align: invalid node ordering: predecessor %d not yet filled", id))
		}
		a.predSeeds = append(a.predSeeds, s)
	}
	biasVec := simdvec.Splat(a.bias)
	dst.scol[0] = biasVec
	dst.icol[0] = biasVec
	for i := 1; i <= a.readLen; i++ {
		sv, iv := biasVec, biasVec
		for _, s := range a.predSeeds {
			sv = simdvec.Max(sv, s.scol[i])
			iv = simdvec.Max(iv, s.icol[i])
		}
		dst.scol[i] = sv
		dst.icol[i] = iv
	}
	return nil
}

// fillNode sweeps the DP matrix across one node's sequence, updating the
// tracker and the pending target captures, and leaves the node's outgoing
// seed in nxt.  Empty nodes are deletion edges: the seed passes through.
func (a *Aligner[E]) fillNode(n *graph.Node, s, nxt *seed[E]) {
	a.stats.Nodes++
	if n.Len() == 0 {
		nxt.copyFrom(s)
		return
	}

	seq := n.Seq
	startPos := n.EndPos - n.Len() + 1
	csp := 0
	for csp < len(a.targets) && a.targets[csp].pos < startPos {
		csp++
	}

	copy(a.s, s.scol)
	copy(a.ic, s.icol)
	biasVec := simdvec.Splat(a.bias)

	currPos := startPos
	for c := 0; c < len(seq); c++ {
		a.sd = biasVec
		ref := seq[c]
		for r := 1; r <= a.readLen; r++ {
			a.fillCell(&a.group.vecs[r-1], ref, r, currPos)
		}
		if a.ete {
			a.commitCell(a.readLen, currPos)
		}
		for csp < len(a.targets) && a.targets[csp].pos == currPos {
			t := &a.targets[csp]
			lo := 1
			if a.ete {
				lo = a.readLen
			}
			for q := lo; q <= a.readLen; q++ {
				if v := int(a.s[q][t.lane]); v > t.score {
					t.score = v
				}
			}
			csp++
		}
		currPos++
	}
	a.stats.Columns += len(seq)
	a.stats.Cells += len(seq) * a.readLen

	copy(nxt.scol, a.s)
	copy(nxt.icol, a.ic)
}

// fillCell computes one cell of the current column.  a.sd holds the
// upper-left neighbour (previous column, previous row) on entry and is
// advanced for the next row before s[row] is overwritten.
func (a *Aligner[E]) fillCell(read *simdvec.Vec[E], ref nuc.Base, row, pos int) {
	a.dc[row] = simdvec.Max(
		simdvec.SubSat(a.dc[row-1], a.gapExtRef),
		simdvec.SubSat(a.s[row-1], a.gapOpenExtRef))
	a.ic[row] = simdvec.Max(
		simdvec.SubSat(a.ic[row], a.gapExtRead),
		simdvec.SubSat(a.s[row], a.gapOpenExtRead))

	var sr simdvec.Vec[E]
	if ref != nuc.N {
		sr = simdvec.AddSat(a.sd, simdvec.Blend(
			simdvec.EqScalar(*read, E(nuc.N)),
			a.ambigVec,
			simdvec.Blend(simdvec.EqScalar(*read, E(ref)), a.matchVec, a.mismatchVec)))
	} else {
		sr = simdvec.AddSat(a.sd, a.ambigVec)
	}

	a.sd = a.s[row]
	a.s[row] = simdvec.Max(a.ic[row], simdvec.Max(a.dc[row], sr))
	if !a.ete {
		a.commitCell(row, pos)
	}
}
