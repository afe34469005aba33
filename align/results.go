package align

import (
	"io"
	"math"

	"github.com/grailbio/base/tsv"
)

// TargetScoreUndefined is stored in Results.TargetScore for reads without a
// target position, or whose target position was never reached by the graph
// range.
const TargetScoreUndefined = math.MinInt32

// Results holds per-read alignment outcomes, indexed by the read's position
// in the input batch.  Scores are post-bias: local scores are
// non-negative, end-to-end scores are centred around zero.
type Results struct {
	// MaxScore and MaxPos describe the best hit; MaxPos is the 1-based
	// reference coordinate of the hit's last cell.  MaxCount counts
	// distinct non-overlapping occurrences of MaxScore.
	MaxScore []int
	MaxPos   []int
	MaxCount []int
	// SubScore, SubPos, SubCount describe the second-best hit.
	SubScore []int
	SubPos   []int
	SubCount []int
	// Correct is 0 when neither hit matched the caller's target window, 1
	// when the best hit did, 2 when the second-best hit did.
	Correct []uint8
	// TargetScore is the best score observed at the caller's target
	// position, or TargetScoreUndefined.
	TargetScore []int
	// Profile echoes the scoring scheme used.
	Profile ScoreProfile
}

// Len returns the number of reads covered.
func (r *Results) Len() int { return len(r.MaxScore) }

// Resize adjusts every per-read array to n entries.  Growing zeroes the new
// tail; shrinking just crops.
func (r *Results) Resize(n int) {
	r.MaxScore = resizeInts(r.MaxScore, n)
	r.MaxPos = resizeInts(r.MaxPos, n)
	r.MaxCount = resizeInts(r.MaxCount, n)
	r.SubScore = resizeInts(r.SubScore, n)
	r.SubPos = resizeInts(r.SubPos, n)
	r.SubCount = resizeInts(r.SubCount, n)
	r.TargetScore = resizeInts(r.TargetScore, n)
	switch {
	case n <= len(r.Correct):
		r.Correct = r.Correct[:n]
	case n <= cap(r.Correct):
		old := len(r.Correct)
		r.Correct = r.Correct[:n]
		for i := old; i < n; i++ {
			r.Correct[i] = 0
		}
	default:
		r.Correct = append(r.Correct, make([]uint8, n-len(r.Correct))...)
	}
}

func resizeInts(s []int, n int) []int {
	switch {
	case n <= len(s):
		return s[:n]
	case n <= cap(s):
		old := len(s)
		s = s[:n]
		for i := old; i < n; i++ {
			s[i] = 0
		}
		return s
	default:
		return append(s, make([]int, n-len(s))...)
	}
}

// WriteTSV writes one row per read with a leading header line.  names may
// be nil, in which case the read's batch index is used.
func (r *Results) WriteTSV(w io.Writer, names []string) error {
	out := tsv.NewWriter(w)
	out.WriteString("READ\tMAX_SCORE\tMAX_POS\tMAX_COUNT\tSUB_SCORE\tSUB_POS\tSUB_COUNT\tCORRECT\tTARGET_SCORE")
	if err := out.EndLine(); err != nil {
		return err
	}
	for i := 0; i < r.Len(); i++ {
		if names != nil {
			out.WriteString(names[i])
		} else {
			out.WriteInt64(int64(i))
		}
		out.WriteInt64(int64(r.MaxScore[i]))
		out.WriteInt64(int64(r.MaxPos[i]))
		out.WriteInt64(int64(r.MaxCount[i]))
		out.WriteInt64(int64(r.SubScore[i]))
		out.WriteInt64(int64(r.SubPos[i]))
		out.WriteInt64(int64(r.SubCount[i]))
		out.WriteInt64(int64(r.Correct[i]))
		if r.TargetScore[i] == TargetScoreUndefined {
			out.WriteString(".")
		} else {
			out.WriteInt64(int64(r.TargetScore[i]))
		}
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
