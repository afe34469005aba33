package align

import "github.com/grailbio/gsw/simdvec"

// inWindow reports whether pos falls inside lane i's target window.
func (a *Aligner[E]) inWindow(i, pos int) bool {
	return pos >= a.targetLow[i] && pos <= a.targetHigh[i]
}

// commitCell folds the freshly computed score vector s[row] at reference
// position pos into the per-lane best/second-best tracker.  Two hits count
// as distinct only when they are more than a read length apart; an equal
// score at a nearer position slides the recorded position forward without
// counting, so the last column of a tie wins.
func (a *Aligner[E]) commitCell(row, pos int) {
	s := a.s[row]

	// Ties with the current best.
	if m := simdvec.Eq(s, a.maxScore); m.Any() {
		for i := 0; i < simdvec.Lanes; i++ {
			if !m.Test(i) {
				continue
			}
			if pos > a.maxPos[i]+a.readLen {
				a.maxCount[i]++
			}
			a.maxPos[i] = pos
			if a.inWindow(i, pos) {
				a.corFlag[i] = 1
			}
		}
	}

	// New best.
	if m := simdvec.Gt(s, a.maxScore); m.Any() {
		oldMax := a.maxScore
		a.maxScore = simdvec.Max(s, a.maxScore)
		for i := 0; i < simdvec.Lanes; i++ {
			if !m.Test(i) {
				continue
			}
			if pos > a.maxPos[i]+a.readLen {
				// The dethroned best does not overlap the new one; it
				// becomes the second-best hit.
				a.subScore[i] = oldMax[i]
				a.subPos[i] = a.maxPos[i]
				a.subCount[i] = a.maxCount[i]
				if a.corFlag[i] == 1 {
					a.corFlag[i] = 2
				} else {
					a.corFlag[i] = 0
				}
			}
			a.maxCount[i] = 1
			a.maxPos[i] = pos
			if a.inWindow(i, pos) {
				a.corFlag[i] = 1
			} else if a.corFlag[i] == 1 {
				a.corFlag[i] = 0
			}
		}
	}

	// Ties with the second-best, where sub is strictly below max.
	if m := simdvec.Eq(s, a.subScore).And(^simdvec.Eq(a.subScore, a.maxScore)); m.Any() {
		for i := 0; i < simdvec.Lanes; i++ {
			if !m.Test(i) || pos <= a.maxPos[i]+a.readLen {
				continue
			}
			if pos > a.subPos[i]+a.readLen {
				a.subCount[i]++
			}
			a.subPos[i] = pos
			if a.inWindow(i, pos) {
				a.corFlag[i] = 2
			}
		}
	}

	// Between second-best and best.
	if m := simdvec.Gt(s, a.subScore).And(simdvec.Lt(s, a.maxScore)); m.Any() {
		for i := 0; i < simdvec.Lanes; i++ {
			if !m.Test(i) || pos <= a.maxPos[i]+a.readLen {
				continue
			}
			a.subScore[i] = s[i]
			a.subCount[i] = 1
			a.subPos[i] = pos
			if a.inWindow(i, pos) {
				a.corFlag[i] = 2
			} else if a.corFlag[i] != 1 {
				// A displaced second-best hit takes its correctness with it.
				a.corFlag[i] = 0
			}
		}
	}
}
