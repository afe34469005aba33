package align

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestScoreProfileRoundTrip(t *testing.T) {
	p := ScoreProfile{
		Match:       2,
		Mismatch:    6,
		ReadGapOpen: 5,
		ReadGapExt:  3,
		RefGapOpen:  4,
		RefGapExt:   2,
		Ambig:       1,
		EndToEnd:    true,
		Tol:         5,
	}
	expect.EQ(t, p.String(), "M=2,MM=6,GOD=5,GED=3,GOF=4,GEF=2,AMB=1,ETE=1,TOL=5")

	q, err := ParseScoreProfile(p.String())
	expect.Nil(t, err)
	expect.EQ(t, q, p)
}

func TestParseScoreProfilePartial(t *testing.T) {
	p, err := ParseScoreProfile("M=1, MM=4")
	expect.Nil(t, err)
	expect.EQ(t, p.Match, 1)
	expect.EQ(t, p.Mismatch, 4)
	expect.EQ(t, p.EndToEnd, false)
}

func TestParseScoreProfileErrors(t *testing.T) {
	_, err := ParseScoreProfile("M")
	expect.NotNil(t, err)
	_, err = ParseScoreProfile("M=x")
	expect.NotNil(t, err)
	_, err = ParseScoreProfile("ZZ=1")
	expect.NotNil(t, err)
}

func TestPresets(t *testing.T) {
	p := Bowtie2Defaults(true)
	expect.EQ(t, p.Match, 2)
	expect.EQ(t, p.EndToEnd, false)

	p = Bowtie2Defaults(false)
	expect.EQ(t, p.Match, 0)
	expect.EQ(t, p.EndToEnd, true)
	expect.EQ(t, p.Mismatch, 6)
	expect.EQ(t, p.ReadGapOpen, 5)
	expect.EQ(t, p.ReadGapExt, 3)

	p = BWAMEMDefaults()
	expect.EQ(t, p.Match, 1)
	expect.EQ(t, p.Mismatch, 4)
	expect.EQ(t, p.ReadGapOpen, 6)
}

func TestDefaultTolerance(t *testing.T) {
	a, err := New(12, NewScoreProfile(2, 2, 3, 1))
	expect.Nil(t, err)
	expect.EQ(t, a.Tolerance(), 3)

	a.SetTolerance(7)
	expect.EQ(t, a.Tolerance(), 7)
}
