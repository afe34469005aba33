package align

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// ScoreProfile sets the scoring scheme for an alignment.  Gap penalties are
// split by side: Read* fields price gaps in the read (a reference base
// consumed without a read base), Ref* fields price gaps in the reference.
type ScoreProfile struct {
	// Match is the reward added for a matching base.
	Match int
	// Mismatch is the penalty for a non-ambiguous mismatch.
	Mismatch int
	// ReadGapOpen and ReadGapExt price a gap in the read.
	ReadGapOpen int
	ReadGapExt  int
	// RefGapOpen and RefGapExt price a gap in the reference.
	RefGapOpen int
	RefGapExt  int
	// Ambig is the penalty paid whenever the read base is N.
	Ambig int
	// EndToEnd selects global-in-read alignment.  The field is forced to
	// the aligner's own mode by SetScores.
	EndToEnd bool
	// Tol is the half-width of the target window used for the correctness
	// flag.  Zero means "use readLen/4", filled at construction.
	Tol int
}

// NewScoreProfile builds a profile with symmetric read/reference gap costs
// and no ambiguity penalty.
func NewScoreProfile(match, mismatch, gapOpen, gapExt int) ScoreProfile {
	return ScoreProfile{
		Match:       match,
		Mismatch:    mismatch,
		ReadGapOpen: gapOpen,
		ReadGapExt:  gapExt,
		RefGapOpen:  gapOpen,
		RefGapExt:   gapExt,
	}
}

// Bowtie2Defaults returns the bowtie2/HISAT2 default scheme.  Local mode
// rewards matches; end-to-end mode scores matches zero.
func Bowtie2Defaults(local bool) ScoreProfile {
	p := ScoreProfile{
		Mismatch:    6,
		ReadGapOpen: 5,
		ReadGapExt:  3,
		RefGapOpen:  5,
		RefGapExt:   3,
		Ambig:       1,
		EndToEnd:    !local,
	}
	if local {
		p.Match = 2
	}
	return p
}

// BWAMEMDefaults returns the bwa mem default scheme.
func BWAMEMDefaults() ScoreProfile {
	return ScoreProfile{
		Match:       1,
		Mismatch:    4,
		ReadGapOpen: 6,
		ReadGapExt:  1,
		RefGapOpen:  6,
		RefGapExt:   1,
	}
}

// String renders the profile in the canonical key=value form, e.g.
// "M=2,MM=2,GOD=3,GED=1,GOF=3,GEF=1,AMB=0,ETE=0,TOL=5".
func (p ScoreProfile) String() string {
	ete := 0
	if p.EndToEnd {
		ete = 1
	}
	return fmt.Sprintf("M=%d,MM=%d,GOD=%d,GED=%d,GOF=%d,GEF=%d,AMB=%d,ETE=%d,TOL=%d",
		p.Match, p.Mismatch, p.ReadGapOpen, p.ReadGapExt, p.RefGapOpen, p.RefGapExt,
		p.Ambig, ete, p.Tol)
}

// ParseScoreProfile parses the String form.  Unknown keys are rejected;
// omitted keys keep their zero value.
func ParseScoreProfile(s string) (ScoreProfile, error) {
	var p ScoreProfile
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) != 2 {
			return p, errors.E(fmt.Sprintf("score profile: invalid token %q", tok))
		}
		v, err := strconv.Atoi(kv[1])
		if err != nil {
			return p, errors.E(fmt.Sprintf("score profile: invalid value %q", tok))
		}
		switch kv[0] {
		case "M":
			p.Match = v
		case "MM":
			p.Mismatch = v
		case "GOD":
			p.ReadGapOpen = v
		case "GED":
			p.ReadGapExt = v
		case "GOF":
			p.RefGapOpen = v
		case "GEF":
			p.RefGapExt = v
		case "AMB":
			p.Ambig = v
		case "ETE":
			p.EndToEnd = v != 0
		case "TOL":
			p.Tol = v
		default:
			return p, errors.E(fmt.Sprintf("score profile: unknown key %q", kv[0]))
		}
	}
	return p, nil
}
