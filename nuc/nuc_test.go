package nuc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromChar(t *testing.T) {
	assert.Equal(t, A, FromChar('A'))
	assert.Equal(t, A, FromChar('a'))
	assert.Equal(t, C, FromChar('c'))
	assert.Equal(t, G, FromChar('G'))
	assert.Equal(t, T, FromChar('t'))
	assert.Equal(t, N, FromChar('N'))
	assert.Equal(t, N, FromChar('n'))
	assert.Equal(t, N, FromChar('x'))
	assert.Equal(t, N, FromChar('.'))
	assert.Equal(t, N, FromChar(0))
}

func TestRoundTrip(t *testing.T) {
	bases := SeqToBases("acgtnACGTN")
	assert.Equal(t, []Base{A, C, G, T, N, A, C, G, T, N}, bases)
	assert.Equal(t, "ACGTNACGTN", BasesToString(bases))
}

func TestAppendSeq(t *testing.T) {
	dst := SeqToBases("AC")
	dst = AppendSeq(dst, "gt")
	assert.Equal(t, []Base{A, C, G, T}, dst)
}

func TestRandBaseNeverAmbiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		b := RandBase(rng)
		assert.Less(t, uint8(b), uint8(N))
	}
}
