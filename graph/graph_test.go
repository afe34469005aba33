package graph

import (
	"testing"

	"github.com/grailbio/gsw/nuc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	g := New()
	n1 := g.AddNode(3, "AAA")
	n2 := g.AddNode(6, "ccg")
	require.NoError(t, g.AddEdge(n1, n2))

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, uint64(0), nodes[0].ID)
	assert.Equal(t, 3, nodes[0].EndPos)
	assert.Equal(t, []nuc.Base{nuc.A, nuc.A, nuc.A}, nodes[0].Seq)
	assert.Equal(t, []nuc.Base{nuc.C, nuc.C, nuc.G}, nodes[1].Seq)
	assert.Equal(t, []uint64{0}, nodes[1].Preds)
	assert.Empty(t, nodes[0].Preds)
}

func TestEdgeValidation(t *testing.T) {
	g := New()
	a := g.AddNode(3, "AAA")
	b := g.AddNode(6, "CCC")
	assert.Error(t, g.AddEdge(b, a), "backward edge")
	assert.Error(t, g.AddEdge(a, a), "self edge")
	assert.Error(t, g.AddEdge(a, 99), "missing node")
	assert.NoError(t, g.AddEdge(a, b))
}

func TestPinchedDiamond(t *testing.T) {
	g := New()
	n1 := g.AddNode(3, "AAA")
	n2 := g.AddNode(6, "CCC")
	n3 := g.AddNode(6, "GGG")
	n4 := g.AddNode(10, "TTTA")
	require.NoError(t, g.AddEdge(n1, n2))
	require.NoError(t, g.AddEdge(n1, n3))
	require.NoError(t, g.AddEdge(n2, n4))
	require.NoError(t, g.AddEdge(n3, n4))

	nodes := g.Nodes()
	assert.True(t, nodes[0].Pinched)
	assert.False(t, nodes[1].Pinched)
	assert.False(t, nodes[2].Pinched)
	assert.True(t, nodes[3].Pinched)
}

func TestPinchedSpanningEdge(t *testing.T) {
	// 0 -> 1 -> 2 plus a skip edge 0 -> 2: node 1 is bypassed.
	g := New()
	n0 := g.AddNode(3, "AAA")
	n1 := g.AddNode(6, "CCC")
	n2 := g.AddNode(9, "GGG")
	require.NoError(t, g.AddEdge(n0, n1))
	require.NoError(t, g.AddEdge(n0, n2))
	require.NoError(t, g.AddEdge(n1, n2))

	nodes := g.Nodes()
	assert.True(t, nodes[0].Pinched)
	assert.False(t, nodes[1].Pinched)
	assert.True(t, nodes[2].Pinched)
}

func TestLinearAllPinched(t *testing.T) {
	g := New()
	prev := g.AddNode(3, "AAA")
	for i := 1; i < 5; i++ {
		n := g.AddNode(3+3*i, "CCC")
		require.NoError(t, g.AddEdge(prev, n))
		prev = n
	}
	for _, n := range g.Nodes() {
		assert.True(t, n.Pinched, "node %d", n.ID)
	}
}

func TestDeletionEdgeNode(t *testing.T) {
	g := New()
	id := g.AddNode(6, "")
	assert.Equal(t, 0, g.Nodes()[id].Len())
}
