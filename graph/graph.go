// Package graph holds the directed acyclic sequence graph consumed by the
// aligner.  A node covers a contiguous run of reference coordinates; variant
// alternatives appear as sibling nodes sharing predecessors and successors,
// and an empty node models a deletion edge.  Nodes are stored in topological
// order, so a slice of nodes doubles as the iterator range the aligner
// walks.
package graph

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gsw/nuc"
)

// Node is one vertex of the sequence graph.
type Node struct {
	// ID is unique within a Graph and increases in topological order.
	ID uint64
	// EndPos is the 1-based reference coordinate of the node's last base.
	// The first base of a node of length K sits at EndPos - K + 1.
	EndPos int
	// Seq is the node's base codes.  Empty Seq denotes a deletion edge.
	Seq []nuc.Base
	// Preds lists the IDs of immediate predecessors.
	Preds []uint64
	// Pinched is set when every path through the graph passes through this
	// node.  The aligner drops all older seeds when it reaches a pinched
	// node.
	Pinched bool
}

// Len returns the node's sequence length.
func (n *Node) Len() int { return len(n.Seq) }

// Graph is an append-only DAG builder.  Nodes must be added in topological
// order; AddEdge rejects edges that point backwards.
type Graph struct {
	nodes     []*Node
	finalized bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a node with the given 1-based end position and ASCII
// sequence, returning its ID.  Lowercase and unrecognized characters become
// N, the same normalization applied to reads.
func (g *Graph) AddNode(endPos int, seq string) uint64 {
	id := uint64(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		ID:     id,
		EndPos: endPos,
		Seq:    nuc.SeqToBases(seq),
	})
	g.finalized = false
	return id
}

// AddEdge records a predecessor relationship.  Both nodes must already
// exist and the edge must run forward in insertion order.
func (g *Graph) AddEdge(from, to uint64) error {
	if from >= uint64(len(g.nodes)) || to >= uint64(len(g.nodes)) {
		return errors.E(fmt.Sprintf("graph: edge %d->%d references a missing node", from, to))
	}
	if from >= to {
		return errors.E(fmt.Sprintf("graph: edge %d->%d violates topological order", from, to))
	}
	g.nodes[to].Preds = append(g.nodes[to].Preds, from)
	g.finalized = false
	return nil
}

// Nodes returns the nodes in topological order.  Pinched flags are computed
// on first use after the graph changed.  Sub-slices of the returned slice
// express half-open alignment ranges.
func (g *Graph) Nodes() []*Node {
	if !g.finalized {
		g.computePinched()
		g.finalized = true
	}
	return g.nodes
}

// NumNodes returns the number of nodes added so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// computePinched marks each node through which every path passes.  Node i
// is pinched exactly when no edge jumps from a node before i to a node
// after i; in that case nothing downstream can reference a seed older than
// node i.  One sweep over the edges suffices since IDs are topological.
func (g *Graph) computePinched() {
	// furthest[i]: max target ID over all edges leaving nodes 0..i.
	furthest := 0
	reach := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, p := range n.Preds {
			if int(n.ID) > reach[p] {
				reach[p] = int(n.ID)
			}
		}
	}
	for i, n := range g.nodes {
		n.Pinched = furthest <= i
		if reach[i] > furthest {
			furthest = reach[i]
		}
	}
}
