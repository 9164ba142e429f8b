// Package junction decomposes a molecule into a tree of substructure
// clusters (rings, bonds and hub atoms) and enumerates the ways a child
// cluster can be attached back onto its parent.
package junction

import (
	"fmt"
	"sort"
	"sync"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
)

// ClusterKind classifies a junction-tree node.  The numeric order is part of
// the cluster sort key, so rings sort before bonds before singletons.
type ClusterKind int8

const (
	KindRing ClusterKind = iota
	KindBond
	KindAtom
)

func (k ClusterKind) String() string {
	switch k {
	case KindRing:
		return "ring"
	case KindBond:
		return "bond"
	case KindAtom:
		return "atom"
	}
	return fmt.Sprintf("ClusterKind(%d)", int8(k))
}

// Cluster is one node of a junction tree.
type Cluster struct {
	Kind  ClusterKind `json:"kind"`
	Atoms []int       `json:"atoms"`
	Bonds []int       `json:"bonds"`
	// Signature is the canonical SMILES of the cluster fragment.
	Signature string `json:"signature"`
	// Attachments lists the atoms shared with tree neighbours, sorted.
	Attachments []int `json:"attachments"`
	// Label is the vocabulary index, -1 until labelled.
	Label int `json:"label"`
}

// Step is one move of the depth-first decode traversal.
type Step struct {
	From   int  `json:"from"`
	To     int  `json:"to"`
	Expand bool `json:"expand"`
}

// Tree is a junction tree: an arena of clusters and its adjacency.  Cluster 0
// is the root.
type Tree struct {
	SMILES   string             `json:"smiles"`
	Mol      *molecule.Molecule `json:"-"`
	Clusters []Cluster          `json:"clusters"`
	Edges    [][2]int           `json:"edges"`

	adjOnce sync.Once
	adj     [][]int
}

// NumNodes returns the number of clusters.
func (t *Tree) NumNodes() int { return len(t.Clusters) }

// Neighbors returns the clusters adjacent to node i in ascending order.  The
// slice must not be modified.
func (t *Tree) Neighbors(i int) []int {
	t.ensureAdj()
	return t.adj[i]
}

// Labels returns the vocabulary label of every cluster.
func (t *Tree) Labels() []int {
	out := make([]int, len(t.Clusters))
	for i, c := range t.Clusters {
		out[i] = c.Label
	}
	return out
}

// Signatures returns the cluster signatures in node order.
func (t *Tree) Signatures() []string {
	out := make([]string, len(t.Clusters))
	for i, c := range t.Clusters {
		out[i] = c.Signature
	}
	return out
}

// Parents returns the parent of every node when rooted at 0; the root maps
// to -1.
func (t *Tree) Parents() []int {
	parent := make([]int, len(t.Clusters))
	for i := range parent {
		parent[i] = -1
	}
	for _, s := range t.DFSOrder() {
		if s.Expand {
			parent[s.To] = s.From
		}
	}
	return parent
}

// DFSOrder returns the depth-first traversal from the root.  Children are
// visited in ascending cluster index; every edge produces an expand step on
// the way down and a return step on the way back.
func (t *Tree) DFSOrder() []Step {
	if len(t.Clusters) == 0 {
		return nil
	}
	t.ensureAdj()
	steps := make([]Step, 0, 2*len(t.Edges))
	var walk func(node, parent int)
	walk = func(node, parent int) {
		for _, child := range t.adj[node] {
			if child == parent {
				continue
			}
			steps = append(steps, Step{From: node, To: child, Expand: true})
			walk(child, node)
			steps = append(steps, Step{From: child, To: node, Expand: false})
		}
	}
	walk(0, -1)
	return steps
}

// Clone returns a deep copy of t sharing the immutable molecule.
func (t *Tree) Clone() *Tree {
	out := &Tree{SMILES: t.SMILES, Mol: t.Mol}
	out.Clusters = make([]Cluster, len(t.Clusters))
	for i, c := range t.Clusters {
		c.Atoms = append([]int(nil), c.Atoms...)
		c.Bonds = append([]int(nil), c.Bonds...)
		c.Attachments = append([]int(nil), c.Attachments...)
		out.Clusters[i] = c
	}
	out.Edges = append([][2]int(nil), t.Edges...)
	return out
}

// Validate checks the structural invariants: every atom is covered, every
// bond lies in exactly one cluster, the edge count is nodes-1 and the tree is
// connected.
func (t *Tree) Validate() error {
	if t.Mol == nil {
		return fmt.Errorf("tree has no molecule")
	}
	covered := make([]bool, t.Mol.NumAtoms())
	bondOwners := make([]int, t.Mol.NumBonds())
	for _, c := range t.Clusters {
		for _, a := range c.Atoms {
			covered[a] = true
		}
		for _, b := range c.Bonds {
			bondOwners[b]++
		}
	}
	for a, ok := range covered {
		if !ok {
			return fmt.Errorf("atom %d is in no cluster", a)
		}
	}
	for b, n := range bondOwners {
		if n != 1 {
			return fmt.Errorf("bond %d lies in %d clusters", b, n)
		}
	}
	if len(t.Edges) != len(t.Clusters)-1 {
		return fmt.Errorf("tree has %d edges for %d clusters", len(t.Edges), len(t.Clusters))
	}
	t.ensureAdj()
	seen := make([]bool, len(t.Clusters))
	seen[0] = true
	queue := []int{0}
	for q := 0; q < len(queue); q++ {
		for _, nb := range t.adj[queue[q]] {
			if !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	reached := len(queue)
	if reached != len(t.Clusters) {
		return fmt.Errorf("tree is disconnected: reached %d of %d clusters", reached, len(t.Clusters))
	}
	return nil
}

func (t *Tree) ensureAdj() {
	t.adjOnce.Do(func() {
		adj := make([][]int, len(t.Clusters))
		for _, e := range t.Edges {
			adj[e[0]] = append(adj[e[0]], e[1])
			adj[e[1]] = append(adj[e[1]], e[0])
		}
		for i := range adj {
			sort.Ints(adj[i])
		}
		t.adj = adj
	})
}

//Personal.AI order the ending
