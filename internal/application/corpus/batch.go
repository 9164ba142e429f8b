package corpus

import (
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
)

// AssemblyTarget holds the featurized attachment candidates of one non-root
// node onto its parent and the index of the true one.
type AssemblyTarget struct {
	Node       int
	Parent     int
	Candidates []molecule.FeatureGraph
	Target     int
}

// Item is one unpadded training example.
type Item struct {
	SMILES string
	Mol    *molecule.Molecule
	Labels []int
	Edges  [][2]int
	Order  []junction.Step
	Graph  molecule.FeatureGraph
	// Assembly lists non-root nodes in decode order.  It is empty when
	// AssemblyMismatch is set.
	Assembly         []AssemblyTarget
	AssemblyMismatch bool
	// Stereo holds stereoisomer candidates with the observed one first.  It
	// is empty for molecules without stereo elements.
	Stereo []molecule.FeatureGraph
}

// NumNodes returns the junction tree size.
func (it *Item) NumNodes() int { return len(it.Labels) }

// Padding values.
const (
	PadIndex = -1
	PadValue = 0.0
)

// PadStep fills DecodeOrder beyond StepCounts.
var PadStep = junction.Step{From: PadIndex, To: PadIndex}

// Batch is a padded group of examples.  Index tensors are padded with
// PadIndex and feature tensors with zeros up to the batch maxima.
type Batch struct {
	Size     int
	MaxNodes int
	MaxAtoms int
	MaxBonds int

	NodeLabels  [][]int           // [N][MaxNodes]
	TreeEdges   [][][2]int        // [N][MaxNodes-1]
	DecodeOrder [][]junction.Step // [N][2*(MaxNodes-1)]

	AtomFeatures [][][]float64 // [N][MaxAtoms][AtomFDim]
	BondIndex    [][][2]int    // [N][MaxBonds]
	BondFeatures [][][]float64 // [N][MaxBonds][BondFDim]

	NodeCounts []int
	EdgeCounts []int
	StepCounts []int
	AtomCounts []int
	BondCounts []int

	SMILES           []string
	Mols             []*molecule.Molecule
	Assembly         [][]AssemblyTarget
	AssemblyMismatch []bool
	Stereo           [][]molecule.FeatureGraph
}

// NewBatch pads items into a Batch.
func NewBatch(items []*Item) *Batch {
	b := &Batch{Size: len(items)}
	for _, it := range items {
		b.MaxNodes = max(b.MaxNodes, it.NumNodes())
		b.MaxAtoms = max(b.MaxAtoms, it.Graph.NumAtoms())
		b.MaxBonds = max(b.MaxBonds, it.Graph.NumBonds())
	}
	maxEdges := max(b.MaxNodes-1, 0)

	for _, it := range items {
		labels := make([]int, b.MaxNodes)
		fillInt(labels, PadIndex)
		copy(labels, it.Labels)

		edges := make([][2]int, maxEdges)
		for i := range edges {
			edges[i] = [2]int{PadIndex, PadIndex}
		}
		copy(edges, it.Edges)

		order := make([]junction.Step, 2*maxEdges)
		for i := range order {
			order[i] = PadStep
		}
		copy(order, it.Order)

		atoms := make([][]float64, b.MaxAtoms)
		for i := range atoms {
			if i < it.Graph.NumAtoms() {
				atoms[i] = append([]float64(nil), it.Graph.Atoms[i]...)
			} else {
				atoms[i] = make([]float64, molecule.AtomFDim)
			}
		}

		bondIdx := make([][2]int, b.MaxBonds)
		bondFeats := make([][]float64, b.MaxBonds)
		for i := range bondIdx {
			if i < it.Graph.NumBonds() {
				bondIdx[i] = it.Graph.Bonds[i]
				bondFeats[i] = append([]float64(nil), it.Graph.BondFeats[i]...)
			} else {
				bondIdx[i] = [2]int{PadIndex, PadIndex}
				bondFeats[i] = make([]float64, molecule.BondFDim)
			}
		}

		b.NodeLabels = append(b.NodeLabels, labels)
		b.TreeEdges = append(b.TreeEdges, edges)
		b.DecodeOrder = append(b.DecodeOrder, order)
		b.AtomFeatures = append(b.AtomFeatures, atoms)
		b.BondIndex = append(b.BondIndex, bondIdx)
		b.BondFeatures = append(b.BondFeatures, bondFeats)

		b.NodeCounts = append(b.NodeCounts, it.NumNodes())
		b.EdgeCounts = append(b.EdgeCounts, len(it.Edges))
		b.StepCounts = append(b.StepCounts, len(it.Order))
		b.AtomCounts = append(b.AtomCounts, it.Graph.NumAtoms())
		b.BondCounts = append(b.BondCounts, it.Graph.NumBonds())

		b.SMILES = append(b.SMILES, it.SMILES)
		b.Mols = append(b.Mols, it.Mol)
		b.Assembly = append(b.Assembly, it.Assembly)
		b.AssemblyMismatch = append(b.AssemblyMismatch, it.AssemblyMismatch)
		b.Stereo = append(b.Stereo, it.Stereo)
	}
	return b
}

// Item returns the unpadded view of example i.
func (b *Batch) Item(i int) *Item {
	nodes, edges, steps := b.NodeCounts[i], b.EdgeCounts[i], b.StepCounts[i]
	atoms, bonds := b.AtomCounts[i], b.BondCounts[i]

	g := molecule.FeatureGraph{
		Atoms:     make([][]float64, atoms),
		Bonds:     append(make([][2]int, 0, bonds), b.BondIndex[i][:bonds]...),
		BondFeats: make([][]float64, bonds),
	}
	for a := 0; a < atoms; a++ {
		g.Atoms[a] = append([]float64(nil), b.AtomFeatures[i][a]...)
	}
	for k := 0; k < bonds; k++ {
		g.BondFeats[k] = append([]float64(nil), b.BondFeatures[i][k]...)
	}
	return &Item{
		SMILES:           b.SMILES[i],
		Mol:              b.Mols[i],
		Labels:           append(make([]int, 0, nodes), b.NodeLabels[i][:nodes]...),
		Edges:            append(make([][2]int, 0, edges), b.TreeEdges[i][:edges]...),
		Order:            append(make([]junction.Step, 0, steps), b.DecodeOrder[i][:steps]...),
		Graph:            g,
		Assembly:         b.Assembly[i],
		AssemblyMismatch: b.AssemblyMismatch[i],
		Stereo:           b.Stereo[i],
	}
}

// Items returns every unpadded example.
func (b *Batch) Items() []*Item {
	out := make([]*Item, b.Size)
	for i := range out {
		out[i] = b.Item(i)
	}
	return out
}

func fillInt(s []int, v int) {
	for i := range s {
		s[i] = v
	}
}

//Personal.AI order the ending
