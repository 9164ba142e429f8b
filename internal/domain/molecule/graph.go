package molecule

// FeatureGraph is the featurized form of a molecule consumed by message
// passing networks.  Bonds lists each bond once as (begin, end).
type FeatureGraph struct {
	Atoms     [][]float64 `json:"atoms"`
	Bonds     [][2]int    `json:"bonds"`
	BondFeats [][]float64 `json:"bond_feats"`
}

// Featurize computes the FeatureGraph of m.
func Featurize(m *Molecule) FeatureGraph {
	g := FeatureGraph{
		Atoms:     make([][]float64, m.NumAtoms()),
		Bonds:     make([][2]int, m.NumBonds()),
		BondFeats: make([][]float64, m.NumBonds()),
	}
	for i := range g.Atoms {
		g.Atoms[i] = AtomFeatures(m, i)
	}
	for i, b := range m.bonds {
		g.Bonds[i] = [2]int{b.Begin, b.End}
		g.BondFeats[i] = BondFeatures(m, i)
	}
	return g
}

// NumAtoms returns the atom count.
func (g FeatureGraph) NumAtoms() int { return len(g.Atoms) }

// NumBonds returns the bond count.
func (g FeatureGraph) NumBonds() int { return len(g.Bonds) }

//Personal.AI order the ending
