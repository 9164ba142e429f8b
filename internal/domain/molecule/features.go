package molecule

// ---------------------------------------------------------------------------
// Atom / Bond feature encoding
// ---------------------------------------------------------------------------

// AtomFeatureSet layout, total AtomFDim = 39:
//
//	[0..22]   element one-hot (ElementList, last bin = unknown)
//	[23..28]  degree one-hot (0..5, clamped)
//	[29..33]  formal charge one-hot (-1, -2, +1, +2, 0)
//	[34..37]  chirality one-hot (none, @, @@, other)
//	[38]      aromatic
//
// BondFeatureSet layout, total BondFDim = 8:
//
//	[0..3]  order one-hot (single, double, triple, aromatic)
//	[4]     in ring
//	[5..7]  direction one-hot (none, /, \)
const (
	degreeBins    = 6
	chargeBins    = 5
	chiralityBins = 4
	bondOrderBins = 4
	directionBins = 3

	AtomFDim = len(elementListArray) + degreeBins + chargeBins + chiralityBins + 1
	BondFDim = bondOrderBins + 1 + directionBins
)

// elementListArray fixes the element vocabulary for featurization.  The
// final entry collects every element not listed.
var elementListArray = [...]string{
	"C", "N", "O", "S", "F", "Si", "P", "Cl", "Br", "Mg", "Na", "Ca",
	"Fe", "Al", "I", "B", "K", "Se", "Zn", "H", "Cu", "Mn", "unknown",
}

// ElementList returns the featurized element symbols in bin order.
func ElementList() []string { return append([]string(nil), elementListArray[:]...) }

var elementBin = func() map[string]int {
	m := make(map[string]int, len(elementListArray))
	for i, s := range elementListArray {
		m[s] = i
	}
	return m
}()

var chargeBin = map[int]int{-1: 0, -2: 1, 1: 2, 2: 3, 0: 4}

// AtomFeatures returns the AtomFDim-wide feature vector of atom i.
func AtomFeatures(m *Molecule, i int) []float64 {
	f := make([]float64, AtomFDim)
	a := m.atoms[i]
	off := 0

	bin, ok := elementBin[a.Symbol]
	if !ok {
		bin = len(elementListArray) - 1
	}
	f[off+bin] = 1
	off += len(elementListArray)

	f[off+min(m.Degree(i), degreeBins-1)] = 1
	off += degreeBins

	cb, ok := chargeBin[a.Charge]
	if !ok {
		cb = chargeBins - 1
	}
	f[off+cb] = 1
	off += chargeBins

	f[off+int(a.Chirality)] = 1
	off += chiralityBins

	if a.Aromatic {
		f[off] = 1
	}
	return f
}

// BondFeatures returns the BondFDim-wide feature vector of bond b.
func BondFeatures(m *Molecule, b int) []float64 {
	f := make([]float64, BondFDim)
	bd := m.bonds[b]
	f[int(bd.Order)-1] = 1
	if bd.InRing {
		f[bondOrderBins] = 1
	}
	f[bondOrderBins+1+int(bd.Direction)] = 1
	return f
}

//Personal.AI order the ending
