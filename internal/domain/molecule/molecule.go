// Package molecule provides the immutable bonded-atom graph used by the
// junction-tree pipeline: a SMILES reader and canonical writer, ring
// perception, fragment extraction and atom/bond featurization.
package molecule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value types
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the chemical order of a bond.
type BondOrder int8

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Valence returns the contribution of the bond to an atom's valence.
func (o BondOrder) Valence() float64 {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondAromatic:
		return 1.5
	default:
		return 1
	}
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	}
	return fmt.Sprintf("BondOrder(%d)", int8(o))
}

// Chirality is the tetrahedral tag written as @ or @@.
type Chirality int8

const (
	ChiralNone Chirality = iota
	ChiralCCW            // @
	ChiralCW             // @@
)

// Flip swaps @ and @@.  ChiralNone is unchanged.
func (c Chirality) Flip() Chirality {
	switch c {
	case ChiralCCW:
		return ChiralCW
	case ChiralCW:
		return ChiralCCW
	}
	return c
}

// BondDirection is the directional marker written as / or \ on single bonds
// adjacent to a stereo double bond.  It is relative to Begin → End.
type BondDirection int8

const (
	DirNone BondDirection = iota
	DirUp                 // /
	DirDown               // \
)

// Flip swaps / and \.
func (d BondDirection) Flip() BondDirection {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	}
	return d
}

// Atom is one vertex of the graph.
type Atom struct {
	Symbol    string
	AtomicNum int
	Charge    int
	Aromatic  bool
	// Bracket records that the atom was written in brackets, in which case
	// ExplicitH is authoritative and no implicit hydrogens are added.
	Bracket   bool
	ExplicitH int
	Chirality Chirality
}

// Bond is one edge of the graph.
type Bond struct {
	Begin     int
	End       int
	Order     BondOrder
	Direction BondDirection
	InRing    bool
}

// Other returns the endpoint of b opposite to atom.
func (b Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// Neighbor is an adjacency entry: the atom reached and the bond used.
type Neighbor struct {
	Atom int
	Bond int
}

// Ring is one member of the smallest set of smallest rings.  Both slices are
// sorted ascending.
type Ring struct {
	Atoms []int
	Bonds []int
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is an immutable bonded-atom graph.  Adjacency lists are sorted by
// neighbour atom index.  All accessors are safe for concurrent use.
type Molecule struct {
	atoms []Atom
	bonds []Bond
	adj   [][]Neighbor

	ringOnce sync.Once
	rings    []Ring
	ringErr  error
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.bonds) }

// Atom returns a copy of atom i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// Bond returns a copy of bond i.
func (m *Molecule) Bond(i int) Bond { return m.bonds[i] }

// Neighbors returns the adjacency of atom i.  The slice must not be modified.
func (m *Molecule) Neighbors(i int) []Neighbor { return m.adj[i] }

// Degree returns the number of explicit bonds on atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// BondBetween returns the index of the bond joining a and b.
func (m *Molecule) BondBetween(a, b int) (int, bool) {
	for _, nb := range m.adj[a] {
		if nb.Atom == b {
			return nb.Bond, true
		}
	}
	return -1, false
}

// BondValence returns the floor of the summed bond orders on atom i, with
// aromatic bonds counting 1.5.
func (m *Molecule) BondValence(i int) int {
	sum := 0.0
	for _, nb := range m.adj[i] {
		sum += m.bonds[nb.Bond].Order.Valence()
	}
	return int(sum)
}

// ImplicitHs returns the hydrogens implied by the default valence model for
// organic-subset atoms.  Bracket atoms carry none.
func (m *Molecule) ImplicitHs(i int) int {
	a := m.atoms[i]
	if a.Bracket {
		return 0
	}
	used := m.BondValence(i)
	h := defaultValence(a.Symbol, a.Charge, used) - used
	if h < 0 {
		return 0
	}
	return h
}

// TotalHs returns explicit plus implicit hydrogens on atom i.
func (m *Molecule) TotalHs(i int) int {
	return m.atoms[i].ExplicitH + m.ImplicitHs(i)
}

// ValenceOK reports whether atom i carries no more bonds than its element
// allows.  Aromatic atoms get one unit of slack for lone-pair donors such as
// furan oxygen.
func (m *Molecule) ValenceOK(i int) bool {
	a := m.atoms[i]
	limit := MaxValence(a.Symbol, a.Charge)
	if a.Aromatic {
		limit++
	}
	return m.BondValence(i)+a.ExplicitH <= limit
}

// IsRingAtom reports whether atom i lies on any ring bond.
func (m *Molecule) IsRingAtom(i int) bool {
	for _, nb := range m.adj[i] {
		if m.bonds[nb.Bond].InRing {
			return true
		}
	}
	return false
}

// HasStereo reports whether any atom carries a chiral tag or any bond a
// directional marker.
func (m *Molecule) HasStereo() bool {
	for _, a := range m.atoms {
		if a.Chirality != ChiralNone {
			return true
		}
	}
	for _, b := range m.bonds {
		if b.Direction != DirNone {
			return true
		}
	}
	return false
}

// Components returns the connected components as sorted atom lists, ordered
// by their smallest atom.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.atoms))
	var out [][]int
	for start := range m.atoms {
		if seen[start] {
			continue
		}
		comp := []int{start}
		seen[start] = true
		for q := 0; q < len(comp); q++ {
			for _, nb := range m.adj[comp[q]] {
				if !seen[nb.Atom] {
					seen[nb.Atom] = true
					comp = append(comp, nb.Atom)
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

// IsConnected reports whether the molecule has exactly one component.
func (m *Molecule) IsConnected() bool {
	return len(m.atoms) > 0 && len(m.Components()) == 1
}

// Atoms returns a copy of the atom slice.
func (m *Molecule) Atoms() []Atom {
	out := make([]Atom, len(m.atoms))
	copy(out, m.atoms)
	return out
}

// Bonds returns a copy of the bond slice.
func (m *Molecule) Bonds() []Bond {
	out := make([]Bond, len(m.bonds))
	copy(out, m.bonds)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// Builder assembles a Molecule atom by atom.  The first error is sticky and
// returned by Build.
type Builder struct {
	atoms []Atom
	bonds []Bond
	pairs map[[2]int]struct{}
	err   error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{pairs: make(map[[2]int]struct{})}
}

// AddAtom appends a and returns its index.  AtomicNum is filled from Symbol
// when zero.
func (b *Builder) AddAtom(a Atom) int {
	if a.AtomicNum == 0 {
		a.AtomicNum = AtomicNumber(a.Symbol)
	}
	if b.err == nil && a.Symbol == "" {
		b.err = errors.New(errors.CodeInvalidParam, "atom symbol is empty")
	}
	b.atoms = append(b.atoms, a)
	return len(b.atoms) - 1
}

// AddBond joins begin and end and returns the bond index, or -1 on error.
func (b *Builder) AddBond(begin, end int, order BondOrder, dir BondDirection) int {
	if b.err != nil {
		return -1
	}
	if begin < 0 || end < 0 || begin >= len(b.atoms) || end >= len(b.atoms) {
		b.err = errors.Newf(errors.CodeInvalidParam, "bond %d-%d references a missing atom", begin, end)
		return -1
	}
	if begin == end {
		b.err = errors.Newf(errors.CodeInvalidParam, "atom %d cannot bond to itself", begin)
		return -1
	}
	key := [2]int{min(begin, end), max(begin, end)}
	if _, dup := b.pairs[key]; dup {
		b.err = errors.Newf(errors.CodeInvalidParam, "duplicate bond %d-%d", begin, end)
		return -1
	}
	b.pairs[key] = struct{}{}
	b.bonds = append(b.bonds, Bond{Begin: begin, End: end, Order: order, Direction: dir})
	return len(b.bonds) - 1
}

// NumAtoms returns the number of atoms added so far.
func (b *Builder) NumAtoms() int { return len(b.atoms) }

// Build freezes the graph: adjacency is indexed, ring bonds are marked and
// aromatic bonds outside rings are demoted to single.
func (b *Builder) Build() (*Molecule, error) {
	if b.err != nil {
		return nil, b.err
	}
	return newMolecule(b.atoms, b.bonds), nil
}

func newMolecule(atoms []Atom, bonds []Bond) *Molecule {
	m := &Molecule{
		atoms: append([]Atom(nil), atoms...),
		bonds: append([]Bond(nil), bonds...),
		adj:   make([][]Neighbor, len(atoms)),
	}
	for i, bd := range m.bonds {
		m.adj[bd.Begin] = append(m.adj[bd.Begin], Neighbor{Atom: bd.End, Bond: i})
		m.adj[bd.End] = append(m.adj[bd.End], Neighbor{Atom: bd.Begin, Bond: i})
	}
	for i := range m.adj {
		nbs := m.adj[i]
		sort.Slice(nbs, func(x, y int) bool { return nbs[x].Atom < nbs[y].Atom })
	}

	bridges := m.bridges()
	for i := range m.bonds {
		m.bonds[i].InRing = !bridges[i]
		if m.bonds[i].Order == BondAromatic && !m.bonds[i].InRing {
			m.bonds[i].Order = BondSingle
		}
	}
	return m
}

//Personal.AI order the ending
