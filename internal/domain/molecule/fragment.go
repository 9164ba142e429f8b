package molecule

import (
	"sort"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Fragment extracts the subgraph spanned by atoms.  When bonds is nil every
// bond between two listed atoms is kept (induced subgraph); otherwise only
// the listed bonds are kept and both endpoints must be listed.  The returned
// slice maps fragment atom index → source atom index; fragment atoms follow
// ascending source order.
func Fragment(m *Molecule, atoms []int, bonds []int) (*Molecule, []int, error) {
	if len(atoms) == 0 {
		return nil, nil, errors.InvalidParam("fragment needs at least one atom")
	}
	src := append([]int(nil), atoms...)
	sort.Ints(src)
	local := make(map[int]int, len(src))
	for i, a := range src {
		if a < 0 || a >= m.NumAtoms() {
			return nil, nil, errors.Newf(errors.CodeInvalidParam, "atom %d out of range", a)
		}
		if _, dup := local[a]; dup {
			return nil, nil, errors.Newf(errors.CodeInvalidParam, "atom %d listed twice", a)
		}
		local[a] = i
	}

	b := NewBuilder()
	for _, a := range src {
		b.AddAtom(m.atoms[a])
	}

	if bonds == nil {
		for bi, bd := range m.bonds {
			x, okx := local[bd.Begin]
			y, oky := local[bd.End]
			if okx && oky {
				b.AddBond(x, y, m.bonds[bi].Order, bd.Direction)
			}
		}
	} else {
		sorted := append([]int(nil), bonds...)
		sort.Ints(sorted)
		for _, bi := range sorted {
			if bi < 0 || bi >= m.NumBonds() {
				return nil, nil, errors.Newf(errors.CodeInvalidParam, "bond %d out of range", bi)
			}
			bd := m.bonds[bi]
			x, okx := local[bd.Begin]
			y, oky := local[bd.End]
			if !okx || !oky {
				return nil, nil, errors.Newf(errors.CodeInvalidParam, "bond %d leaves the fragment", bi)
			}
			b.AddBond(x, y, bd.Order, bd.Direction)
		}
	}

	frag, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return frag, src, nil
}

// FragmentSMILES is the canonical SMILES of Fragment(m, atoms, bonds).
func FragmentSMILES(m *Molecule, atoms []int, bonds []int) (string, error) {
	frag, _, err := Fragment(m, atoms, bonds)
	if err != nil {
		return "", err
	}
	return CanonicalSMILES(frag), nil
}

//Personal.AI order the ending
