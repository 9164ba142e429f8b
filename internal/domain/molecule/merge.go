package molecule

import "github.com/turtacn/KeyIP-JTNN/pkg/errors"

// Merge joins tmpl onto host by identifying tmplAtom with hostAtom.  The host
// keeps its atom indices and properties; the remaining template atoms are
// appended in template order.  The returned slice maps template atom index →
// merged atom index.
func Merge(host *Molecule, hostAtom int, tmpl *Molecule, tmplAtom int) (*Molecule, []int, error) {
	if hostAtom < 0 || hostAtom >= host.NumAtoms() || tmplAtom < 0 || tmplAtom >= tmpl.NumAtoms() {
		return nil, nil, errors.Newf(errors.CodeInvalidParam, "merge atoms %d/%d out of range", hostAtom, tmplAtom)
	}
	b := NewBuilder()
	for _, a := range host.atoms {
		b.AddAtom(a)
	}
	mapping := make([]int, tmpl.NumAtoms())
	for i, a := range tmpl.atoms {
		if i == tmplAtom {
			mapping[i] = hostAtom
			continue
		}
		mapping[i] = b.AddAtom(a)
	}
	for _, bd := range host.bonds {
		b.AddBond(bd.Begin, bd.End, bd.Order, bd.Direction)
	}
	for _, bd := range tmpl.bonds {
		b.AddBond(mapping[bd.Begin], mapping[bd.End], bd.Order, bd.Direction)
	}
	m, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return m, mapping, nil
}

// SameLabel reports whether two atoms may be identified during assembly:
// same element, formal charge and aromaticity.
func SameLabel(a, b Atom) bool {
	return a.Symbol == b.Symbol && a.Charge == b.Charge && a.Aromatic == b.Aromatic
}

//Personal.AI order the ending
