package molecule

import (
	"strconv"
	"strings"
)

// StereoCenters lists the atoms carrying a chiral tag and the double bonds
// flanked by at least one directional single bond, both ascending.
func StereoCenters(m *Molecule) (atoms []int, doubleBonds []int) {
	for i, a := range m.atoms {
		if a.Chirality != ChiralNone {
			atoms = append(atoms, i)
		}
	}
	for i, b := range m.bonds {
		if b.Order != BondDouble {
			continue
		}
		if len(m.directionalAround(b.Begin, i)) > 0 || len(m.directionalAround(b.End, i)) > 0 {
			doubleBonds = append(doubleBonds, i)
		}
	}
	return atoms, doubleBonds
}

// directionalAround returns the directional bonds on atom other than skip.
func (m *Molecule) directionalAround(atom, skip int) []int {
	var out []int
	for _, nb := range m.adj[atom] {
		if nb.Bond != skip && m.bonds[nb.Bond].Direction != DirNone {
			out = append(out, nb.Bond)
		}
	}
	return out
}

// StereoIsomers enumerates up to limit stereo variants of m by flipping chiral
// tags and double-bond configurations.  Element 0 is always m itself; the
// rest follow the binary order of flip masks and are de-duplicated.  A
// molecule without stereo elements yields a single entry.
func StereoIsomers(m *Molecule, limit int) []*Molecule {
	out := []*Molecule{m}
	if limit <= 1 {
		return out
	}
	centers, doubles := StereoCenters(m)
	k := len(centers) + len(doubles)
	if k == 0 {
		return out
	}

	seen := map[string]bool{stereoKey(m.atoms, m.bonds): true}
	total := 1 << uint(min(k, 20))
	for mask := 1; mask < total && len(out) < limit; mask++ {
		atoms := append([]Atom(nil), m.atoms...)
		bonds := append([]Bond(nil), m.bonds...)
		for j := 0; j < k; j++ {
			if mask&(1<<uint(j)) == 0 {
				continue
			}
			if j < len(centers) {
				atoms[centers[j]].Chirality = atoms[centers[j]].Chirality.Flip()
				continue
			}
			db := doubles[j-len(centers)]
			side := m.bonds[db].Begin
			if len(m.directionalAround(side, db)) == 0 {
				side = m.bonds[db].End
			}
			for _, bi := range m.directionalAround(side, db) {
				bonds[bi].Direction = bonds[bi].Direction.Flip()
			}
		}
		key := stereoKey(atoms, bonds)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, newMolecule(atoms, bonds))
	}
	return out
}

func stereoKey(atoms []Atom, bonds []Bond) string {
	var sb strings.Builder
	for _, a := range atoms {
		sb.WriteString(strconv.Itoa(int(a.Chirality)))
	}
	sb.WriteByte('|')
	for _, b := range bonds {
		sb.WriteString(strconv.Itoa(int(b.Direction)))
	}
	return sb.String()
}

//Personal.AI order the ending
