package molecule

// ─────────────────────────────────────────────────────────────────────────────
// Aromaticity perception
// ─────────────────────────────────────────────────────────────────────────────

// aromatize rewrites six-membered Kekulé rings of uncharged carbon and
// pyridine-type nitrogen into aromatic form, so C1=CC=CC=C1 and c1ccccc1 give
// the same molecule.  A ring qualifies when every atom contributes exactly one
// π bond, either a double bond inside the ring or membership of a ring already
// found aromatic, and no atom carries an exocyclic double bond.  Rings are
// revisited until nothing changes, which lets fused systems written with the
// shared bond single aromatize through their neighbour.  Five-membered
// heteroaromatics are left as written.
func aromatize(m *Molecule) *Molecule {
	rings, err := m.SSSR()
	if err != nil || len(rings) == 0 {
		return m
	}

	atoms := append([]Atom(nil), m.atoms...)
	bonds := append([]Bond(nil), m.bonds...)
	changed := false
	for progress := true; progress; {
		progress = false
		for _, r := range rings {
			if !kekuleBenzenoid(m, atoms, bonds, r) {
				continue
			}
			for _, a := range r.Atoms {
				atoms[a].Aromatic = true
			}
			for _, b := range r.Bonds {
				bonds[b].Order = BondAromatic
				bonds[b].Direction = DirNone
			}
			progress, changed = true, true
		}
	}
	if !changed {
		return m
	}
	return newMolecule(atoms, bonds)
}

func kekuleBenzenoid(m *Molecule, atoms []Atom, bonds []Bond, r Ring) bool {
	if len(r.Atoms) != 6 || len(r.Bonds) != 6 {
		return false
	}
	inRing := make(map[int]bool, len(r.Bonds))
	for _, b := range r.Bonds {
		switch bonds[b].Order {
		case BondSingle, BondDouble, BondAromatic:
		default:
			return false
		}
		inRing[b] = true
	}

	allAromatic := true
	for _, i := range r.Atoms {
		a := atoms[i]
		if a.Charge != 0 {
			return false
		}
		switch a.Symbol {
		case "C":
		case "N":
			if len(m.adj[i]) != 2 || a.ExplicitH != 0 {
				return false
			}
		default:
			return false
		}
		if !a.Aromatic {
			allAromatic = false
		}

		ringDouble, exoDouble := 0, 0
		for _, nb := range m.adj[i] {
			if bonds[nb.Bond].Order != BondDouble {
				continue
			}
			if inRing[nb.Bond] {
				ringDouble++
			} else {
				exoDouble++
			}
		}
		if exoDouble > 0 {
			return false
		}
		switch {
		case ringDouble == 1:
		case ringDouble == 0 && a.Aromatic:
		default:
			return false
		}
	}
	return !allAromatic
}

//Personal.AI order the ending
