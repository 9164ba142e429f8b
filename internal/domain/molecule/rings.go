package molecule

import (
	"math/bits"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Ring bonds
// ─────────────────────────────────────────────────────────────────────────────

// bridges marks every bond whose removal disconnects its component.  All
// other bonds lie on at least one cycle.
func (m *Molecule) bridges() []bool {
	n := len(m.atoms)
	out := make([]bool, len(m.bonds))
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	var visit func(u, viaBond int)
	visit = func(u, viaBond int) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, nb := range m.adj[u] {
			if nb.Bond == viaBond {
				continue
			}
			if disc[nb.Atom] < 0 {
				visit(nb.Atom, nb.Bond)
				low[u] = min(low[u], low[nb.Atom])
				if low[nb.Atom] > disc[u] {
					out[nb.Bond] = true
				}
			} else {
				low[u] = min(low[u], disc[nb.Atom])
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] < 0 {
			visit(i, -1)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// bitset over bond indices
// ─────────────────────────────────────────────────────────────────────────────

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) get(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) xor(o bitset) {
	for i := range b {
		b[i] ^= o[i]
	}
}

// lowest returns the index of the lowest set bit, or -1 when empty.
func (b bitset) lowest() int {
	for i, w := range b {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

func (b bitset) key() string {
	var sb strings.Builder
	for _, w := range b {
		sb.WriteString(strconv.FormatUint(w, 36))
		sb.WriteByte('.')
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// SSSR
// ─────────────────────────────────────────────────────────────────────────────

// SSSR returns the smallest set of smallest rings, ordered by size then atom
// list.  The result is computed once and cached.  Its length always equals the
// cyclomatic number m − n + c; when the basis cannot be completed an error
// with code MOL_016 is returned.
func (m *Molecule) SSSR() ([]Ring, error) {
	m.ringOnce.Do(func() {
		m.rings, m.ringErr = m.perceiveRings()
	})
	return m.rings, m.ringErr
}

type cycle struct {
	atoms []int
	bonds []int
	mask  bitset
}

// perceiveRings builds a minimum cycle basis from Horton's candidate set:
// for every root atom r and ring bond (x, y), the cycle formed by the BFS
// paths r→x, r→y and the bond itself, kept when the paths meet only at r.
// Candidates are sorted by (size, atoms, bonds) and accepted greedily when
// independent over GF(2).
func (m *Molecule) perceiveRings() ([]Ring, error) {
	need := len(m.bonds) - len(m.atoms) + len(m.Components())
	if need <= 0 {
		return nil, nil
	}

	ringAtoms := make([]bool, len(m.atoms))
	for _, b := range m.bonds {
		if b.InRing {
			ringAtoms[b.Begin] = true
			ringAtoms[b.End] = true
		}
	}

	seen := make(map[string]bool)
	var cands []cycle
	for r := range m.atoms {
		if !ringAtoms[r] {
			continue
		}
		dist, parent, parentBond := m.ringBFS(r)
		for e, b := range m.bonds {
			if !b.InRing || dist[b.Begin] < 0 || dist[b.End] < 0 {
				continue
			}
			if parentBond[b.Begin] == e || parentBond[b.End] == e {
				continue
			}
			c, ok := m.hortonCycle(r, e, parent, parentBond)
			if !ok {
				continue
			}
			k := c.mask.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			cands = append(cands, c)
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if len(a.bonds) != len(b.bonds) {
			return len(a.bonds) < len(b.bonds)
		}
		if c := compareInts(a.atoms, b.atoms); c != 0 {
			return c < 0
		}
		return compareInts(a.bonds, b.bonds) < 0
	})

	basis := make(map[int]bitset)
	var rings []Ring
	for _, c := range cands {
		if len(rings) == need {
			break
		}
		v := append(bitset(nil), c.mask...)
		for {
			p := v.lowest()
			if p < 0 {
				break
			}
			row, ok := basis[p]
			if !ok {
				basis[p] = v
				rings = append(rings, Ring{Atoms: c.atoms, Bonds: c.bonds})
				break
			}
			v.xor(row)
		}
	}
	if len(rings) != need {
		return nil, errors.Newf(errors.ErrCodeRingPerceptionFailed,
			"ring basis incomplete: found %d of %d rings", len(rings), need)
	}
	return rings, nil
}

// ringBFS runs a breadth-first search from root over ring bonds only.
// Neighbours are expanded in ascending atom order so paths are reproducible.
func (m *Molecule) ringBFS(root int) (dist, parent, parentBond []int) {
	n := len(m.atoms)
	dist = make([]int, n)
	parent = make([]int, n)
	parentBond = make([]int, n)
	for i := range dist {
		dist[i], parent[i], parentBond[i] = -1, -1, -1
	}
	dist[root] = 0
	queue := []int{root}
	for q := 0; q < len(queue); q++ {
		u := queue[q]
		for _, nb := range m.adj[u] {
			if !m.bonds[nb.Bond].InRing || dist[nb.Atom] >= 0 {
				continue
			}
			dist[nb.Atom] = dist[u] + 1
			parent[nb.Atom] = u
			parentBond[nb.Atom] = nb.Bond
			queue = append(queue, nb.Atom)
		}
	}
	return dist, parent, parentBond
}

func (m *Molecule) hortonCycle(root, e int, parent, parentBond []int) (cycle, bool) {
	b := m.bonds[e]
	pathX := pathToRoot(b.Begin, parent)
	pathY := pathToRoot(b.End, parent)

	onX := make(map[int]bool, len(pathX))
	for _, a := range pathX {
		onX[a] = true
	}
	for _, a := range pathY {
		if a != root && onX[a] {
			return cycle{}, false
		}
	}

	mask := newBitset(len(m.bonds))
	mask.set(e)
	bondList := []int{e}
	atomSet := map[int]bool{}
	for _, path := range [][]int{pathX, pathY} {
		for _, a := range path {
			atomSet[a] = true
			if pb := parentBond[a]; pb >= 0 && !mask.get(pb) {
				mask.set(pb)
				bondList = append(bondList, pb)
			}
		}
	}
	atoms := make([]int, 0, len(atomSet))
	for a := range atomSet {
		atoms = append(atoms, a)
	}
	sort.Ints(atoms)
	sort.Ints(bondList)
	if len(atoms) != len(bondList) {
		return cycle{}, false
	}
	return cycle{atoms: atoms, bonds: bondList, mask: mask}, true
}

func pathToRoot(a int, parent []int) []int {
	path := []int{a}
	for parent[a] >= 0 {
		a = parent[a]
		path = append(path, a)
	}
	return path
}

func compareInts(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

//Personal.AI order the ending
