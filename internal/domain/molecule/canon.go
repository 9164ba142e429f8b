package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// maxCanonLeaves caps the number of fully-ranked orderings tried while
// breaking ties between symmetric atoms.  Fragments and local assembly
// graphs stay far below it.
const maxCanonLeaves = 256

// ─────────────────────────────────────────────────────────────────────────────
// Canonical SMILES
// ─────────────────────────────────────────────────────────────────────────────

// CanonicalSMILES returns a canonical SMILES for m that ignores atom order,
// chirality and bond direction.  Atom ranks come from iterated neighbourhood
// refinement; remaining ties are broken exhaustively (up to maxCanonLeaves
// orderings) and the lexicographically smallest string wins.  The result
// parses back to an isomorphic graph.
func CanonicalSMILES(m *Molecule) string {
	if m == nil || m.NumAtoms() == 0 {
		return ""
	}
	c := &canonicalizer{m: m}
	c.search(c.initialRanks())
	return c.best
}

type canonicalizer struct {
	m      *Molecule
	best   string
	found  bool
	leaves int
}

// atomKey is the invariant the first ranking is built from.  It includes only
// what the writer emits so isomorphic inputs start from identical classes.
func (c *canonicalizer) atomKey(i int) []int {
	a := c.m.atoms[i]
	arom := 0
	if a.Aromatic {
		arom = 1
	}
	return []int{a.AtomicNum, arom, a.Charge, writtenH(a), len(c.m.adj[i])}
}

func (c *canonicalizer) initialRanks() []int {
	keys := make([][]int, c.m.NumAtoms())
	for i := range keys {
		keys[i] = c.atomKey(i)
	}
	return denseRank(keys)
}

// refine splits rank classes by the multiset of (neighbour rank, bond order)
// until no class splits further.
func (c *canonicalizer) refine(ranks []int) []int {
	classes := countClasses(ranks)
	for {
		keys := make([][]int, len(ranks))
		for i := range ranks {
			nbs := make([]int, 0, len(c.m.adj[i]))
			for _, nb := range c.m.adj[i] {
				nbs = append(nbs, ranks[nb.Atom]*8+int(c.m.bonds[nb.Bond].Order))
			}
			sort.Ints(nbs)
			keys[i] = append([]int{ranks[i]}, nbs...)
		}
		next := denseRank(keys)
		n := countClasses(next)
		if n == classes {
			return next
		}
		ranks, classes = next, n
	}
}

func (c *canonicalizer) search(ranks []int) {
	ranks = c.refine(ranks)

	tied := -1
	counts := make(map[int]int)
	for _, r := range ranks {
		counts[r]++
	}
	for r := 0; r < len(ranks); r++ {
		if counts[r] > 1 {
			tied = r
			break
		}
	}
	if tied < 0 {
		c.leaves++
		s := writeSMILES(c.m, ranks)
		if !c.found || s < c.best {
			c.best, c.found = s, true
		}
		return
	}

	for i, r := range ranks {
		if r != tied {
			continue
		}
		c.search(individualize(ranks, i))
		if c.leaves >= maxCanonLeaves {
			return
		}
	}
}

// individualize gives atom its own class just below the rest of its class.
func individualize(ranks []int, atom int) []int {
	r := ranks[atom]
	out := make([]int, len(ranks))
	for i, x := range ranks {
		switch {
		case x > r:
			out[i] = x + 1
		case x == r && i != atom:
			out[i] = r + 1
		default:
			out[i] = x
		}
	}
	return out
}

func denseRank(keys [][]int) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return compareInts(keys[idx[a]], keys[idx[b]]) < 0 })
	ranks := make([]int, len(keys))
	r := 0
	for k, i := range idx {
		if k > 0 && compareInts(keys[idx[k-1]], keys[i]) != 0 {
			r = k
		}
		ranks[i] = r
	}
	return ranks
}

func countClasses(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// ─────────────────────────────────────────────────────────────────────────────
// Writer
// ─────────────────────────────────────────────────────────────────────────────

type smilesWriter struct {
	m       *Molecule
	rank    []int
	visited []bool
	used    []bool // bonds already placed in the DFS forest or as closures

	children [][]Neighbor
	opening  [][]Neighbor // ring bonds whose digit is opened at this atom
	closing  [][]Neighbor // ring bonds whose digit is closed at this atom

	digits map[int]int // bond → ring digit while open
	inUse  []bool      // ring digits currently open; index 0 unused
	sb     strings.Builder
}

// writeSMILES serialises m walking atoms in rank order.  Every atom must have
// a distinct rank.
func writeSMILES(m *Molecule, rank []int) string {
	n := m.NumAtoms()
	w := &smilesWriter{
		m:        m,
		rank:     rank,
		visited:  make([]bool, n),
		used:     make([]bool, m.NumBonds()),
		children: make([][]Neighbor, n),
		opening:  make([][]Neighbor, n),
		closing:  make([][]Neighbor, n),
		digits:   make(map[int]int),
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return rank[order[a]] < rank[order[b]] })

	first := true
	for _, start := range order {
		if w.visited[start] {
			continue
		}
		w.plan(start, -1)
		if !first {
			w.sb.WriteByte('.')
		}
		first = false
		w.emit(start)
	}
	return w.sb.String()
}

func (w *smilesWriter) sortedNeighbors(a int) []Neighbor {
	nbs := append([]Neighbor(nil), w.m.adj[a]...)
	sort.Slice(nbs, func(x, y int) bool { return w.rank[nbs[x].Atom] < w.rank[nbs[y].Atom] })
	return nbs
}

// plan fixes the spanning forest and ring closures before anything is written.
func (w *smilesWriter) plan(a, via int) {
	w.visited[a] = true
	for _, nb := range w.sortedNeighbors(a) {
		if nb.Bond == via || w.used[nb.Bond] {
			continue
		}
		w.used[nb.Bond] = true
		if w.visited[nb.Atom] {
			w.opening[nb.Atom] = append(w.opening[nb.Atom], Neighbor{Atom: a, Bond: nb.Bond})
			w.closing[a] = append(w.closing[a], nb)
			continue
		}
		w.children[a] = append(w.children[a], nb)
		w.plan(nb.Atom, nb.Bond)
	}
}

func (w *smilesWriter) emit(a int) {
	w.sb.WriteString(atomToken(w.m.atoms[a]))

	for _, nb := range w.closing[a] {
		d := w.digits[nb.Bond]
		delete(w.digits, nb.Bond)
		w.inUse[d] = false
		w.sb.WriteString(ringDigit(d))
	}
	for _, nb := range w.opening[a] {
		d := w.allocDigit()
		w.digits[nb.Bond] = d
		w.sb.WriteString(w.bondToken(nb.Bond))
		w.sb.WriteString(ringDigit(d))
	}

	for i, nb := range w.children[a] {
		last := i == len(w.children[a])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondToken(nb.Bond))
		w.emit(nb.Atom)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; d < len(w.inUse); d++ {
		if !w.inUse[d] {
			w.inUse[d] = true
			return d
		}
	}
	if len(w.inUse) == 0 {
		w.inUse = append(w.inUse, true)
	}
	w.inUse = append(w.inUse, true)
	return len(w.inUse) - 1
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondToken(b int) string {
	bd := w.m.bonds[b]
	bothAromatic := w.m.atoms[bd.Begin].Aromatic && w.m.atoms[bd.End].Aromatic
	switch bd.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	default:
		if bothAromatic {
			return "-"
		}
		return ""
	}
}

// writtenH is the hydrogen count emitted inside brackets.  Organic-subset
// atoms written bare carry none.
func writtenH(a Atom) int {
	if needsBracket(a) {
		return a.ExplicitH
	}
	return 0
}

func needsBracket(a Atom) bool {
	switch {
	case a.Charge != 0:
		return true
	case a.Aromatic:
		return a.Symbol == "Se" || !aromaticSubset[a.Symbol] || (a.Bracket && a.ExplicitH > 0)
	default:
		return !organicSubset[a.Symbol]
	}
}

func atomToken(a Atom) string {
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if !needsBracket(a) {
		return sym
	}
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(sym)
	if h := a.ExplicitH; h > 0 {
		sb.WriteByte('H')
		if h > 1 {
			sb.WriteString(strconv.Itoa(h))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString("-" + strconv.Itoa(-a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}

//Personal.AI order the ending
