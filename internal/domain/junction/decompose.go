package junction

import (
	"fmt"
	"sort"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// hubThreshold is the number of clusters an atom must belong to before it
// becomes its own singleton node.
const hubThreshold = 3

// DecomposeSMILES parses smiles and decomposes the result.  Parse failures
// keep their MOL_001 code.
func DecomposeSMILES(smiles string) (*Tree, error) {
	mol, err := molecule.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	t, err := Decompose(mol)
	if err != nil {
		return nil, err
	}
	t.SMILES = smiles
	return t, nil
}

// Decompose builds the junction tree of mol.  Molecules with an atom over its
// allowed valence are rejected.  The result is deterministic:
//
//  1. rings of the SSSR sharing two or more atoms are merged into one ring
//     cluster (union-find in ring order);
//  2. every bond outside a ring cluster becomes a bond cluster;
//  3. atoms covered by nothing, and atoms shared by three or more clusters,
//     become singletons;
//  4. clusters are sorted by (smallest atom, kind, atom list), which makes the
//     cluster holding atom 0 the root;
//  5. a maximum spanning tree over atom-overlap weights connects them.
func Decompose(mol *molecule.Molecule) (*Tree, error) {
	if mol == nil || mol.NumAtoms() == 0 {
		return nil, errors.Decomposition("molecule is empty")
	}
	if !mol.IsConnected() {
		return nil, errors.Decomposition("molecule has more than one component")
	}
	for i := 0; i < mol.NumAtoms(); i++ {
		if !mol.ValenceOK(i) {
			return nil, errors.Decomposition("atom exceeds its allowed valence").
				WithDetail(fmt.Sprintf("atom %d (%s)", i, mol.Atom(i).Symbol))
		}
	}
	rings, err := mol.SSSR()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecomposition, "ring perception failed")
	}

	clusters := ringClusters(rings)
	clusters = append(clusters, bondClusters(mol, clusters)...)
	clusters = append(clusters, singletonClusters(mol, clusters)...)
	sortClusters(clusters)

	t := &Tree{Mol: mol, Clusters: clusters}
	t.Edges = spanningEdges(mol.NumAtoms(), clusters)

	for i := range t.Clusters {
		c := &t.Clusters[i]
		sig, err := molecule.FragmentSMILES(mol, c.Atoms, c.Bonds)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDecomposition, "cluster fragment")
		}
		c.Signature = sig
		c.Label = -1
	}
	t.fillAttachments()
	return t, nil
}

func ringClusters(rings []molecule.Ring) []Cluster {
	if len(rings) == 0 {
		return nil
	}
	uf := newUnionFind(len(rings))
	for i := range rings {
		for j := i + 1; j < len(rings); j++ {
			if len(intersect(rings[i].Atoms, rings[j].Atoms)) >= 2 {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range rings {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	out := make([]Cluster, 0, len(roots))
	for _, r := range roots {
		atoms := map[int]struct{}{}
		bonds := map[int]struct{}{}
		for _, ri := range groups[r] {
			for _, a := range rings[ri].Atoms {
				atoms[a] = struct{}{}
			}
			for _, b := range rings[ri].Bonds {
				bonds[b] = struct{}{}
			}
		}
		out = append(out, Cluster{Kind: KindRing, Atoms: sortedKeys(atoms), Bonds: sortedKeys(bonds)})
	}
	return out
}

func bondClusters(mol *molecule.Molecule, rings []Cluster) []Cluster {
	covered := make([]bool, mol.NumBonds())
	for _, c := range rings {
		for _, b := range c.Bonds {
			covered[b] = true
		}
	}
	var out []Cluster
	for i := 0; i < mol.NumBonds(); i++ {
		if covered[i] {
			continue
		}
		bd := mol.Bond(i)
		out = append(out, Cluster{
			Kind:  KindBond,
			Atoms: []int{min(bd.Begin, bd.End), max(bd.Begin, bd.End)},
			Bonds: []int{i},
		})
	}
	return out
}

func singletonClusters(mol *molecule.Molecule, clusters []Cluster) []Cluster {
	count := make([]int, mol.NumAtoms())
	for _, c := range clusters {
		for _, a := range c.Atoms {
			count[a]++
		}
	}
	var out []Cluster
	for a, n := range count {
		if n == 0 || n >= hubThreshold {
			out = append(out, Cluster{Kind: KindAtom, Atoms: []int{a}, Bonds: []int{}})
		}
	}
	return out
}

func sortClusters(cs []Cluster) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Atoms[0] != b.Atoms[0] {
			return a.Atoms[0] < b.Atoms[0]
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return compareInts(a.Atoms, b.Atoms) < 0
	})
}

type candidateEdge struct {
	a, b   int
	weight int
}

// spanningEdges proposes edges between clusters sharing an atom and keeps a
// maximum spanning tree.  Clusters around a hub atom connect only through
// the hub singleton.
func spanningEdges(numAtoms int, clusters []Cluster) [][2]int {
	byAtom := make([][]int, numAtoms)
	hub := make([]int, numAtoms)
	for i := range hub {
		hub[i] = -1
	}
	for i, c := range clusters {
		if c.Kind == KindAtom && len(c.Atoms) == 1 {
			hub[c.Atoms[0]] = i
			continue
		}
		for _, a := range c.Atoms {
			byAtom[a] = append(byAtom[a], i)
		}
	}

	weights := make(map[[2]int]int)
	propose := func(x, y, w int) {
		k := [2]int{min(x, y), max(x, y)}
		if w > weights[k] {
			weights[k] = w
		}
	}
	for a, members := range byAtom {
		if h := hub[a]; h >= 0 {
			for _, c := range members {
				propose(c, h, 1)
			}
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				x, y := members[i], members[j]
				propose(x, y, len(intersect(clusters[x].Atoms, clusters[y].Atoms)))
			}
		}
	}

	cands := make([]candidateEdge, 0, len(weights))
	for k, w := range weights {
		cands = append(cands, candidateEdge{a: k[0], b: k[1], weight: w})
	}
	sort.Slice(cands, func(i, j int) bool {
		x, y := cands[i], cands[j]
		if x.weight != y.weight {
			return x.weight > y.weight
		}
		if x.a != y.a {
			return x.a < y.a
		}
		return x.b < y.b
	})

	uf := newUnionFind(len(clusters))
	edges := make([][2]int, 0, len(clusters)-1)
	for _, e := range cands {
		if uf.union(e.a, e.b) {
			edges = append(edges, [2]int{e.a, e.b})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func (t *Tree) fillAttachments() {
	for i := range t.Clusters {
		set := map[int]struct{}{}
		for _, nb := range t.Neighbors(i) {
			for _, a := range intersect(t.Clusters[i].Atoms, t.Clusters[nb].Atoms) {
				set[a] = struct{}{}
			}
		}
		t.Clusters[i].Attachments = sortedKeys(set)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union joins the sets of x and y, keeping the smaller root.  It reports
// whether they were distinct.
func (u *unionFind) union(x, y int) bool {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return false
	}
	if ry < rx {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	return true
}

// intersect returns the common elements of two sorted slices.
func intersect(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
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
