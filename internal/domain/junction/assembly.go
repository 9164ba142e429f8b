package junction

import (
	"sort"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Attachment is one way of joining a child template onto a host graph by
// identifying a single host atom with a single template atom.
type Attachment struct {
	HostAtom int
	TmplAtom int
	// Graph is the merged host+template molecule.
	Graph *molecule.Molecule
	// Mapping maps template atom index → Graph atom index.
	Mapping []int
	// Local is the subgraph spanned by the host atoms considered plus the
	// template, and Signature its canonical SMILES.
	Local     *molecule.Molecule
	Signature string
}

// Attachments enumerates every valence-valid merge of tmpl onto host at one
// of hostAtoms.  The identified atoms must carry the same element, charge and
// aromaticity.  Results are deduplicated by the signature of the local graph
// and ordered by (host atom, template atom).  A positive limit caps the
// number returned.
func Attachments(host *molecule.Molecule, hostAtoms []int, tmpl *molecule.Molecule, limit int) []Attachment {
	sortedHost := append([]int(nil), hostAtoms...)
	sort.Ints(sortedHost)

	seen := make(map[string]struct{})
	var out []Attachment
	for _, ha := range sortedHost {
		for ta := 0; ta < tmpl.NumAtoms(); ta++ {
			if !molecule.SameLabel(host.Atom(ha), tmpl.Atom(ta)) {
				continue
			}
			merged, mapping, err := molecule.Merge(host, ha, tmpl, ta)
			if err != nil || !merged.ValenceOK(ha) {
				continue
			}
			localAtoms := unionInts(sortedHost, mapping)
			local, _, err := molecule.Fragment(merged, localAtoms, nil)
			if err != nil {
				continue
			}
			sig := molecule.CanonicalSMILES(local)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			out = append(out, Attachment{
				HostAtom:  ha,
				TmplAtom:  ta,
				Graph:     merged,
				Mapping:   mapping,
				Local:     local,
				Signature: sig,
			})
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// TemplateFunc resolves the template molecule of a tree node, normally via
// its vocabulary label.
type TemplateFunc func(node int) (*molecule.Molecule, error)

// SignatureTemplates resolves templates by parsing each cluster signature.
func SignatureTemplates(t *Tree) TemplateFunc {
	return func(node int) (*molecule.Molecule, error) {
		return molecule.ParseSMILES(t.Clusters[node].Signature)
	}
}

// AssemblyCase holds the attachment candidates of one non-root node onto its
// parent cluster.
type AssemblyCase struct {
	Node       int
	Parent     int
	Candidates []*molecule.Molecule
	// Target indexes the candidate equal to the true local graph, or -1.
	Target int
}

// LocalGraph returns the true local graph of node and its parent: the union
// of both clusters as they appear in the molecule.
func LocalGraph(t *Tree, node, parent int) (*molecule.Molecule, error) {
	c, p := t.Clusters[node], t.Clusters[parent]
	frag, _, err := molecule.Fragment(t.Mol, unionInts(c.Atoms, p.Atoms), unionInts(c.Bonds, p.Bonds))
	return frag, err
}

// AssemblyCases enumerates, for every non-root node in decode order, the
// candidates for attaching its template onto its parent cluster.  When no
// candidate reproduces the true local graph the case keeps Target -1 and a
// CodeAssemblyMismatch error is returned alongside the full result.
func AssemblyCases(t *Tree, templates TemplateFunc, limit int) ([]AssemblyCase, error) {
	var cases []AssemblyCase
	var mismatch error
	for _, s := range t.DFSOrder() {
		if !s.Expand {
			continue
		}
		node, parent := s.To, s.From
		p := t.Clusters[parent]
		host, _, err := molecule.Fragment(t.Mol, p.Atoms, p.Bonds)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDecomposition, "parent fragment")
		}
		tmpl, err := templates(node)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDecomposition, "child template")
		}
		truth, err := LocalGraph(t, node, parent)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDecomposition, "local graph")
		}
		want := molecule.CanonicalSMILES(truth)

		hostAtoms := make([]int, host.NumAtoms())
		for i := range hostAtoms {
			hostAtoms[i] = i
		}
		atts := Attachments(host, hostAtoms, tmpl, limit)
		ac := AssemblyCase{Node: node, Parent: parent, Target: -1}
		for i, a := range atts {
			ac.Candidates = append(ac.Candidates, a.Local)
			if a.Signature == want {
				ac.Target = i
			}
		}
		if ac.Target < 0 && mismatch == nil {
			mismatch = errors.AssemblyMismatch("no candidate reproduces the local graph").
				WithDetail(t.Clusters[node].Signature + " onto " + p.Signature)
		}
		cases = append(cases, ac)
	}
	return cases, mismatch
}

func unionInts(a, b []int) []int {
	set := make(map[int]struct{}, len(a)+len(b))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, x := range b {
		set[x] = struct{}{}
	}
	return sortedKeys(set)
}

//Personal.AI order the ending
