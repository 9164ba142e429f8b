package vocabulary

import (
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
)

// TemplateAtom is one atom of a cluster template.
type TemplateAtom struct {
	Symbol    string `json:"symbol"`
	Charge    int    `json:"charge,omitempty"`
	Aromatic  bool   `json:"aromatic,omitempty"`
	ExplicitH int    `json:"explicit_h,omitempty"`
	Bracket   bool   `json:"bracket,omitempty"`
}

// TemplateBond is one bond of a cluster template.
type TemplateBond struct {
	Begin int                `json:"begin"`
	End   int                `json:"end"`
	Order molecule.BondOrder `json:"order"`
}

// Template is the graph a vocabulary entry stands for, parsed from its
// signature.  Attachable lists the atoms that can take one more bond.
type Template struct {
	Signature  string         `json:"signature"`
	Atoms      []TemplateAtom `json:"atoms"`
	Bonds      []TemplateBond `json:"bonds"`
	Attachable []int          `json:"attachable"`

	mol *molecule.Molecule
}

// NewTemplate parses signature into a Template.
func NewTemplate(signature string) (*Template, error) {
	mol, err := molecule.ParseSMILES(signature)
	if err != nil {
		return nil, err
	}
	t := &Template{Signature: signature, mol: mol}
	for i := 0; i < mol.NumAtoms(); i++ {
		a := mol.Atom(i)
		t.Atoms = append(t.Atoms, TemplateAtom{
			Symbol:    a.Symbol,
			Charge:    a.Charge,
			Aromatic:  a.Aromatic,
			ExplicitH: a.ExplicitH,
			Bracket:   a.Bracket,
		})
		if mol.BondValence(i)+a.ExplicitH < molecule.MaxValence(a.Symbol, a.Charge) {
			t.Attachable = append(t.Attachable, i)
		}
	}
	for i := 0; i < mol.NumBonds(); i++ {
		b := mol.Bond(i)
		t.Bonds = append(t.Bonds, TemplateBond{Begin: b.Begin, End: b.End, Order: b.Order})
	}
	if t.Attachable == nil {
		t.Attachable = []int{}
	}
	return t, nil
}

// Molecule returns the template graph.  It is shared and must be treated as
// read-only.
func (t *Template) Molecule() *molecule.Molecule { return t.mol }

// NumAtoms returns the template size.
func (t *Template) NumAtoms() int { return len(t.Atoms) }

//Personal.AI order the ending
