package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func TestParseSMILES_Simple(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, 2, m.NumBonds())
	assert.Equal(t, 8, m.Atom(2).AtomicNum)
	assert.Equal(t, 3, m.ImplicitHs(0))
	assert.Equal(t, 2, m.ImplicitHs(1))
	assert.Equal(t, 1, m.ImplicitHs(2))
	assert.True(t, m.IsConnected())
}

func TestParseSMILES_Aromatic(t *testing.T) {
	m := MustParseSMILES("c1ccccc1")
	assert.Equal(t, 6, m.NumAtoms())
	assert.Equal(t, 6, m.NumBonds())
	for i := 0; i < m.NumBonds(); i++ {
		assert.Equal(t, BondAromatic, m.Bond(i).Order)
		assert.True(t, m.Bond(i).InRing)
	}
	assert.Equal(t, 1, m.ImplicitHs(0))
}

func TestParseSMILES_AromaticBridgeDemoted(t *testing.T) {
	m := MustParseSMILES("c1ccccc1c1ccccc1")
	b, ok := m.BondBetween(5, 6)
	require.True(t, ok)
	assert.Equal(t, BondSingle, m.Bond(b).Order)
	assert.False(t, m.Bond(b).InRing)
}

func TestParseSMILES_KekuleRingsAromatize(t *testing.T) {
	groups := [][]string{
		{"c1ccccc1", "C1=CC=CC=C1", "C=1C=CC=CC1"},
		{"c1ccncc1", "C1=CC=NC=C1"},
		{"Cc1ccccc1", "CC1=CC=CC=C1"},
		{"c1ccc2ccccc2c1", "C1=CC=C2C=CC=CC2=C1", "C1=CC2=CC=CC=C2C=C1"},
	}
	for _, g := range groups {
		want := CanonicalSMILES(MustParseSMILES(g[0]))
		for _, s := range g[1:] {
			assert.Equal(t, want, CanonicalSMILES(MustParseSMILES(s)), "%s vs %s", g[0], s)
		}
	}

	m := MustParseSMILES("C1=CC=CC=C1")
	for i := 0; i < m.NumAtoms(); i++ {
		assert.True(t, m.Atom(i).Aromatic)
		assert.Equal(t, 1, m.ImplicitHs(i))
	}
}

func TestParseSMILES_NonAromaticRingsKept(t *testing.T) {
	for _, smi := range []string{"O=C1C=CC(=O)C=C1", "C1=CCC=CC1", "C1=CC=CC=CC=C1", "CC1=CC(=O)CCC1"} {
		m := MustParseSMILES(smi)
		for i := 0; i < m.NumAtoms(); i++ {
			assert.False(t, m.Atom(i).Aromatic, smi)
		}
	}
}

func TestParseSMILES_Bracket(t *testing.T) {
	m := MustParseSMILES("[NH4+]")
	a := m.Atom(0)
	assert.Equal(t, "N", a.Symbol)
	assert.Equal(t, 1, a.Charge)
	assert.Equal(t, 4, a.ExplicitH)
	assert.True(t, a.Bracket)
	assert.Equal(t, 0, m.ImplicitHs(0))

	m = MustParseSMILES("[13CH3-]")
	assert.Equal(t, -1, m.Atom(0).Charge)
	assert.Equal(t, 3, m.Atom(0).ExplicitH)

	m = MustParseSMILES("[Fe++]")
	assert.Equal(t, 2, m.Atom(0).Charge)

	m = MustParseSMILES("c1cc[nH]c1")
	assert.True(t, m.Atom(3).Aromatic)
	assert.Equal(t, 1, m.Atom(3).ExplicitH)
}

func TestParseSMILES_Stereo(t *testing.T) {
	m := MustParseSMILES("C[C@@H](O)C(=O)O")
	assert.Equal(t, ChiralCW, m.Atom(1).Chirality)
	assert.True(t, m.HasStereo())

	m = MustParseSMILES("F/C=C\\F")
	assert.Equal(t, DirUp, m.Bond(0).Direction)
	assert.Equal(t, DirDown, m.Bond(2).Direction)
	assert.Equal(t, BondDouble, m.Bond(1).Order)
}

func TestParseSMILES_RingClosures(t *testing.T) {
	m := MustParseSMILES("C%10CC%10")
	assert.Equal(t, 3, m.NumBonds())
	rings, err := m.SSSR()
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Equal(t, []int{0, 1, 2}, rings[0].Atoms)

	m = MustParseSMILES("C=1CCC1")
	b, ok := m.BondBetween(0, 3)
	require.True(t, ok)
	assert.Equal(t, BondDouble, m.Bond(b).Order)
}

func TestParseSMILES_Components(t *testing.T) {
	m := MustParseSMILES("CC.O")
	assert.False(t, m.IsConnected())
	assert.Equal(t, [][]int{{0, 1}, {2}}, m.Components())
}

func TestParseSMILES_Invalid(t *testing.T) {
	bad := []string{"", "   ", "C1CC", "C((C)", "CC)", "X", "[Xx]", "C==C", "C-", "=C", "C%1", "[C", "C11", "c1cxc1", "(C)"}
	for _, s := range bad {
		_, err := ParseSMILES(s)
		require.Error(t, err, s)
		assert.True(t, errors.IsCode(err, errors.CodeMoleculeInvalidSMILES), s)
	}
}

func TestSSSR_FusedAndCage(t *testing.T) {
	cases := []struct {
		smiles string
		sizes  []int
	}{
		{"CCO", nil},
		{"c1ccc2ccccc2c1", []int{6, 6}},
		{"C1CC2CC1C2", []int{4, 5}},
		{"C12C3C4C1C5C2C3C45", []int{4, 4, 4, 4, 4}},
		{"C1CCC2(CC1)CCCC2", []int{5, 6}},
	}
	for _, tc := range cases {
		m := MustParseSMILES(tc.smiles)
		rings, err := m.SSSR()
		require.NoError(t, err, tc.smiles)
		require.Len(t, rings, len(tc.sizes), tc.smiles)
		for i, r := range rings {
			assert.Len(t, r.Atoms, tc.sizes[i], tc.smiles)
			assert.Len(t, r.Bonds, tc.sizes[i], tc.smiles)
		}
	}
}

func TestCanonicalSMILES_Known(t *testing.T) {
	assert.Equal(t, "CCO", CanonicalSMILES(MustParseSMILES("OCC")))
	assert.Equal(t, "c1ccccc1", CanonicalSMILES(MustParseSMILES("c1ccccc1")))
	assert.Equal(t, "", CanonicalSMILES(nil))
}

func TestCanonicalSMILES_InvariantUnderAtomOrder(t *testing.T) {
	groups := [][]string{
		{"CCO", "OCC", "C(O)C"},
		{"Cc1ccccc1", "c1ccccc1C", "c1cc(C)ccc1"},
		{"OC(=O)C1CC1", "C1CC1C(O)=O", "O=C(O)C1CC1"},
		{"c1ccc2ccccc2c1", "c1cc2ccccc2cc1", "c12ccccc1cccc2"},
		{"CC(C)(C)N", "NC(C)(C)C", "C(C)(C)(N)C"},
		{"C[NH3+]", "[NH3+]C"},
		{"F/C=C/F", "F/C=C\\F", "FC=CF"},
		{"C1CC1", "C1C(C1)"},
	}
	for _, g := range groups {
		want := CanonicalSMILES(MustParseSMILES(g[0]))
		for _, s := range g[1:] {
			assert.Equal(t, want, CanonicalSMILES(MustParseSMILES(s)), "%s vs %s", g[0], s)
		}
	}
}

func TestCanonicalSMILES_Distinguishes(t *testing.T) {
	assert.NotEqual(t,
		CanonicalSMILES(MustParseSMILES("CCCO")),
		CanonicalSMILES(MustParseSMILES("CC(C)O")))
	assert.NotEqual(t,
		CanonicalSMILES(MustParseSMILES("C=CC")),
		CanonicalSMILES(MustParseSMILES("CCC")))
}

func TestCanonicalSMILES_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"CC(=O)Oc1ccccc1C(=O)O",
		"c1ccc2[nH]ccc2c1",
		"C1CC2CCC1CC2",
		"O=C1CCCCC1",
		"C#N",
		"[Na+].[Cl-]",
		"c1ccc(-c2ccccc2)cc1",
	} {
		m := MustParseSMILES(s)
		canon := CanonicalSMILES(m)
		back, err := ParseSMILES(canon)
		require.NoError(t, err, "%s -> %s", s, canon)
		assert.Equal(t, m.NumAtoms(), back.NumAtoms(), s)
		assert.Equal(t, m.NumBonds(), back.NumBonds(), s)
		assert.Equal(t, canon, CanonicalSMILES(back), s)
	}
}

func TestFragment(t *testing.T) {
	m := MustParseSMILES("Cc1ccccc1")
	frag, mapping, err := Fragment(m, []int{6, 1, 2, 3, 4, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, mapping)
	assert.Equal(t, 6, frag.NumBonds())
	assert.Equal(t, "c1ccccc1", CanonicalSMILES(frag))

	sig, err := FragmentSMILES(m, []int{0, 1}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, "Cc", sig)

	_, _, err = Fragment(m, []int{0}, []int{1})
	assert.Error(t, err)
	_, _, err = Fragment(m, nil, nil)
	assert.Error(t, err)
}

func TestFeatures(t *testing.T) {
	m := MustParseSMILES("c1ccccc1")
	f := AtomFeatures(m, 0)
	require.Len(t, f, AtomFDim)
	assert.Equal(t, 39, AtomFDim)
	assert.Equal(t, 1.0, f[0])    // C
	assert.Equal(t, 1.0, f[23+2]) // degree 2
	assert.Equal(t, 1.0, f[29+4]) // neutral
	assert.Equal(t, 1.0, f[34])   // no chirality
	assert.Equal(t, 1.0, f[38])   // aromatic

	sum := 0.0
	for _, v := range f {
		sum += v
	}
	assert.Equal(t, 5.0, sum)

	bf := BondFeatures(m, 0)
	require.Len(t, bf, BondFDim)
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1, 0, 0}, bf)

	u := AtomFeatures(MustParseSMILES("[Pt]"), 0)
	assert.Equal(t, 1.0, u[22])
}

func TestFeaturize(t *testing.T) {
	g := Featurize(MustParseSMILES("CC(=O)O"))
	assert.Equal(t, 4, g.NumAtoms())
	assert.Equal(t, 3, g.NumBonds())
	assert.Equal(t, [2]int{1, 2}, g.Bonds[1])
	assert.Equal(t, 1.0, g.BondFeats[1][1]) // double
	assert.Len(t, g.Atoms[3], AtomFDim)

	single := Featurize(MustParseSMILES("O"))
	assert.Equal(t, 1, single.NumAtoms())
	assert.Empty(t, single.Bonds)
}

func TestStereoIsomers(t *testing.T) {
	assert.Len(t, StereoIsomers(MustParseSMILES("CCO"), 8), 1)

	m := MustParseSMILES("C[C@@H](O)F")
	isos := StereoIsomers(m, 8)
	require.Len(t, isos, 2)
	assert.Same(t, m, isos[0])
	assert.Equal(t, ChiralCCW, isos[1].Atom(1).Chirality)

	assert.Len(t, StereoIsomers(MustParseSMILES("F/C=C/F"), 8), 2)
	assert.Len(t, StereoIsomers(MustParseSMILES("C[C@H](F)[C@@H](O)Cl"), 8), 4)
	assert.Len(t, StereoIsomers(MustParseSMILES("C[C@H](F)[C@@H](O)Cl"), 3), 3)
	assert.Len(t, StereoIsomers(m, 1), 1)
}

func TestValenceOK(t *testing.T) {
	assert.True(t, MustParseSMILES("CC(C)(C)C").ValenceOK(1))
	assert.False(t, MustParseSMILES("CC(C)(C)(C)C").ValenceOK(1))
	assert.True(t, MustParseSMILES("c1ccoc1").ValenceOK(3))
	assert.True(t, MustParseSMILES("C[N+](C)(C)C").ValenceOK(1))
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder()
	b.AddAtom(Atom{Symbol: "C"})
	assert.Equal(t, -1, b.AddBond(0, 0, BondSingle, DirNone))
	_, err := b.Build()
	assert.Error(t, err)

	b = NewBuilder()
	b.AddAtom(Atom{Symbol: "C"})
	b.AddAtom(Atom{Symbol: "O"})
	b.AddBond(0, 1, BondDouble, DirNone)
	b.AddBond(1, 0, BondSingle, DirNone)
	_, err = b.Build()
	assert.Error(t, err)
}

//Personal.AI order the ending
