package testutil

// FixtureSMILES is a small drug-like corpus covering chains, single and fused
// rings, heteroaromatics, charges, hub atoms and stereo markers.  Every entry
// parses and decomposes.
var FixtureSMILES = []string{
	"CCO",
	"CC(=O)O",
	"c1ccccc1",
	"Cc1ccccc1",
	"Oc1ccccc1",
	"CC(C)C",
	"CCN(CC)CC",
	"C1CCCCC1",
	"C1CCNCC1",
	"c1ccncc1",
	"c1ccc2ccccc2c1",
	"CC(=O)Nc1ccc(O)cc1",
	"CC(=O)Oc1ccccc1C(=O)O",
	"CN1C=NC2=C1C(=O)N(C(=O)N2C)C",
	"c1ccc(cc1)C(=O)O",
	"OCC(O)CO",
	"C1CC1",
	"C1CCC1",
	"CC#N",
	"C=CC=C",
	"CC(C)(C)O",
	"c1ccoc1",
	"c1ccsc1",
	"c1cc[nH]c1",
	"Clc1ccccc1",
	"Brc1ccccc1",
	"FC(F)(F)c1ccccc1",
	"NC(=O)c1ccccc1",
	"CCOC(=O)C",
	"C1CCC2CCCCC2C1",
	"c1ccc2[nH]ccc2c1",
	"CC(N)C(=O)O",
	"N[C@@H](C)C(=O)O",
	"C/C=C/C",
	"OC(=O)/C=C\\C(=O)O",
	"CS(=O)(=O)N",
	"C1COCCO1",
	"c1ccc(cc1)-c1ccccc1",
	"C1CCC2(CC1)CCCC2",
	"CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	"O=C1CCCCC1",
	"CCCCCCCC",
	"C#CC",
	"CN(C)C=O",
	"c1ccc2ncccc2c1",
	"OC1CCCCC1O",
	"CC1=CC(=O)CCC1",
	"C[N+](C)(C)C",
	"CC(=O)[O-]",
	"C1CC2CCC1C2",
	"O",
}

// StereoFixtures are the entries of FixtureSMILES carrying stereo markers.
var StereoFixtures = []string{
	"N[C@@H](C)C(=O)O",
	"C/C=C/C",
	"OC(=O)/C=C\\C(=O)O",
}

// InvalidSMILES are inputs that fail to parse or decompose.
var InvalidSMILES = []string{
	"",
	"C1CC",
	"C(C",
	"CC.O",
	"[Xx]",
	"c1cc",
}

// OverValentSMILES parse but carry an atom beyond its allowed valence, so they
// fail decomposition.
var OverValentSMILES = []string{
	"C(C)(C)(C)(C)C",
	"C#C#C",
	"FC(F)(F)(F)F",
	"CN(=O)(=O)=O",
}

//Personal.AI order the ending
