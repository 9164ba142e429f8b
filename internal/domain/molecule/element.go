package molecule

// ─────────────────────────────────────────────────────────────────────────────
// Element table
// ─────────────────────────────────────────────────────────────────────────────

type element struct {
	number   int
	valences []int // allowed neutral valences, ascending
}

var elements = map[string]element{
	"H":  {1, []int{1}},
	"B":  {5, []int{3}},
	"C":  {6, []int{4}},
	"N":  {7, []int{3, 5}},
	"O":  {8, []int{2}},
	"F":  {9, []int{1}},
	"Na": {11, []int{1}},
	"Mg": {12, []int{2}},
	"Al": {13, []int{3}},
	"Si": {14, []int{4}},
	"P":  {15, []int{3, 5}},
	"S":  {16, []int{2, 4, 6}},
	"Cl": {17, []int{1}},
	"K":  {19, []int{1}},
	"Ca": {20, []int{2}},
	"Mn": {25, []int{2, 4, 7}},
	"Fe": {26, []int{2, 3}},
	"Cu": {29, []int{1, 2}},
	"Zn": {30, []int{2}},
	"Se": {34, []int{2, 4, 6}},
	"Br": {35, []int{1}},
	"Sn": {50, []int{2, 4}},
	"I":  {53, []int{1, 3, 5, 7}},
	"Pt": {78, []int{2, 4}},
}

// organicSubset lists the elements that may appear outside brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticSubset lists elements with a lowercase aromatic spelling.
var aromaticSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true, "Se": true,
}

// AtomicNumber returns the atomic number of symbol, or 0 when unknown.
func AtomicNumber(symbol string) int {
	return elements[symbol].number
}

// MaxValence returns the largest bond-order sum the element may carry at the
// given formal charge.  Positive charge on N, O and S frees one extra bond
// (ammonium, oxonium); negative charge on C, N and O removes one.
func MaxValence(symbol string, charge int) int {
	e, ok := elements[symbol]
	if !ok || len(e.valences) == 0 {
		return 8
	}
	v := e.valences[len(e.valences)-1]
	switch symbol {
	case "N", "O", "S", "P":
		v += charge
	case "C", "B":
		v -= abs(charge)
	default:
		v -= charge
	}
	if v < 0 {
		return 0
	}
	return v
}

// defaultValence returns the smallest allowed valence ≥ used.
func defaultValence(symbol string, charge int, used int) int {
	e, ok := elements[symbol]
	if !ok {
		return used
	}
	for _, v := range e.valences {
		if symbol == "N" || symbol == "O" || symbol == "S" || symbol == "P" {
			v += charge
		} else {
			v -= abs(charge)
		}
		if v >= used {
			return v
		}
	}
	return used
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

//Personal.AI order the ending
