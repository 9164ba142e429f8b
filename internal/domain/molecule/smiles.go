package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// MaxSMILESLength bounds the input accepted by ParseSMILES.
const MaxSMILESLength = 5000

// ---------------------------------------------------------------------------
// SMILES reader
// ---------------------------------------------------------------------------

type ringOpening struct {
	atom     int
	order    BondOrder
	explicit bool
	dir      BondDirection
}

type smilesParser struct {
	src string
	pos int
	b   *Builder

	prev   int
	branch []int
	rings  map[int]ringOpening

	bondSet   bool
	bondOrder BondOrder
	bondDir   BondDirection
}

// ParseSMILES reads a SMILES string into a Molecule.
//
// Supported: organic-subset and aromatic atoms, bracket atoms (isotope
// ignored, chirality @/@@, hydrogen count, charge, atom class ignored),
// bonds - = # : / \, branches, ring closures 0-9 and %nn, and dot-separated
// components.  Bonds written implicitly between two aromatic atoms are
// aromatic; aromatic bonds that end up outside any ring are demoted to single.
// Six-membered Kekulé rings are perceived as aromatic.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.InvalidSMILES(smiles, "SMILES string is empty")
	}
	if len(s) > MaxSMILESLength {
		return nil, errors.InvalidSMILES(smiles[:32]+"…", fmt.Sprintf("SMILES exceeds maximum length (%d)", MaxSMILESLength))
	}

	p := &smilesParser{src: s, b: NewBuilder(), prev: -1, rings: make(map[int]ringOpening)}
	if err := p.parse(); err != nil {
		return nil, errors.InvalidSMILES(smiles, err.Error())
	}
	m, err := p.b.Build()
	if err != nil {
		return nil, errors.InvalidSMILES(smiles, err.Error())
	}
	return aromatize(m), nil
}

// MustParseSMILES is ParseSMILES that panics on error.  Intended for tests
// and static tables.
func MustParseSMILES(smiles string) *Molecule {
	m, err := ParseSMILES(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errorf("branch without preceding atom")
			}
			p.branch = append(p.branch, p.prev)
			p.pos++

		case c == ')':
			if len(p.branch) == 0 {
				return p.errorf("unbalanced ')'")
			}
			if p.bondSet {
				return p.errorf("dangling bond before ')'")
			}
			p.prev = p.branch[len(p.branch)-1]
			p.branch = p.branch[:len(p.branch)-1]
			p.pos++

		case strings.IndexByte("-=#:/\\", c) >= 0:
			if p.bondSet {
				return p.errorf("consecutive bond symbols")
			}
			p.bondSet = true
			p.bondOrder, p.bondDir = bondSymbol(c)
			p.pos++

		case c == '.':
			if p.bondSet {
				return p.errorf("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++

		case c == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.errorf("'%%' must be followed by two digits")
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			p.pos += 3
			if err := p.ringClosure(n); err != nil {
				return err
			}

		case isDigit(c):
			p.pos++
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}

		case c == '[':
			a, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(a); err != nil {
				return err
			}

		case isLetter(c):
			a, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(a); err != nil {
				return err
			}

		default:
			return p.errorf("unexpected character %q", c)
		}
	}

	switch {
	case p.b.NumAtoms() == 0:
		return fmt.Errorf("no atoms found")
	case p.bondSet:
		return fmt.Errorf("dangling bond at end of input")
	case len(p.branch) > 0:
		return fmt.Errorf("unclosed branch")
	case len(p.rings) > 0:
		return fmt.Errorf("unclosed ring bond")
	}
	return nil
}

func (p *smilesParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("position %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *smilesParser) resetBond() {
	p.bondSet = false
	p.bondOrder = 0
	p.bondDir = DirNone
}

func (p *smilesParser) implicitOrder(a, b int) BondOrder {
	if p.b.atoms[a].Aromatic && p.b.atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) addAtom(a Atom) error {
	idx := p.b.AddAtom(a)
	if p.prev >= 0 {
		order := p.bondOrder
		if !p.bondSet || order == 0 {
			order = p.implicitOrder(p.prev, idx)
		}
		p.b.AddBond(p.prev, idx, order, p.bondDir)
		if p.b.err != nil {
			return p.b.err
		}
	} else if p.bondSet {
		return p.errorf("bond without preceding atom")
	}
	p.resetBond()
	p.prev = idx
	return nil
}

func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.errorf("ring bond %d without preceding atom", n)
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpening{atom: p.prev, order: p.bondOrder, explicit: p.bondSet && p.bondOrder != 0, dir: p.bondDir}
		p.resetBond()
		return nil
	}
	delete(p.rings, n)

	order := open.order
	closingExplicit := p.bondSet && p.bondOrder != 0
	switch {
	case open.explicit && closingExplicit && open.order != p.bondOrder:
		return p.errorf("conflicting bond orders on ring bond %d", n)
	case closingExplicit:
		order = p.bondOrder
	case !open.explicit:
		order = p.implicitOrder(open.atom, p.prev)
	}
	dir := open.dir
	if p.bondDir != DirNone {
		// A marker written at the closing atom is relative to that atom.
		dir = p.bondDir.Flip()
	}
	p.b.AddBond(open.atom, p.prev, order, dir)
	if p.b.err != nil {
		return p.b.err
	}
	p.resetBond()
	return nil
}

func (p *smilesParser) organicAtom() (Atom, error) {
	c := p.src[p.pos]
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return Atom{Symbol: two}, nil
		}
	}
	sym := string(c)
	if isLower(c) {
		up := strings.ToUpper(sym)
		if !aromaticSubset[up] {
			return Atom{}, p.errorf("invalid aromatic atom %q", sym)
		}
		p.pos++
		return Atom{Symbol: up, Aromatic: true}, nil
	}
	if !organicSubset[sym] {
		return Atom{}, p.errorf("element %q must be written in brackets", sym)
	}
	p.pos++
	return Atom{Symbol: sym}, nil
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	start := p.pos
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, p.errorf("unclosed bracket")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	a := Atom{Bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i >= len(body) || !isLetter(body[i]) {
		return Atom{}, fmt.Errorf("position %d: bracket atom has no element", start)
	}

	if isLower(body[i]) {
		a.Aromatic = true
		if i+1 < len(body) && body[i:i+2] == "se" {
			a.Symbol = "Se"
			i += 2
		} else {
			a.Symbol = strings.ToUpper(body[i : i+1])
			if !aromaticSubset[a.Symbol] {
				return Atom{}, fmt.Errorf("position %d: invalid aromatic element %q", start, body[i:i+1])
			}
			i++
		}
	} else {
		if i+1 < len(body) && isLower(body[i+1]) {
			if _, ok := elements[body[i:i+2]]; ok {
				a.Symbol = body[i : i+2]
				i += 2
			}
		}
		if a.Symbol == "" {
			a.Symbol = body[i : i+1]
			i++
		}
		if _, ok := elements[a.Symbol]; !ok {
			return Atom{}, fmt.Errorf("position %d: unknown element %q", start, a.Symbol)
		}
	}

	if i < len(body) && body[i] == '@' {
		a.Chirality = ChiralCCW
		i++
		if i < len(body) && body[i] == '@' {
			a.Chirality = ChiralCW
			i++
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.ExplicitH = 1
		if i < len(body) && isDigit(body[i]) {
			a.ExplicitH = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		mag := 1
		if i < len(body) && isDigit(body[i]) {
			mag = 0
			for i < len(body) && isDigit(body[i]) {
				mag = mag*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == sym {
				mag++
				i++
			}
		}
		a.Charge = sign * mag
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}

	if i != len(body) {
		return Atom{}, fmt.Errorf("position %d: unexpected %q in bracket atom", start, body[i:])
	}
	return a, nil
}

func bondSymbol(c byte) (BondOrder, BondDirection) {
	switch c {
	case '=':
		return BondDouble, DirNone
	case '#':
		return BondTriple, DirNone
	case ':':
		return BondAromatic, DirNone
	case '/':
		return BondSingle, DirUp
	case '\\':
		return BondSingle, DirDown
	}
	return BondSingle, DirNone
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLower(c byte) bool  { return c >= 'a' && c <= 'z' }
func isLetter(c byte) bool { return isLower(c) || (c >= 'A' && c <= 'Z') }

//Personal.AI order the ending
