package chem

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrSMILES is wrapped by every SMILES syntax error.
var ErrSMILES = errors.New("invalid smiles")

type ringOpening struct {
	atom     int
	order    BondOrder
	explicit bool
}

type smilesParser struct {
	src      string
	pos      int
	mol      *Molecule
	bracket  []bool
	prev     int
	branches []int
	bond     BondOrder
	explicit bool
	rings    map[int]ringOpening
}

// ParseSMILES reads a SMILES string into a molecule with implicit hydrogen
// counts filled in. Stereo marks are accepted and ignored.
func ParseSMILES(s string) (*Molecule, error) {
	p := &smilesParser{src: s, mol: &Molecule{}, prev: -1, rings: map[int]ringOpening{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	p.demoteAcyclicAromaticBonds()
	p.fillImplicitHydrogens()
	return p.mol, nil
}

func (p *smilesParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at %d in %q: %s", ErrSMILES, p.pos, p.src, fmt.Sprintf(format, args...))
}

func (p *smilesParser) parse() error {
	if p.src == "" {
		return p.errorf("empty string")
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errorf("branch without atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return p.errorf("unbalanced ')'")
			}
			if p.explicit {
				return p.errorf("dangling bond")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '$':
			return p.errorf("quadruple bonds are not supported")
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			if p.explicit {
				return p.errorf("consecutive bonds")
			}
			p.explicit = true
			p.bond = bondFromSymbol(c)
			p.pos++
		case c == '.':
			if p.explicit {
				return p.errorf("bond before '.'")
			}
			p.prev = -1
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	switch {
	case len(p.branches) > 0:
		return p.errorf("unclosed branch")
	case len(p.rings) > 0:
		return p.errorf("unclosed ring")
	case p.explicit:
		return p.errorf("dangling bond")
	}
	return nil
}

func bondFromSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return Double
	case '#':
		return Triple
	case ':':
		return Aromatic
	}
	return Single
}

func (p *smilesParser) addAtom(a Atom, bracket bool) error {
	idx := p.mol.AddAtom(a)
	p.bracket = append(p.bracket, bracket)
	if p.prev >= 0 {
		order := p.bond
		if !p.explicit {
			order = p.implicitOrder(p.prev, idx)
		}
		p.mol.AddBond(p.prev, idx, order)
	} else if p.explicit {
		return p.errorf("bond without preceding atom")
	}
	p.prev = idx
	p.explicit = false
	p.bond = 0
	return nil
}

func (p *smilesParser) implicitOrder(i, j int) BondOrder {
	if p.mol.Atoms[i].Aromatic && p.mol.Atoms[j].Aromatic {
		return Aromatic
	}
	return Single
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	if len(rest) >= 2 && (rest[:2] == "Cl" || rest[:2] == "Br") {
		p.pos += 2
		return p.addAtom(Atom{Element: rest[:2]}, false)
	}
	c := rest[0]
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		return p.addAtom(Atom{Element: string(c)}, false)
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		return p.addAtom(Atom{Element: normalizeSymbol(string(c)), Aromatic: true}, false)
	case '*':
		p.pos++
		return p.addAtom(Atom{Element: "*"}, false)
	}
	return p.errorf("unexpected character %q", c)
}

var aromaticBracket = []string{"se", "as", "te", "b", "c", "n", "o", "p", "s"}

func (p *smilesParser) bracketAtom() error {
	end := p.pos + 1
	for end < len(p.src) && p.src[end] != ']' {
		end++
	}
	if end >= len(p.src) {
		return p.errorf("unclosed bracket atom")
	}
	body := p.src[p.pos+1 : end]
	atom, err := parseBracketBody(body)
	if err != nil {
		return p.errorf("%v", err)
	}
	p.pos = end + 1
	return p.addAtom(atom, true)
}

func parseBracketBody(body string) (Atom, error) {
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	var a Atom
	rest := body[i:]
	switch {
	case rest == "":
		return a, errors.New("missing element")
	case rest[0] == '*':
		a.Element = "*"
		i++
	default:
		matched := false
		for _, sym := range aromaticBracket {
			if len(rest) >= len(sym) && rest[:len(sym)] == sym {
				a.Element = normalizeSymbol(sym)
				a.Aromatic = true
				i += len(sym)
				matched = true
				break
			}
		}
		if !matched {
			if rest[0] < 'A' || rest[0] > 'Z' {
				return a, fmt.Errorf("bad element in [%s]", body)
			}
			sym := rest[:1]
			if len(rest) > 1 && rest[1] >= 'a' && rest[1] <= 'z' && IsKnownElement(rest[:2]) {
				sym = rest[:2]
			}
			if !IsKnownElement(sym) {
				return a, fmt.Errorf("unknown element %q", sym)
			}
			a.Element = sym
			i += len(sym)
		}
	}
	// chirality
	if i < len(body) && body[i] == '@' {
		i++
		if i < len(body) && body[i] == '@' {
			i++
		} else if i+1 < len(body) {
			switch body[i : i+2] {
			case "TH", "AL", "SP", "TB", "OH":
				i += 2
				for i < len(body) && body[i] >= '0' && body[i] <= '9' {
					i++
				}
			}
		}
	}
	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.HCount = int(body[i] - '0')
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
		j := i
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		switch {
		case j > i:
			n, _ := strconv.Atoi(body[i:j])
			a.Charge = sign * n
			i = j
		default:
			n := 1
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}
	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
	}
	if i != len(body) {
		return a, fmt.Errorf("trailing characters in [%s]", body)
	}
	return a, nil
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.errorf("ring closure without atom")
	}
	var n int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) {
			return p.errorf("short %% ring number")
		}
		v, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		if err != nil {
			return p.errorf("bad ring number")
		}
		n = v
		p.pos += 3
	} else {
		n = int(p.src[p.pos] - '0')
		p.pos++
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpening{atom: p.prev, order: p.bond, explicit: p.explicit}
		p.explicit = false
		p.bond = 0
		return nil
	}
	delete(p.rings, n)
	order := p.implicitOrder(open.atom, p.prev)
	switch {
	case open.explicit && p.explicit && open.order != p.bond:
		return p.errorf("conflicting ring bond orders")
	case open.explicit:
		order = open.order
	case p.explicit:
		order = p.bond
	}
	if !p.mol.AddBond(open.atom, p.prev, order) {
		return p.errorf("ring closure duplicates a bond")
	}
	p.explicit = false
	p.bond = 0
	return nil
}

// demoteAcyclicAromaticBonds turns aromatic bonds outside rings into single
// bonds, as in the link between two phenyl rings written without '-'.
func (p *smilesParser) demoteAcyclicAromaticBonds() {
	inRing := p.mol.ringBonds()
	for k, b := range p.mol.Bonds {
		if b.Order == Aromatic && !inRing[k] {
			p.mol.Bonds[k].Order = Single
		}
	}
}

func (p *smilesParser) fillImplicitHydrogens() {
	m := p.mol
	for i, a := range m.Atoms {
		if p.bracket[i] {
			continue
		}
		vals, ok := organicSubset[a.Element]
		if !ok {
			continue
		}
		sum := 0
		for _, k := range m.BondsOf(i) {
			sum += m.Bonds[k].Order.valence()
		}
		if a.Aromatic {
			if a.Element == "O" || a.Element == "S" {
				continue
			}
			m.Atoms[i].HCount = max(0, vals[0]-sum-1)
			continue
		}
		for _, v := range vals {
			if v >= sum {
				m.Atoms[i].HCount = v - sum
				break
			}
		}
	}
}
