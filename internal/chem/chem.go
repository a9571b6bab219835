// Package chem resolves chemical formula strings into element counts and
// molecular weights.
package chem

import (
	"strings"
	"unicode"

	"github.com/JnliaH/ChromaQuant/internal/errs"
)

// Resolver turns a formula such as "C7H16" into element counts and a
// molecular weight.
type Resolver interface {
	Counts(formula string) (map[string]int, error)
	MolecularWeight(formula string) (float64, error)
}

// Default is the built-in resolver.
var Default Resolver = Parser{}

// Parser is the built-in Resolver. It understands element symbols with
// optional counts and nested (), [] groups, e.g. "CH3(CH2)5CH3".
type Parser struct{}

// Counts returns the number of atoms of each element in formula.
func (Parser) Counts(formula string) (map[string]int, error) {
	s := strings.TrimSpace(formula)
	if s == "" {
		return nil, errs.DataShape("empty chemical formula")
	}
	p := &parser{src: []rune(s)}
	counts, err := p.group(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, errs.DataShape("chemical formula %q: unexpected %q at position %d", formula, string(p.src[p.pos]), p.pos)
	}
	return counts, nil
}

// MolecularWeight returns the formula weight in g/mol.
func (r Parser) MolecularWeight(formula string) (float64, error) {
	counts, err := r.Counts(formula)
	if err != nil {
		return 0, err
	}
	var total float64
	for el, n := range counts {
		total += atomicWeights[el] * float64(n)
	}
	return total, nil
}

// ElementCount returns the atoms of element in formula using r. Any
// resolver failure yields 0.
func ElementCount(r Resolver, formula, element string) int {
	counts, err := r.Counts(formula)
	if err != nil {
		return 0
	}
	return counts[element]
}

// Weight returns the molecular weight of formula using r, or 0 on failure.
func Weight(r Resolver, formula string) float64 {
	w, err := r.MolecularWeight(formula)
	if err != nil {
		return 0
	}
	return w
}

type parser struct {
	src []rune
	pos int
}

var closing = map[rune]rune{'(': ')', '[': ']'}

// group parses until the closing rune (0 at top level).
func (p *parser) group(close rune) (map[string]int, error) {
	counts := make(map[string]int)
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		switch {
		case r == close:
			return counts, nil
		case r == '(' || r == '[':
			p.pos++
			inner, err := p.group(closing[r])
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) {
				return nil, errs.DataShape("chemical formula %q: unclosed %q", string(p.src), string(r))
			}
			p.pos++
			n := p.count()
			for el, c := range inner {
				counts[el] += c * n
			}
		case unicode.IsUpper(r):
			sym := string(r)
			p.pos++
			if p.pos < len(p.src) && unicode.IsLower(p.src[p.pos]) {
				sym += string(p.src[p.pos])
				p.pos++
			}
			if _, ok := atomicWeights[sym]; !ok {
				return nil, errs.DataShape("chemical formula %q: unknown element %q", string(p.src), sym)
			}
			counts[sym] += p.count()
		default:
			return nil, errs.DataShape("chemical formula %q: unexpected %q at position %d", string(p.src), string(r), p.pos)
		}
	}
	if close != 0 {
		return nil, errs.DataShape("chemical formula %q: missing %q", string(p.src), string(close))
	}
	return counts, nil
}

// count reads an optional multiplier, defaulting to 1.
func (p *parser) count() int {
	n, digits := 0, 0
	for p.pos < len(p.src) && unicode.IsDigit(p.src[p.pos]) {
		n = n*10 + int(p.src[p.pos]-'0')
		p.pos++
		digits++
	}
	if digits == 0 {
		return 1
	}
	return n
}

// Standard atomic weights (IUPAC conventional values).
var atomicWeights = map[string]float64{
	"H": 1.008, "He": 4.0026, "Li": 6.94, "Be": 9.0122, "B": 10.81,
	"C": 12.011, "N": 14.007, "O": 15.999, "F": 18.998, "Ne": 20.180,
	"Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.085, "P": 30.974,
	"S": 32.06, "Cl": 35.45, "Ar": 39.948, "K": 39.098, "Ca": 40.078,
	"Sc": 44.956, "Ti": 47.867, "V": 50.942, "Cr": 51.996, "Mn": 54.938,
	"Fe": 55.845, "Co": 58.933, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38,
	"Ga": 69.723, "Ge": 72.630, "As": 74.922, "Se": 78.971, "Br": 79.904,
	"Kr": 83.798, "Rb": 85.468, "Sr": 87.62, "Y": 88.906, "Zr": 91.224,
	"Nb": 92.906, "Mo": 95.95, "Ru": 101.07, "Rh": 102.91, "Pd": 106.42,
	"Ag": 107.87, "Cd": 112.41, "In": 114.82, "Sn": 118.71, "Sb": 121.76,
	"Te": 127.60, "I": 126.90, "Xe": 131.29, "Cs": 132.91, "Ba": 137.33,
	"Pt": 195.08, "Au": 196.97, "Hg": 200.59, "Pb": 207.2,
}
