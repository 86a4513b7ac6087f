package chem

import "strings"

// covalentRadii in Ångström. Hydrogen is enlarged from 0.31 so that
// slightly stretched X-H bonds in deposited models are still perceived.
var covalentRadii = map[string]float64{
	"H": 0.4, "D": 0.4, "B": 0.84, "C": 0.76, "N": 0.71, "O": 0.66, "F": 0.57,
	"Na": 1.66, "Mg": 1.41, "Al": 1.21, "Si": 1.11, "P": 1.07, "S": 1.05,
	"Cl": 1.02, "K": 2.03, "Ca": 1.76, "V": 1.53, "Cr": 1.39, "Mn": 1.39,
	"Fe": 1.32, "Co": 1.26, "Ni": 1.24, "Cu": 1.32, "Zn": 1.22, "Ga": 1.22,
	"Ge": 1.20, "As": 1.19, "Se": 1.20, "Br": 1.20, "Mo": 1.54, "Ru": 1.46,
	"Rh": 1.42, "Pd": 1.39, "Ag": 1.45, "Cd": 1.44, "Sn": 1.39, "Sb": 1.39,
	"Te": 1.38, "I": 1.39, "W": 1.62, "Re": 1.51, "Os": 1.44, "Ir": 1.41,
	"Pt": 1.36, "Au": 1.36, "Hg": 1.32, "Pb": 1.46,
}

// CovalentRadius returns the radius of element, or 0.77 for unknown symbols.
func CovalentRadius(element string) float64 {
	if r, ok := covalentRadii[element]; ok {
		return r
	}
	return 0.77
}

var atomicNumbers = map[string]int{
	"*": 0, "H": 1, "D": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15, "S": 16,
	"Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Sc": 21, "Ti": 22, "V": 23, "Cr": 24,
	"Mn": 25, "Fe": 26, "Co": 27, "Ni": 28, "Cu": 29, "Zn": 30, "Ga": 31,
	"Ge": 32, "As": 33, "Se": 34, "Br": 35, "Kr": 36, "Rb": 37, "Sr": 38,
	"Y": 39, "Zr": 40, "Nb": 41, "Mo": 42, "Tc": 43, "Ru": 44, "Rh": 45,
	"Pd": 46, "Ag": 47, "Cd": 48, "In": 49, "Sn": 50, "Sb": 51, "Te": 52,
	"I": 53, "Xe": 54, "Cs": 55, "Ba": 56, "La": 57, "Ce": 58, "Pr": 59,
	"Nd": 60, "Sm": 62, "Eu": 63, "Gd": 64, "Tb": 65, "Yb": 70, "W": 74,
	"Re": 75, "Os": 76, "Ir": 77, "Pt": 78, "Au": 79, "Hg": 80, "Tl": 81,
	"Pb": 82, "Bi": 83, "U": 92,
}

// AtomicNumber returns the atomic number of element, or -1 if unknown.
func AtomicNumber(element string) int {
	if n, ok := atomicNumbers[element]; ok {
		return n
	}
	return -1
}

// IsKnownElement reports whether element is a recognised symbol.
func IsKnownElement(element string) bool {
	_, ok := atomicNumbers[element]
	return ok
}

// normalizeSymbol returns "Cl" for "CL", "cl" or "Cl".
func normalizeSymbol(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

var organicSubset = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5}, "S": {2, 4, 6},
	"F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

// allowedValences lists acceptable total valences by element and formal charge.
func allowedValences(element string, charge int) []int {
	switch element {
	case "H", "D":
		return []int{1}
	case "C", "Si", "Ge":
		if charge != 0 {
			return []int{3}
		}
		return []int{4}
	case "N", "P", "As":
		switch {
		case charge > 0:
			return []int{4}
		case charge < 0:
			return []int{2}
		}
		return []int{3, 5}
	case "O":
		switch {
		case charge > 0:
			return []int{3}
		case charge < 0:
			return []int{1}
		}
		return []int{2}
	case "S", "Se", "Te":
		switch {
		case charge > 0:
			return []int{3, 5}
		case charge < 0:
			return []int{1, 3, 5}
		}
		return []int{2, 4, 6}
	case "B":
		if charge < 0 {
			return []int{4}
		}
		return []int{3}
	case "F":
		return []int{1}
	case "Cl", "Br", "I":
		if charge != 0 {
			return []int{0, 2}
		}
		return []int{1, 3, 5, 7}
	}
	return nil
}

// aromaticTarget is the valence an aromatic atom reaches once its pi bond is
// placed; ok is false for elements that never take part in kekulization.
func aromaticTarget(element string, charge int) (int, bool) {
	switch element {
	case "C":
		return 4 - abs(charge), true
	case "N", "P", "As":
		return 3 + charge, true
	case "O", "S", "Se", "Te":
		return 2 + charge, true
	case "B":
		return 3 - charge, true
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
