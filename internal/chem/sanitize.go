package chem

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrKekulize reports an aromatic system with no alternating bond assignment.
	ErrKekulize = errors.New("cannot kekulize")
	// ErrValence reports an atom whose bond orders exceed what its element allows.
	ErrValence = errors.New("valence violation")
	// ErrAromaticity reports an aromatic atom outside any ring.
	ErrAromaticity = errors.New("aromatic atom outside ring")
)

const kekuleBudget = 1_000_000

// Kekulize returns a bond order per bond with every aromatic bond resolved to
// Single or Double.
func Kekulize(m *Molecule) ([]BondOrder, error) {
	orders := make([]BondOrder, len(m.Bonds))
	hasAromatic := false
	for k, b := range m.Bonds {
		orders[k] = b.Order
		if b.Order == Aromatic {
			hasAromatic = true
			orders[k] = Single
		}
	}
	if !hasAromatic {
		return orders, nil
	}

	need := make([]bool, len(m.Atoms))
	var pending []int
	for i, a := range m.Atoms {
		if !a.Aromatic {
			continue
		}
		target, ok := aromaticTarget(a.Element, a.Charge)
		if !ok {
			continue
		}
		sum := a.HCount
		aromaticBonds := 0
		for _, k := range m.BondsOf(i) {
			sum += m.Bonds[k].Order.valence()
			if m.Bonds[k].Order == Aromatic {
				aromaticBonds++
			}
		}
		if aromaticBonds > 0 && target-sum == 1 {
			need[i] = true
			pending = append(pending, i)
		}
	}

	matched := make([]bool, len(m.Atoms))
	steps := 0
	var solve func(at int) bool
	solve = func(at int) bool {
		for at < len(pending) && matched[pending[at]] {
			at++
		}
		if at == len(pending) {
			return true
		}
		steps++
		if steps > kekuleBudget {
			return false
		}
		i := pending[at]
		for _, k := range m.BondsOf(i) {
			if m.Bonds[k].Order != Aromatic {
				continue
			}
			j := m.Bonds[k].Other(i)
			if !need[j] || matched[j] {
				continue
			}
			matched[i], matched[j] = true, true
			orders[k] = Double
			if solve(at + 1) {
				return true
			}
			matched[i], matched[j] = false, false
			orders[k] = Single
		}
		return false
	}
	if !solve(0) {
		return nil, fmt.Errorf("%w: %d atoms need a double bond", ErrKekulize, len(pending))
	}
	return orders, nil
}

// Sanitize checks that m can be kekulized, that aromatic flags sit on ring
// atoms and that no atom exceeds the valences its element allows.
func Sanitize(m *Molecule) error {
	inRing := m.ringBonds()
	for i, a := range m.Atoms {
		if !a.Aromatic {
			continue
		}
		ring := false
		for _, k := range m.BondsOf(i) {
			if inRing[k] {
				ring = true
				break
			}
		}
		if !ring {
			return fmt.Errorf("%w: atom %d (%s)", ErrAromaticity, i, a.Element)
		}
	}
	orders, err := Kekulize(m)
	if err != nil {
		return err
	}
	total := make([]int, len(m.Atoms))
	for k, b := range m.Bonds {
		total[b.A] += int(orders[k])
		total[b.B] += int(orders[k])
	}
	for i, a := range m.Atoms {
		allowed := allowedValences(a.Element, a.Charge)
		if len(allowed) == 0 {
			continue
		}
		if v := total[i] + a.HCount; v > slices.Max(allowed) {
			return fmt.Errorf("%w: atom %d (%s%+d) has valence %d", ErrValence, i, a.Element, a.Charge, v)
		}
	}
	return nil
}
