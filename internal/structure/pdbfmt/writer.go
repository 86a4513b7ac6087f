// Package pdbfmt writes coordinates in the legacy fixed-column PDB format.
package pdbfmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"plicore/internal/structure"
)

// Chain is one chain to emit under a single-character chain id.
type Chain struct {
	ID       string
	Het      bool
	Residues []structure.Residue
}

// ChainIDs is the sequence of single-character ids handed out to chains.
const ChainIDs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Write emits ATOM/HETATM records with a TER after each polymer chain.
// Serial numbers wrap at 99999 as the format requires.
func Write(w io.Writer, chains []Chain) error {
	bw := bufio.NewWriter(w)
	serial := 0
	for _, c := range chains {
		id := c.ID
		if len(id) != 1 {
			return fmt.Errorf("pdb chain id %q must be one character", id)
		}
		var last structure.Residue
		for _, r := range c.Residues {
			last = r
			for _, a := range r.Atoms {
				serial = serial%99999 + 1
				record := "ATOM  "
				if c.Het || a.Het {
					record = "HETATM"
				}
				fmt.Fprintf(bw, "%-6s%5d %-4s%1s%3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s%2s\n",
					record, serial, atomName(a.Name, a.Element), first(a.AltLoc), resName(r.Name), id,
					r.AuthSeq%10000, first(r.ICode), a.Pos[0], a.Pos[1], a.Pos[2],
					a.Occupancy, a.BFactor, strings.ToUpper(a.Element), charge(a.Charge))
			}
		}
		if !c.Het && len(c.Residues) > 0 {
			serial = serial%99999 + 1
			fmt.Fprintf(bw, "TER   %5d      %3s %1s%4d%1s\n", serial, resName(last.Name), id, last.AuthSeq%10000, first(last.ICode))
		}
	}
	bw.WriteString("END\n")
	return bw.Flush()
}

// atomName aligns names the PDB way: one-letter elements with names shorter
// than four characters start in column 14.
func atomName(name, element string) string {
	if len(name) >= 4 || len(element) == 2 {
		return name
	}
	return " " + name
}

func resName(name string) string {
	if len(name) > 3 {
		return name[:3]
	}
	return name
}

func first(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}

func charge(c int) string {
	switch {
	case c > 0:
		return fmt.Sprintf("%d+", c)
	case c < 0:
		return fmt.Sprintf("%d-", -c)
	}
	return "  "
}
