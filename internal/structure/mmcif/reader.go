package mmcif

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"plicore/internal/structure"
	"plicore/pkg/domain"
)

// Reader implements structure.Reader for .cif and .cif.gz files.
type Reader struct{}

var _ structure.Reader = Reader{}

// Read opens and parses path. Gzip input is detected from its magic bytes.
func (Reader) Read(ctx context.Context, path string) (*structure.Structure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(path) // #nosec G304: caller-selected input file
	if err != nil {
		return nil, structure.ParseError{Path: path, Err: err}
	}
	defer func() { _ = fh.Close() }()
	return Parse(fh, path)
}

// Parse reads one entry from r; name is used in errors.
func Parse(r io.Reader, name string) (*structure.Structure, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, structure.ParseError{Path: name, Err: err}
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, structure.ParseError{Path: name, Err: err}
	}
	blk, err := parseBlock(data)
	if err != nil {
		return nil, structure.ParseError{Path: name, Err: err}
	}
	s, err := build(blk)
	if err != nil {
		return nil, structure.ParseError{Path: name, Err: err}
	}
	return s, nil
}

func build(blk *Block) (*structure.Structure, error) {
	s := &structure.Structure{
		ID:        strings.ToLower(blk.Name),
		Operators: make(map[string]structure.Transform),
		Templates: make(map[string]string),
		Mappings:  make(map[string]map[string][]string),
	}
	if id := blk.Table("entry").Str(0, "id"); id != "" {
		s.ID = strings.ToLower(id)
	}
	s.Info = readInfo(blk)

	chains, err := readChains(blk)
	if err != nil {
		return nil, err
	}
	s.Chains = chains
	s.Links = readLinks(blk)
	s.Assemblies = readAssemblies(blk)
	if len(s.Assemblies) > 0 && s.Info.OligomericState == "" {
		s.Info.OligomericState = s.Assemblies[0].Oligomeric
	}
	if err := readOperators(blk, s.Operators); err != nil {
		return nil, err
	}
	s.Cell = readCell(blk)
	s.SymOps = readSymops(blk)
	readTemplates(blk, s.Templates)
	readMappings(blk, s.Mappings)
	return s, nil
}

func readInfo(blk *Block) domain.EntryInfo {
	var info domain.EntryInfo
	info.Method = blk.Table("exptl").Str(0, "method")
	for _, src := range [][2]string{
		{"refine", "ls_d_res_high"},
		{"reflns", "d_resolution_high"},
		{"em_3d_reconstruction", "resolution"},
	} {
		if v, ok := blk.Table(src[0]).Value(0, src[1]); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				info.Resolution = &f
				break
			}
		}
	}
	info.DepositionDate = blk.Table("pdbx_database_status").Str(0, "recvd_initial_deposition_date")
	ent := blk.Table("entity")
	for i := 0; i < ent.Len(); i++ {
		for _, ec := range strings.Split(ent.Str(i, "pdbx_ec"), ",") {
			if ec = strings.TrimSpace(ec); ec != "" {
				info.ECNumbers = append(info.ECNumbers, ec)
			}
		}
	}
	return info
}

type residueKey struct {
	asym, seq, auth, icode, comp string
}

func readChains(blk *Block) ([]*structure.Chain, error) {
	entityType := make(map[string]string)
	ent := blk.Table("entity")
	for i := 0; i < ent.Len(); i++ {
		entityType[ent.Str(i, "id")] = ent.Str(i, "type")
	}
	polyType := make(map[string]string)
	poly := blk.Table("entity_poly")
	for i := 0; i < poly.Len(); i++ {
		polyType[poly.Str(i, "entity_id")] = poly.Str(i, "type")
	}
	fullSeq := readPolySeq(blk)

	order := []string{}
	byAsym := make(map[string]*structure.Chain)
	addChain := func(asym, entity string) *structure.Chain {
		if c, ok := byAsym[asym]; ok {
			return c
		}
		c := &structure.Chain{
			AsymID:       asym,
			EntityID:     entity,
			EntityType:   entityType[entity],
			PolymerType:  polyType[entity],
			FullSequence: fullSeq[entity],
		}
		byAsym[asym] = c
		order = append(order, asym)
		return c
	}
	sa := blk.Table("struct_asym")
	for i := 0; i < sa.Len(); i++ {
		addChain(sa.Str(i, "id"), sa.Str(i, "entity_id"))
	}

	atoms := blk.Table("atom_site")
	if atoms.Len() == 0 {
		return nil, fmt.Errorf("no atom_site records")
	}
	for _, item := range []string{"label_asym_id", "label_atom_id", "label_comp_id", "cartn_x", "cartn_y", "cartn_z"} {
		if !atoms.Has(item) {
			return nil, fmt.Errorf("atom_site lacks %s", item)
		}
	}
	firstModel := atoms.Str(0, "pdbx_pdb_model_num")
	resIndex := make(map[residueKey]int)
	firstAlt := make(map[residueKey]string)
	altSets := make(map[residueKey]map[string]struct{})
	for i := 0; i < atoms.Len(); i++ {
		if m := atoms.Str(i, "pdbx_pdb_model_num"); m != firstModel {
			continue
		}
		asym := atoms.Str(i, "label_asym_id")
		c := addChain(asym, atoms.Str(i, "label_entity_id"))
		if c.AuthID == "" {
			c.AuthID = atoms.Str(i, "auth_asym_id")
			if c.AuthID == "" {
				c.AuthID = asym
			}
		}
		key := residueKey{
			asym:  asym,
			seq:   atoms.Str(i, "label_seq_id"),
			auth:  atoms.Str(i, "auth_seq_id"),
			icode: atoms.Str(i, "pdbx_pdb_ins_code"),
			comp:  atoms.Str(i, "label_comp_id"),
		}
		idx, ok := resIndex[key]
		if !ok {
			seqID, _ := strconv.Atoi(key.seq)
			authSeq, _ := strconv.Atoi(key.auth)
			c.Residues = append(c.Residues, structure.Residue{Name: key.comp, SeqID: seqID, AuthSeq: authSeq, ICode: key.icode})
			idx = len(c.Residues) - 1
			resIndex[key] = idx
		}
		res := &c.Residues[idx]
		alt := atoms.Str(i, "label_alt_id")
		if alt != "" {
			if altSets[key] == nil {
				altSets[key] = make(map[string]struct{})
			}
			altSets[key][alt] = struct{}{}
			if fa, ok := firstAlt[key]; !ok {
				firstAlt[key] = alt
			} else if fa != alt {
				continue
			}
		}
		atom, err := readAtom(atoms, i)
		if err != nil {
			return nil, err
		}
		atom.AltLoc = alt
		res.Atoms = append(res.Atoms, atom)
	}
	for key, set := range altSets {
		c := byAsym[key.asym]
		c.Residues[resIndex[key]].AltLocs = len(set)
	}
	out := make([]*structure.Chain, 0, len(order))
	for _, asym := range order {
		if c := byAsym[asym]; len(c.Residues) > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

func readAtom(t *Table, row int) (structure.Atom, error) {
	var a structure.Atom
	for k, item := range []string{"cartn_x", "cartn_y", "cartn_z"} {
		v, err := strconv.ParseFloat(t.Str(row, item), 64)
		if err != nil {
			return a, fmt.Errorf("atom_site row %d: %s: %w", row+1, item, err)
		}
		a.Pos[k] = v
	}
	a.Serial, _ = strconv.Atoi(t.Str(row, "id"))
	a.Name = t.Str(row, "label_atom_id")
	a.Element = NormalizeElement(t.Str(row, "type_symbol"))
	if a.Element == "" {
		if name := strings.TrimLeft(a.Name, "0123456789"); name != "" {
			a.Element = NormalizeElement(name[:1])
		}
	}
	a.Occupancy = 1
	if v, ok := t.Value(row, "occupancy"); ok {
		a.Occupancy, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := t.Value(row, "b_iso_or_equiv"); ok {
		a.BFactor, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := t.Value(row, "pdbx_formal_charge"); ok {
		a.Charge, _ = strconv.Atoi(v)
	}
	a.Het = t.Str(row, "group_pdb") == "HETATM"
	return a, nil
}

// NormalizeElement returns the element symbol with conventional case ("CL" -> "Cl").
func NormalizeElement(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func readPolySeq(blk *Block) map[string][]string {
	type mon struct {
		num  int
		comp string
	}
	byEntity := make(map[string][]mon)
	t := blk.Table("entity_poly_seq")
	for i := 0; i < t.Len(); i++ {
		n, _ := strconv.Atoi(t.Str(i, "num"))
		e := t.Str(i, "entity_id")
		if list := byEntity[e]; len(list) > 0 && list[len(list)-1].num == n {
			continue // microheterogeneity: keep the first component
		}
		byEntity[e] = append(byEntity[e], mon{num: n, comp: t.Str(i, "mon_id")})
	}
	out := make(map[string][]string, len(byEntity))
	for e, list := range byEntity {
		sort.SliceStable(list, func(i, j int) bool { return list[i].num < list[j].num })
		seq := make([]string, len(list))
		for i, m := range list {
			seq[i] = m.comp
		}
		out[e] = seq
	}
	return out
}

func readLinks(blk *Block) []structure.Link {
	t := blk.Table("struct_conn")
	out := make([]structure.Link, 0, t.Len())
	ref := func(row int, p string) structure.AtomRef {
		seq, _ := strconv.Atoi(t.Str(row, p+"_label_seq_id"))
		auth, _ := strconv.Atoi(t.Str(row, p+"_auth_seq_id"))
		return structure.AtomRef{
			Asym:      t.Str(row, p+"_label_asym_id"),
			AuthChain: t.Str(row, p+"_auth_asym_id"),
			ResName:   t.Str(row, p+"_label_comp_id"),
			SeqID:     seq,
			AuthSeq:   auth,
			ICode:     t.Str(row, "pdbx_"+p+"_pdb_ins_code"),
			Atom:      t.Str(row, p+"_label_atom_id"),
			AltLoc:    t.Str(row, "pdbx_"+p+"_label_alt_id"),
		}
	}
	for i := 0; i < t.Len(); i++ {
		l := structure.Link{Type: strings.ToLower(t.Str(i, "conn_type_id")), A: ref(i, "ptnr1"), B: ref(i, "ptnr2")}
		l.Distance, _ = strconv.ParseFloat(t.Str(i, "pdbx_dist_value"), 64)
		out = append(out, l)
	}
	return out
}

func readAssemblies(blk *Block) []structure.AssemblyDef {
	var defs []structure.AssemblyDef
	index := make(map[string]int)
	asm := blk.Table("pdbx_struct_assembly")
	for i := 0; i < asm.Len(); i++ {
		id := asm.Str(i, "id")
		index[id] = len(defs)
		defs = append(defs, structure.AssemblyDef{ID: id, Oligomeric: asm.Str(i, "oligomeric_details")})
	}
	gen := blk.Table("pdbx_struct_assembly_gen")
	for i := 0; i < gen.Len(); i++ {
		id := gen.Str(i, "assembly_id")
		k, ok := index[id]
		if !ok {
			index[id] = len(defs)
			k = len(defs)
			defs = append(defs, structure.AssemblyDef{ID: id})
		}
		var asyms []string
		for _, a := range strings.Split(gen.Str(i, "asym_id_list"), ",") {
			if a = strings.TrimSpace(a); a != "" {
				asyms = append(asyms, a)
			}
		}
		defs[k].Gens = append(defs[k].Gens, structure.AssemblyGen{AsymIDs: asyms, OperExpr: gen.Str(i, "oper_expression")})
	}
	out := defs[:0]
	for _, d := range defs {
		if len(d.Gens) > 0 {
			out = append(out, d)
		}
	}
	return out
}

func readOperators(blk *Block, ops map[string]structure.Transform) error {
	t := blk.Table("pdbx_struct_oper_list")
	for i := 0; i < t.Len(); i++ {
		var tr structure.Transform
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				item := fmt.Sprintf("matrix[%d][%d]", r+1, c+1)
				v, err := strconv.ParseFloat(t.Str(i, item), 64)
				if err != nil {
					return fmt.Errorf("oper %s %s: %w", t.Str(i, "id"), item, err)
				}
				tr.Rot[r][c] = v
			}
			item := fmt.Sprintf("vector[%d]", r+1)
			v, err := strconv.ParseFloat(t.Str(i, item), 64)
			if err != nil {
				return fmt.Errorf("oper %s %s: %w", t.Str(i, "id"), item, err)
			}
			tr.Shift[r] = v
		}
		ops[t.Str(i, "id")] = tr
	}
	return nil
}

func readCell(blk *Block) *structure.Cell {
	t := blk.Table("cell")
	if t.Len() == 0 {
		return nil
	}
	vals := make([]float64, 6)
	for k, item := range []string{"length_a", "length_b", "length_c", "angle_alpha", "angle_beta", "angle_gamma"} {
		v, err := strconv.ParseFloat(t.Str(0, item), 64)
		if err != nil {
			return nil
		}
		vals[k] = v
	}
	// EM and NMR entries carry a placeholder unit cell.
	if vals[0] <= 1 && vals[1] <= 1 && vals[2] <= 1 {
		return nil
	}
	return &structure.Cell{A: vals[0], B: vals[1], C: vals[2], Alpha: vals[3], Beta: vals[4], Gamma: vals[5]}
}

func readSymops(blk *Block) []string {
	for _, src := range [][2]string{{"space_group_symop", "operation_xyz"}, {"symmetry_equiv", "pos_as_xyz"}} {
		t := blk.Table(src[0])
		if t.Len() == 0 {
			continue
		}
		out := make([]string, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			if v := t.Str(i, src[1]); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return nil
}

func readTemplates(blk *Block, into map[string]string) {
	t := blk.Table("pdbx_chem_comp_descriptor")
	canonical := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		comp := t.Str(i, "comp_id")
		kind := strings.ToUpper(t.Str(i, "type"))
		desc := t.Str(i, "descriptor")
		if comp == "" || desc == "" {
			continue
		}
		switch kind {
		case "SMILES_CANONICAL":
			if !canonical[comp] {
				into[comp] = desc
				canonical[comp] = true
			}
		case "SMILES":
			if _, ok := into[comp]; !ok {
				into[comp] = desc
			}
		}
	}
}

func readMappings(blk *Block, into map[string]map[string][]string) {
	t := blk.Table("struct_ref")
	for i := 0; i < t.Len(); i++ {
		entity, db, acc := t.Str(i, "entity_id"), t.Str(i, "db_name"), t.Str(i, "pdbx_db_accession")
		if entity == "" || db == "" || acc == "" {
			continue
		}
		if into[entity] == nil {
			into[entity] = make(map[string][]string)
		}
		into[entity][db] = append(into[entity][db], acc)
	}
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte, name string) (*structure.Structure, error) {
	return Parse(bytes.NewReader(data), name)
}
