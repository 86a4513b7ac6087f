package tables

// Default returns the built-in tables. Callers wanting the full curated
// lists load them with Load and merge on top.
func Default() *ChemistryTables {
	t := &ChemistryTables{
		AminoAcids: map[string]byte{
			"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
			"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
			"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
			"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
		},
		NonCanonical: map[string]byte{
			"MSE": 'M', "SEP": 'S', "TPO": 'T', "PTR": 'Y', "CSO": 'C',
			"CME": 'C', "CSD": 'C', "OCS": 'C', "CAS": 'C', "CSS": 'C',
			"HYP": 'P', "MLY": 'K', "M3L": 'K', "KCX": 'K', "LLP": 'K',
			"ALY": 'K', "PCA": 'Q', "SEC": 'C', "PYL": 'K', "NLE": 'L',
			"MLE": 'L', "MVA": 'V', "DAL": 'A', "DLE": 'L', "DPN": 'F',
			"DVA": 'V', "DAR": 'R', "DSN": 'S', "DTH": 'T', "DTR": 'W',
			"DTY": 'Y', "DGL": 'E', "DAS": 'D', "DLY": 'K', "DPR": 'P',
			"DCY": 'C', "DHI": 'H', "DGN": 'Q', "DSG": 'N', "DIL": 'I',
			"MED": 'M', "ABA": 'A', "AIB": 'A', "SAR": 'G', "NH2": 'X',
			"ACE": 'X',
		},
		Nucleotides: map[string]byte{
			"A": 'A', "C": 'C', "G": 'G', "U": 'U', "I": 'I',
			"DA": 'A', "DC": 'C', "DG": 'G', "DT": 'T', "DU": 'U', "DI": 'I',
		},
		Waters: newCodeSet("HOH", "WAT", "DOD", "H2O", "DIS"),
		Artifacts: newCodeSet(
			"GOL", "EDO", "SO4", "PO4", "PEG", "PG4", "PGE", "1PE", "P6G",
			"MPD", "DMS", "ACT", "ACY", "FMT", "TRS", "EPE", "MES", "BME",
			"IPA", "EOH", "MOH", "CIT", "FLC", "TAR", "IMD", "NO3", "SCN",
			"BU3", "PE4", "12P", "15P", "PE8", "2PE", "7PE", "XPE", "PG0",
			"MRD", "BTB", "B3P", "CAC", "AZI", "DTT", "DOX", "HEZ", "PGO",
			"PGR", "NH4", "UNX", "UNL", "CXS", "MLI", "SIN", "TLA", "POP",
			"BOG", "LDA", "C8E", "SGM",
		),
		Cofactors: newCodeSet(
			"HEM", "HEA", "HEB", "HEC", "HDD", "NAD", "NAI", "NAP", "NDP",
			"FAD", "FDA", "FMN", "COA", "ACO", "SAM", "SAH", "PLP", "TPP",
			"BTN", "H4B", "MTE", "SF4", "FES", "F3S", "CLA", "BCL", "UQ1",
			"MGD", "B12", "CNC", "TDP", "PQQ", "THF", "FOL", "LPA",
		),
		Ions: newCodeSet(
			"NA", "K", "MG", "CA", "ZN", "MN", "FE", "FE2", "CU", "CU1",
			"CO", "NI", "CD", "HG", "CL", "BR", "IOD", "F", "LI", "RB",
			"CS", "SR", "BA", "AL", "GA", "PT", "AU", "AG", "PB", "YB",
			"SM", "GD", "TB", "EU", "LA", "CE", "PR", "ND", "IR", "OS",
			"RU", "RH", "PD", "W", "MO", "V", "CR", "TL", "SB", "3CO",
			"3NI", "CU3", "MN3", "ZN2",
		),
		KinaseInhibitors: newCodeSet("STI", "NIL", "1N1", "AQ4", "IRE", "FMM", "STU", "P06", "LKG", "VX6"),
		SideChainAtoms: map[string][]string{
			"ALA": {"CB"},
			"ARG": {"CB", "CG", "CD", "NE", "CZ", "NH1", "NH2"},
			"ASN": {"CB", "CG", "OD1", "ND2"},
			"ASP": {"CB", "CG", "OD1", "OD2"},
			"CYS": {"CB", "SG"},
			"GLN": {"CB", "CG", "CD", "OE1", "NE2"},
			"GLU": {"CB", "CG", "CD", "OE1", "OE2"},
			"GLY": {},
			"HIS": {"CB", "CG", "ND1", "CD2", "CE1", "NE2"},
			"ILE": {"CB", "CG1", "CG2", "CD1"},
			"LEU": {"CB", "CG", "CD1", "CD2"},
			"LYS": {"CB", "CG", "CD", "CE", "NZ"},
			"MET": {"CB", "CG", "SD", "CE"},
			"PHE": {"CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ"},
			"PRO": {"CB", "CG", "CD"},
			"SER": {"CB", "OG"},
			"THR": {"CB", "OG1", "CG2"},
			"TRP": {"CB", "CG", "CD1", "CD2", "NE1", "CE2", "CE3", "CZ2", "CZ3", "CH2"},
			"TYR": {"CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ", "OH"},
			"VAL": {"CB", "CG1", "CG2"},
		},
		AromaticRings: map[string][][]string{
			"PHE": {{"CG", "CD1", "CE1", "CZ", "CE2", "CD2"}},
			"TYR": {{"CG", "CD1", "CE1", "CZ", "CE2", "CD2"}},
			"HIS": {{"CG", "ND1", "CE1", "NE2", "CD2"}},
			"TRP": {{"CG", "CD1", "NE1", "CE2", "CD2"}, {"CD2", "CE2", "CZ2", "CH2", "CZ3", "CE3"}},
		},
		PositiveAtoms: map[string][]string{
			"ARG": {"NE", "NH1", "NH2"},
			"LYS": {"NZ"},
			"HIS": {"ND1", "NE2"},
		},
		NegativeAtoms: map[string][]string{
			"ASP": {"OD1", "OD2"},
			"GLU": {"OE1", "OE2"},
		},
		synonyms: make(map[string]string),
	}
	for _, group := range defaultSynonyms {
		t.AddSynonyms(group...)
	}
	t.canonicalizeSets()
	return t
}

var defaultSynonyms = [][]string{
	{"GOL", "CRY"},
	{"2PL", "PGA"},
	{"0P0", "GTT", "VDW"},
	{"2OG", "AKG"},
	{"FMT", "CBX"},
	{"SO4", "SUL"},
	{"PO4", "PI"},
	{"NAD", "NAJ"},
}
