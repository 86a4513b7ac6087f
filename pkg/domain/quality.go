package domain

// EntryValidation holds entry-level quality metrics from a validation report.
// Nil fields were absent from the source.
type EntryValidation struct {
	EntryID                 string   `json:"entry_id"`
	Resolution              *float64 `json:"resolution,omitempty"`
	R                       *float64 `json:"r,omitempty"`
	RFree                   *float64 `json:"rfree,omitempty"`
	Clashscore              *float64 `json:"clashscore,omitempty"`
	PercentRamaOutliers     *float64 `json:"percent_rama_outliers,omitempty"`
	PercentRotamerOutliers  *float64 `json:"percent_rota_outliers,omitempty"`
	DataCompleteness        *float64 `json:"data_completeness,omitempty"`
	MeanBFactor             *float64 `json:"mean_b_factor,omitempty"`
	Molprobity              *float64 `json:"molprobity,omitempty"`
	ExperimentalMethod      string   `json:"method,omitempty"`
	NumResiduesWithAltCodes *float64 `json:"num_residues_with_alt_codes,omitempty"`
}

// ResidueKey identifies a residue the way validation reports do: by author
// chain, author sequence number, insertion code and alternate location.
type ResidueKey struct {
	AuthChain string `json:"auth_chain"`
	AuthSeq   int    `json:"auth_seq"`
	ICode     string `json:"icode,omitempty"`
	AltCode   string `json:"alt_code,omitempty"`
}

// ResidueValidation holds per-residue density fit and occupancy metrics.
type ResidueValidation struct {
	Key          ResidueKey `json:"key"`
	CCDCode      string     `json:"ccd_code"`
	RSCC         *float64   `json:"rscc,omitempty"`
	RSR          *float64   `json:"rsr,omitempty"`
	AvgOccupancy *float64   `json:"average_occupancy,omitempty"`
	AvgBFactor   *float64   `json:"average_b_factor,omitempty"`
	NumAtomsEDS  *float64   `json:"num_atoms_eds,omitempty"`
	NumClashes   *float64   `json:"num_clashes,omitempty"`
}
