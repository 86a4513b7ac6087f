package domain

import "time"

// EntryStatus summarises how an entry fared in a run.
type EntryStatus string

const (
	// StatusSuccess means every system was annotated and persisted.
	StatusSuccess EntryStatus = "success"
	// StatusPartial means at least one system failed to persist.
	StatusPartial EntryStatus = "partial"
	// StatusFailed means the entry could not be read or annotated.
	StatusFailed EntryStatus = "failed"
)

// EntryInfo carries entry-level metadata extracted from the structure file.
type EntryInfo struct {
	Method          string   `json:"method,omitempty"`
	Resolution      *float64 `json:"resolution,omitempty"`
	DepositionDate  string   `json:"deposition_date,omitempty"`
	OligomericState string   `json:"oligomeric_state,omitempty"`
	ECNumbers       []string `json:"ec_numbers,omitempty"`
}

// Chain summarises one asymmetric-unit chain after classification.
type Chain struct {
	AsymID      string              `json:"asym_id"`
	AuthID      string              `json:"auth_id"`
	EntityID    string              `json:"entity_id"`
	PolymerType string              `json:"polymer_type,omitempty"`
	Role        Role                `json:"role"`
	Sequence    string              `json:"sequence,omitempty"`
	ResidueIDs  []string            `json:"residue_ids,omitempty"`
	Mappings    map[string][]string `json:"mappings,omitempty"`
}

// Entry is the annotated view of one deposition.
type Entry struct {
	ID          string      `json:"entry_id"`
	Info        EntryInfo   `json:"info"`
	Chains      []Chain     `json:"chains"`
	Systems     []System    `json:"systems"`
	Warnings    []string    `json:"warnings,omitempty"`
	AnnotatedAt time.Time   `json:"annotated_at"`
	Status      EntryStatus `json:"status"`
}

// ChainByAsym returns the chain with the given asym id.
func (e *Entry) ChainByAsym(asym string) (Chain, bool) {
	for _, c := range e.Chains {
		if c.AsymID == asym {
			return c, true
		}
	}
	return Chain{}, false
}

// EntryReport is the persisted outcome of processing one entry.
type EntryReport struct {
	EntryID   string        `json:"entry_id"`
	RunID     string        `json:"run_id,omitempty"`
	Status    EntryStatus   `json:"status"`
	Systems   int           `json:"systems"`
	Failed    []string      `json:"failed_systems,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	StartedAt time.Time     `json:"started_at"`
}
