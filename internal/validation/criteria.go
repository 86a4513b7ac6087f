package validation

import "plicore/pkg/domain"

// Criteria are the quality thresholds behind the pass/fail flags.
type Criteria struct {
	MaxResolution     float64 `json:"max_resolution"`
	MaxR              float64 `json:"max_r"`
	MaxRFree          float64 `json:"max_rfree"`
	MaxRFreeMinusR    float64 `json:"max_r_minus_rfree"`
	MaxClashscore     float64 `json:"max_clashscore"`
	MaxRamaOutliers   float64 `json:"max_percent_rama_outliers"`
	MinRSCC           float64 `json:"min_rscc"`
	MaxRSR            float64 `json:"max_rsr"`
	MinOccupancy      float64 `json:"min_average_occupancy"`
	MaxPocketAltCount int     `json:"max_pocket_alt_count"`
}

// DefaultCriteria returns the thresholds of the curated dataset.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxResolution:     3.5,
		MaxR:              0.4,
		MaxRFree:          0.45,
		MaxRFreeMinusR:    0.05,
		MaxClashscore:     40,
		MaxRamaOutliers:   5,
		MinRSCC:           0.8,
		MaxRSR:            0.3,
		MinOccupancy:      1.0,
		MaxPocketAltCount: 1,
	}
}

// RMinusRFree returns RFree - R, or nil when either is missing.
func RMinusRFree(ev domain.EntryValidation) *float64 {
	if ev.R == nil || ev.RFree == nil {
		return nil
	}
	d := *ev.RFree - *ev.R
	return &d
}

// EntryPasses reports whether the entry meets every entry threshold. It
// returns nil when a required metric is missing.
func (c Criteria) EntryPasses(ev domain.EntryValidation) *bool {
	gap := RMinusRFree(ev)
	if ev.Resolution == nil || gap == nil || ev.Clashscore == nil || ev.PercentRamaOutliers == nil {
		return nil
	}
	ok := *ev.Resolution <= c.MaxResolution &&
		*ev.R <= c.MaxR &&
		*ev.RFree <= c.MaxRFree &&
		*gap <= c.MaxRFreeMinusR &&
		*ev.Clashscore <= c.MaxClashscore &&
		*ev.PercentRamaOutliers <= c.MaxRamaOutliers
	return &ok
}

// LigandPasses reports whether the density fit of a ligand meets the
// thresholds, or nil when a metric is missing.
func (c Criteria) LigandPasses(m LigandMetrics) *bool {
	if m.RSCC == nil || m.RSR == nil || m.AvgOccupancy == nil {
		return nil
	}
	ok := *m.RSCC >= c.MinRSCC && *m.RSR <= c.MaxRSR && *m.AvgOccupancy >= c.MinOccupancy
	return &ok
}
