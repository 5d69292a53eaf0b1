package tle

import "time"

// ElementSet is a single object's two-line element set plus display
// metadata. The core treats the lines as opaque propagator input.
type ElementSet struct {
	NoradID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"-"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange is the minimum and maximum element-set epochs in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete set of element sets from one source.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Sets       []ElementSet
}

// Range computes the epoch range over sets. The zero EpochRange is
// returned for an empty slice.
func Range(sets []ElementSet) EpochRange {
	if len(sets) == 0 {
		return EpochRange{}
	}
	r := EpochRange{Min: sets[0].Epoch, Max: sets[0].Epoch}
	for _, s := range sets[1:] {
		if s.Epoch.Before(r.Min) {
			r.Min = s.Epoch
		}
		if s.Epoch.After(r.Max) {
			r.Max = s.Epoch
		}
	}
	return r
}
