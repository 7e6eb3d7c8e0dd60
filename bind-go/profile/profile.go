// Package profile holds per-residue protein-ligand distance profiles.
package profile

import (
	"math"
	"sort"

	"github.com/bindlab/bind/bind-golib/errors"
)

// ErrMalformedRecord is returned for residue records violating len(AtomTypes) == len(Dists) >= 1
var ErrMalformedRecord = errors.New("malformed residue record")

// Residue is one residue observed near the ligand of a structure
type Residue struct {
	// Residue is the residue code, e.g. ALA or HOH
	Residue string `json:"residue"`
	// AtomTypes lists the atoms considered in the distance calculation
	AtomTypes []string `json:"atom_types"`
	// Dists pairs each atom with its distance to the nearest ligand reference point
	Dists []float64 `json:"dists"`
}

// Validate checks the record invariants
func (r Residue) Validate() error {
	switch {
	case len(r.Dists) == 0:
		return errors.Wrapf(ErrMalformedRecord, "%s has no distances", r.Residue)
	case len(r.AtomTypes) != len(r.Dists):
		return errors.Wrapf(ErrMalformedRecord, "%s has %d atom types but %d distances", r.Residue, len(r.AtomTypes), len(r.Dists))
	}
	for i, d := range r.Dists {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return errors.Wrapf(ErrMalformedRecord, "%s atom %d has distance %v", r.Residue, i, d)
		}
	}
	return nil
}

// MinDist returns the smallest distance; the record must be valid
func (r Residue) MinDist() float64 {
	min := r.Dists[0]
	for _, d := range r.Dists[1:] {
		if d < min {
			min = d
		}
	}
	return min
}

// MaxDist returns the largest distance; the record must be valid
func (r Residue) MaxDist() float64 {
	max := r.Dists[0]
	for _, d := range r.Dists[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// MeanDist returns the mean distance; the record must be valid
func (r Residue) MeanDist() float64 {
	var sum float64
	for _, d := range r.Dists {
		sum += d
	}
	return sum / float64(len(r.Dists))
}

// Span returns MaxDist - MinDist, the extent of the ligand as seen from this residue
func (r Residue) Span() float64 {
	return r.MaxDist() - r.MinDist()
}

// Structure is the ordered residue records of one protein-ligand complex
type Structure []Residue

// Profiles maps structure identifiers to their residue records
type Profiles map[string]Structure

// IDs returns the structure identifiers in sorted order
func (p Profiles) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
