// Package explore summarizes the distance profiles of a dataset.
package explore

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"

	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-golib/errors"
	humanize "github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary collects the distance distributions of every residue record, solvent included
type Summary struct {
	Structures int
	Residues   int
	// Skipped counts malformed records
	Skipped int

	All   []float64
	Min   []float64
	Max   []float64
	Mean  []float64
	Spans []float64
}

// Summarize collects the distances of every valid residue record
func Summarize(p profile.Profiles) *Summary {
	s := &Summary{}
	for _, id := range p.IDs() {
		s.Add(p[id])
	}
	return s
}

// Add collects the distances of one structure; malformed records are counted and skipped.
func (s *Summary) Add(structure profile.Structure) {
	s.Structures++
	for _, r := range structure {
		if err := r.Validate(); err != nil {
			s.Skipped++
			continue
		}
		s.Residues++
		s.All = append(s.All, r.Dists...)
		s.Min = append(s.Min, r.MinDist())
		s.Max = append(s.Max, r.MaxDist())
		s.Mean = append(s.Mean, r.MeanDist())
		s.Spans = append(s.Spans, r.Span())
	}
}

// Quantile returns the q-th quantile (0 <= q <= 1) of all distances, interpolating linearly
// between the two nearest ranks at position (n-1)*q of the sorted distances.
func (s *Summary) Quantile(q float64) (float64, error) {
	return quantile(s.All, q)
}

func quantile(vals []float64, q float64) (float64, error) {
	if len(vals) == 0 {
		return 0, errors.Errorf("quantile of no values")
	}
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, errors.Errorf("quantile %v out of [0, 1]", q)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * q
	lo := int(math.Floor(pos))
	if lo == len(sorted)-1 {
		return sorted[lo], nil
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo]), nil
}

// Print writes the summary report
func (s *Summary) Print(w io.Writer) error {
	fmt.Fprintf(w, "structures: %s\n", humanize.Comma(int64(s.Structures)))
	fmt.Fprintf(w, "residues:   %s (%s malformed)\n", humanize.Comma(int64(s.Residues)), humanize.Comma(int64(s.Skipped)))
	fmt.Fprintf(w, "distances:  %s\n", humanize.Comma(int64(len(s.All))))
	if len(s.All) == 0 {
		return nil
	}

	for _, series := range []struct {
		name string
		vals []float64
	}{
		{"all distances", s.All},
		{"min distances", s.Min},
		{"max distances", s.Max},
		{"mean distances", s.Mean},
		{"ligand sizes", s.Spans},
	} {
		mean, err := stats.Mean(series.vals)
		if err != nil {
			return err
		}
		median, err := stats.Median(series.vals)
		if err != nil {
			return err
		}
		min, _ := stats.Min(series.vals)
		max, _ := stats.Max(series.vals)
		fmt.Fprintf(w, "  %-15s mean %.3f median %.3f range [%.3f, %.3f]\n", series.name, mean, median, min, max)
	}

	q, err := s.Quantile(0.1)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "10%% quantile of all distances: %.3f\n", q)
	return nil
}

type histogram struct {
	name  string
	label string
	bins  int
	vals  []float64
}

// WriteHistograms writes one histogram per distribution into dir; ext selects the image
// format (e.g. ".png" or ".tiff"). It returns the files written.
func (s *Summary) WriteHistograms(dir, ext string) ([]string, error) {
	if ext == "" {
		ext = ".png"
	}
	var written []string
	for _, h := range []histogram{
		{"all_dists_hist", "Distances [Å]", 30, s.All},
		{"lig_sizes_hist", "Ligand sizes [Å]", 20, s.Spans},
		{"min_dists", "Distances [Å]", 30, s.Min},
		{"max_dists", "Distances [Å]", 30, s.Max},
		{"mean_dists", "Distances [Å]", 30, s.Mean},
	} {
		if len(h.vals) == 0 {
			continue
		}
		path := filepath.Join(dir, h.name+ext)
		if err := writeHistogram(path, h); err != nil {
			return written, errors.Wrapf(err, "error writing %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeHistogram(path string, h histogram) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.X.Label.Text = h.label
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(plotter.Values(h.vals), h.bins)
	if err != nil {
		return err
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
