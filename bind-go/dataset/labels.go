package dataset

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/gocarina/gocsv"
)

// LabelTable maps structure identifiers to binding affinities
type LabelTable interface {
	// Label returns the affinity of id and whether the table has one
	Label(id string) (float64, bool)
	Len() int
}

// Labels is an in-memory LabelTable
type Labels map[string]float64

// Label implements LabelTable
func (l Labels) Label(id string) (float64, bool) {
	v, ok := l[id]
	return v, ok
}

// Len implements LabelTable
func (l Labels) Len() int {
	return len(l)
}

type labelRecord struct {
	ID       string `csv:"id"`
	Affinity string `csv:"affinity"`
}

// LoadLabels reads a label table from a CSV file with an id,affinity header
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening label table")
	}
	defer f.Close()

	l, err := ReadLabels(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return l, nil
}

// ReadLabels reads a label table in CSV form. A missing, non-numeric or non-finite affinity is an error.
func ReadLabels(r io.Reader) (Labels, error) {
	var recs []labelRecord
	if err := gocsv.Unmarshal(r, &recs); err != nil {
		return nil, err
	}

	labels := make(Labels, len(recs))
	for _, rec := range recs {
		v, err := parseAffinity(rec.ID, rec.Affinity)
		if err != nil {
			return nil, err
		}
		labels[rec.ID] = v
	}
	return labels, nil
}

func parseAffinity(id, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Errorf("%s: missing affinity", id)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("%s: invalid affinity %q", id, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("%s: non-finite affinity %q", id, s)
	}
	return v, nil
}
