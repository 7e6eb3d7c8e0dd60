package dataset

import (
	"io"
	"strconv"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/gocarina/gocsv"
)

type csvRow struct {
	ID       string `csv:"id"`
	Tokens   string `csv:"tokens"`
	Affinity string `csv:"affinity"`
}

// WriteCSV writes the dataset with an id,tokens,affinity header
func WriteCSV(w io.Writer, ds Dataset) error {
	recs := make([]csvRow, len(ds))
	for i, r := range ds {
		recs[i] = csvRow{
			ID:       r.ID,
			Tokens:   r.Tokens,
			Affinity: strconv.FormatFloat(r.Label, 'g', -1, 64),
		}
	}
	return gocsv.Marshal(recs, w)
}

// ReadCSV reads a dataset written by WriteCSV
func ReadCSV(r io.Reader) (Dataset, error) {
	var recs []csvRow
	if err := gocsv.Unmarshal(r, &recs); err != nil {
		return nil, errors.Wrapf(err, "error decoding dataset")
	}

	ds := make(Dataset, 0, len(recs))
	for _, rec := range recs {
		y, err := parseAffinity(rec.ID, rec.Affinity)
		if err != nil {
			return nil, err
		}
		ds = append(ds, Row{ID: rec.ID, Tokens: rec.Tokens, Label: y})
	}
	return ds, nil
}
