// Package dataset joins tokenized structures with affinity labels and persists the result.
package dataset

import (
	"sort"

	"github.com/bindlab/bind/bind-golib/tfidf"
)

// Row is one labelled, tokenized structure
type Row struct {
	ID     string
	Tokens string
	Label  float64
}

// Dataset is a list of rows ordered by id
type Dataset []Row

// Documents returns the token strings of the rows
func (d Dataset) Documents() []string {
	docs := make([]string, len(d))
	for i, r := range d {
		docs[i] = r.Tokens
	}
	return docs
}

// Labels returns the labels of the rows
func (d Dataset) Labels() []float64 {
	y := make([]float64, len(d))
	for i, r := range d {
		y[i] = r.Label
	}
	return y
}

// Vocabulary returns the distinct tokens of the dataset in sorted order
func (d Dataset) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, r := range d {
		for _, tok := range tfidf.Tokenize(r.Tokens) {
			seen[tok] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	return vocab
}
