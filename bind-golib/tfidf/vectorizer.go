// Package tfidf turns whitespace-tokenized documents into tf-idf weighted feature vectors.
package tfidf

import (
	"math"
	"sort"
	"strings"

	"github.com/bindlab/bind/bind-golib/errors"
)

// ErrEmptyVocabulary is returned by Fit when the document-frequency bounds prune every term.
var ErrEmptyVocabulary = errors.New("no terms remain after document-frequency pruning")

// Tokenize splits a document on whitespace. Case and punctuation are preserved, so
// tokens such as "ALA-N-CA" survive intact.
func Tokenize(doc string) []string {
	return strings.Fields(doc)
}

// Vectorizer maps documents onto the tf-idf space of a vocabulary learned by Fit.
type Vectorizer struct {
	// MinDF and MaxDF bound the fraction of training documents a term may appear in,
	// both inclusive. A MaxDF of 0 keeps only terms that appear in no document, so Fit
	// always fails with ErrEmptyVocabulary.
	MinDF float64
	MaxDF float64

	// Vocabulary maps each retained term to its feature index; terms are indexed in sorted order.
	Vocabulary map[string]int
	// Terms lists the retained terms by feature index.
	Terms []string
	// IdfCounter weights the retained terms.
	IdfCounter *IDFCounter
}

// NewVectorizer returns an unfitted Vectorizer with the given document-frequency bounds
func NewVectorizer(minDF, maxDF float64) *Vectorizer {
	return &Vectorizer{
		MinDF: minDF,
		MaxDF: maxDF,
	}
}

// Fit learns the vocabulary and idf weights of docs.
func (v *Vectorizer) Fit(docs []string) error {
	minDF, maxDF := v.MinDF, v.MaxDF
	if minDF < 0 || minDF > 1 || maxDF < 0 || maxDF > 1 {
		return errors.Errorf("document-frequency bounds must lie in [0, 1], got min_df=%v max_df=%v", minDF, maxDF)
	}
	if len(docs) == 0 {
		return errors.Errorf("cannot fit vectorizer on an empty corpus")
	}

	docFreq := make(map[string]int)
	for _, doc := range docs {
		for term := range TermCounts(doc) {
			docFreq[term]++
		}
	}

	n := float64(len(docs))
	low, high := minDF*n, maxDF*n

	var terms []string
	for term, df := range docFreq {
		if float64(df) < low || float64(df) > high {
			delete(docFreq, term)
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errors.Wrapf(ErrEmptyVocabulary, "min_df=%v max_df=%v over %d documents", minDF, maxDF, len(docs))
	}
	sort.Strings(terms)

	v.Terms = terms
	v.Vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
	}
	v.IdfCounter = TrainIDFCounter(len(docs), docFreq)
	return nil
}

// NumFeatures returns the dimension of the vectors produced by Transform
func (v *Vectorizer) NumFeatures() int {
	return len(v.Terms)
}

// Transform returns one L2-normalized tf-idf row per document. Terms outside the
// vocabulary are ignored; a document without known terms maps to the zero vector.
func (v *Vectorizer) Transform(docs []string) ([][]float64, error) {
	if v.IdfCounter == nil {
		return nil, errors.Errorf("vectorizer is not fitted")
	}

	rows := make([][]float64, 0, len(docs))
	for _, doc := range docs {
		row := make([]float64, len(v.Terms))
		for term, count := range TermCounts(doc) {
			idx, ok := v.Vocabulary[term]
			if !ok {
				continue
			}
			row[idx] = float64(count) * v.IdfCounter.Weight(term)
		}
		normalize(row)
		rows = append(rows, row)
	}
	return rows, nil
}

// FitTransform fits the vectorizer on docs and transforms them
func (v *Vectorizer) FitTransform(docs []string) ([][]float64, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

func normalize(row []float64) {
	var norm float64
	for _, x := range row {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range row {
		row[i] /= norm
	}
}
