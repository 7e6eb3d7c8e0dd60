package tfidf

import (
	"math"
	"testing"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"ALA-N GLY TYR-O-C",
	"GLY GLY ALA-N",
	"TRP",
}

func TestTokenizePreservesCase(t *testing.T) {
	assert.Equal(t, []string{"ALA-N", "gly", "TYR-O-C"}, Tokenize("  ALA-N\tgly TYR-O-C "))
	assert.Empty(t, Tokenize(""))
}

func TestIDFCounter(t *testing.T) {
	idf := TrainIDFCounter(3, map[string]int{"GLY": 2, "TRP": 1})

	assert.InDelta(t, math.Log(4.0/3.0)+1, idf.Weight("GLY"), 1e-12)
	assert.InDelta(t, math.Log(4.0/2.0)+1, idf.Weight("TRP"), 1e-12)
	// unseen terms get the largest weight
	assert.InDelta(t, math.Log(4.0)+1, idf.Weight("HIS"), 1e-12)
}

func TestFitVocabulary(t *testing.T) {
	v := NewVectorizer(0, 1)
	require.NoError(t, v.Fit(corpus))

	assert.Equal(t, []string{"ALA-N", "GLY", "TRP", "TYR-O-C"}, v.Terms)
	assert.Equal(t, 4, v.NumFeatures())
	assert.Equal(t, 1, v.Vocabulary["GLY"])
}

func TestFitPrunesByDocumentFrequency(t *testing.T) {
	// GLY and ALA-N appear in 2/3 documents, TRP and TYR-O-C in 1/3
	v := NewVectorizer(0.5, 1)
	require.NoError(t, v.Fit(corpus))
	assert.Equal(t, []string{"ALA-N", "GLY"}, v.Terms)

	v = NewVectorizer(0, 0.5)
	require.NoError(t, v.Fit(corpus))
	assert.Equal(t, []string{"TRP", "TYR-O-C"}, v.Terms)
}

func TestFitEmptyVocabulary(t *testing.T) {
	v := NewVectorizer(0.9, 0.1)
	err := v.Fit(corpus)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))
	assert.Contains(t, err.Error(), "min_df=0.9")
	assert.Contains(t, err.Error(), "max_df=0.1")
}

func TestFitZeroMaxDF(t *testing.T) {
	err := NewVectorizer(0, 0).Fit([]string{"ALA GLY", "ALA", "TRP"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))
	assert.Contains(t, err.Error(), "max_df=0 ")
}

func TestFitRejectsBadInput(t *testing.T) {
	assert.Error(t, NewVectorizer(-0.1, 1).Fit(corpus))
	assert.Error(t, NewVectorizer(0, 1).Fit(nil))

	_, err := NewVectorizer(0, 1).Transform(corpus)
	assert.Error(t, err)
}

func TestTransform(t *testing.T) {
	v := NewVectorizer(0, 1)
	rows, err := v.FitTransform(corpus)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// second document: GLY twice, ALA-N once, both with df=2
	w := math.Log(4.0/3.0) + 1
	gly, ala := 2*w, w
	norm := math.Sqrt(gly*gly + ala*ala)
	assert.InDelta(t, ala/norm, rows[1][v.Vocabulary["ALA-N"]], 1e-12)
	assert.InDelta(t, gly/norm, rows[1][v.Vocabulary["GLY"]], 1e-12)
	assert.Zero(t, rows[1][v.Vocabulary["TRP"]])

	for _, row := range rows {
		var sq float64
		for _, x := range row {
			sq += x * x
		}
		assert.InDelta(t, 1, sq, 1e-12)
	}

	unseen, err := v.Transform([]string{"HIS", ""})
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 4), unseen[0])
	assert.Equal(t, make([]float64, 4), unseen[1])
}
