package tfidf

import "math"

// IDFCounter keeps the inverse-document-frequency weight of each term
type IDFCounter struct {
	NumDocs int
	DocFreq map[string]int
}

// TrainIDFCounter returns an IDFCounter for a corpus of numDocs documents where
// docFreq maps each term to the number of documents containing it.
func TrainIDFCounter(numDocs int, docFreq map[string]int) *IDFCounter {
	return &IDFCounter{
		NumDocs: numDocs,
		DocFreq: docFreq,
	}
}

// Weight returns the smoothed idf of term, ln((1+n)/(1+df)) + 1. Smoothing acts as if
// one extra document contained every term once, so unseen terms never divide by zero.
func (c *IDFCounter) Weight(term string) float64 {
	n := float64(c.NumDocs)
	df := float64(c.DocFreq[term])
	return math.Log((1+n)/(1+df)) + 1
}

// TermCounts returns the raw count of each whitespace-delimited term in doc.
func TermCounts(doc string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(doc) {
		counts[tok]++
	}
	return counts
}
