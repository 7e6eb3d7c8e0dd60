// Package tokens turns residue distance profiles into whitespace-separated token strings.
package tokens

import (
	"math"
	"sort"
	"strings"

	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-golib/errors"
)

const (
	// Cutoff is the distance beyond which a residue is tokenized by its code alone
	Cutoff = 13.08
	// SolventCode identifies water records, which never produce a token
	SolventCode = "HOH"
)

// ErrMalformedRecord is returned when a residue record has mismatched or empty distance lists
var ErrMalformedRecord = profile.ErrMalformedRecord

// ErrInvalidBinWidth is returned for a bin width that is not a positive finite number
var ErrInvalidBinWidth = errors.New("bin width must be positive and finite")

// ValidateBinWidth returns ErrInvalidBinWidth unless bw is positive and finite
func ValidateBinWidth(bw float64) error {
	if math.IsNaN(bw) || math.IsInf(bw, 0) || bw <= 0 {
		return errors.Errorf("%w: got %v", ErrInvalidBinWidth, bw)
	}
	return nil
}

// LigandSpan returns the mean over non-solvent records of max(dists) - min(dists),
// or 0 if the structure has no non-solvent records.
func LigandSpan(s profile.Structure) float64 {
	var sum float64
	var n int
	for _, r := range s {
		if r.Residue == SolventCode || len(r.Dists) == 0 {
			continue
		}
		sum += r.Span()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Boundaries returns the lower edges of the distance bins beyond Cutoff:
// Cutoff, Cutoff+binWidth, ... stopping before Cutoff+span.
func Boundaries(span, binWidth float64) []float64 {
	if span <= 0 || binWidth <= 0 {
		return nil
	}
	n := int(math.Ceil(span / binWidth))
	bounds := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, Cutoff+float64(i)*binWidth)
	}
	return bounds
}

type atomDist struct {
	atom string
	dist float64
}

// ResidueToken returns the token for one residue record. ok is false for solvent records.
func ResidueToken(r profile.Residue, span, binWidth float64) (string, bool, error) {
	if err := r.Validate(); err != nil {
		return "", false, err
	}
	if r.Residue == SolventCode {
		return "", false, nil
	}
	if r.MinDist() > Cutoff {
		return r.Residue, true, nil
	}

	pairs := make([]atomDist, len(r.Dists))
	for i := range r.Dists {
		pairs[i] = atomDist{atom: r.AtomTypes[i], dist: r.Dists[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })

	var b strings.Builder
	b.WriteString(r.Residue)
	for _, lo := range Boundaries(span, binWidth) {
		hi := lo + binWidth
		// pairs are sorted, so the first hit is the nearest atom in the bin
		for _, p := range pairs {
			if p.dist > lo && p.dist < hi {
				b.WriteByte('-')
				b.WriteString(p.atom)
				break
			}
		}
	}
	return b.String(), true, nil
}

// StructureTokens tokenizes every record of a structure and joins the tokens with single spaces.
func StructureTokens(s profile.Structure, binWidth float64) (string, error) {
	if err := ValidateBinWidth(binWidth); err != nil {
		return "", err
	}
	for i, r := range s {
		if err := r.Validate(); err != nil {
			return "", errors.Wrapf(err, "residue %d", i)
		}
	}

	span := LigandSpan(s)
	toks := make([]string, 0, len(s))
	for i, r := range s {
		tok, ok, err := ResidueToken(r, span, binWidth)
		if err != nil {
			return "", errors.Wrapf(err, "residue %d", i)
		}
		if ok {
			toks = append(toks, tok)
		}
	}
	return strings.Join(toks, " "), nil
}

// Generator tokenizes structures at a fixed bin width
type Generator struct {
	BinWidth float64
}

// Tokenize returns the token string for the structure with the given id
func (g Generator) Tokenize(id string, s profile.Structure) (string, error) {
	toks, err := StructureTokens(s, g.BinWidth)
	if err != nil {
		return "", errors.Wrapf(err, "structure %s", id)
	}
	return toks, nil
}
