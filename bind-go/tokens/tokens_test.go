package tokens

import (
	"math"
	"testing"

	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func res(code string, atoms []string, dists []float64) profile.Residue {
	return profile.Residue{Residue: code, AtomTypes: atoms, Dists: dists}
}

func TestSingleResidueStructure(t *testing.T) {
	s := profile.Structure{res("ALA", []string{"C", "N"}, []float64{10, 20})}

	assert.Equal(t, 10., LigandSpan(s))
	assert.Equal(t, []float64{13.08, 18.08}, Boundaries(10, 5))

	toks, err := StructureTokens(s, 5)
	require.NoError(t, err)
	assert.Equal(t, "ALA-N", toks)
}

func TestBoundaries(t *testing.T) {
	assert.Empty(t, Boundaries(0, 5))
	assert.Empty(t, Boundaries(-1, 5))
	assert.Len(t, Boundaries(10, 3), 4)
	assert.Len(t, Boundaries(9, 3), 3)
	assert.Equal(t, []float64{Cutoff}, Boundaries(0.5, 7))
}

func TestFarResidue(t *testing.T) {
	r := res("GLY", []string{"C", "N", "O"}, []float64{14, 15, 30})
	tok, ok, err := ResidueToken(r, 20, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "GLY", tok)
}

func TestSolvent(t *testing.T) {
	s := profile.Structure{
		res("HOH", []string{"O"}, []float64{2}),
		res("HOH", []string{"O"}, []float64{50}),
	}
	assert.Equal(t, 0., LigandSpan(s))

	toks, err := StructureTokens(s, 5)
	require.NoError(t, err)
	assert.Equal(t, "", toks)

	s = append(s, res("SER", []string{"C", "O"}, []float64{5, 16}))
	toks, err = StructureTokens(s, 5)
	require.NoError(t, err)
	assert.Equal(t, "SER-O", toks)
}

func TestEmptyStructure(t *testing.T) {
	toks, err := StructureTokens(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, "", toks)
}

func TestNearResidueWithoutBins(t *testing.T) {
	// span 0 means no boundaries, so a near residue keeps only its code
	s := profile.Structure{res("LYS", []string{"N"}, []float64{4})}
	toks, err := StructureTokens(s, 3)
	require.NoError(t, err)
	assert.Equal(t, "LYS", toks)
}

func TestNearestAtomPerBin(t *testing.T) {
	// span 12, bin width 4: bins (13.08,17.08) (17.08,21.08) (21.08,25.08)
	r := res("ARG", []string{"CA", "NE", "CZ", "NH1", "NH2"}, []float64{6, 16, 14, 24, 18})
	tok, ok, err := ResidueToken(r, 12, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ARG-CZ-NH2-NH1", tok)
}

func TestEmptyBinAndEdges(t *testing.T) {
	// 17.08 sits on a boundary and belongs to neither bin
	r := res("ASP", []string{"C", "O1", "O2"}, []float64{1, 17.08, 22})
	tok, _, err := ResidueToken(r, 12, 4)
	require.NoError(t, err)
	assert.Equal(t, "ASP-O2", tok)
}

func TestTieKeepsInputOrder(t *testing.T) {
	r := res("GLU", []string{"OE2", "OE1", "C"}, []float64{15, 15, 3})
	tok, _, err := ResidueToken(r, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, "GLU-OE2", tok)
}

func TestDeterministic(t *testing.T) {
	s := profile.Structure{
		res("ALA", []string{"C", "N", "O"}, []float64{3, 19, 15}),
		res("HOH", []string{"O"}, []float64{7}),
		res("TRP", []string{"C", "N"}, []float64{20, 30}),
		res("VAL", []string{"CB", "CG1", "CG2"}, []float64{8, 14.5, 14.5}),
	}
	first, err := StructureTokens(s, 3)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := StructureTokens(s, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMalformed(t *testing.T) {
	for _, s := range []profile.Structure{
		{res("ALA", []string{"C"}, []float64{1, 2})},
		{res("ALA", nil, nil)},
		{res("ALA", []string{"C"}, []float64{1}), res("HOH", []string{"O", "H"}, []float64{1})},
	} {
		_, err := StructureTokens(s, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	}

	_, err := Generator{BinWidth: 5}.Tokenize("9bad", profile.Structure{res("ALA", []string{"C"}, nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9bad")
}

func TestInvalidBinWidth(t *testing.T) {
	s := profile.Structure{res("ALA", []string{"C", "N"}, []float64{10, 20})}
	for _, bw := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := StructureTokens(s, bw)
		require.Error(t, err, "bin width %v", bw)
		assert.True(t, errors.Is(err, ErrInvalidBinWidth))
	}
	assert.NoError(t, ValidateBinWidth(0.5))

	_, err := Generator{BinWidth: -1}.Tokenize("1abc", s)
	assert.True(t, errors.Is(err, ErrInvalidBinWidth))
}
