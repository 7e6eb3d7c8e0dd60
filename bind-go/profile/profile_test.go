package profile

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	good := Residue{Residue: "ALA", AtomTypes: []string{"C", "N"}, Dists: []float64{10, 20}}
	assert.NoError(t, good.Validate())

	for _, r := range []Residue{
		{Residue: "ALA"},
		{Residue: "ALA", AtomTypes: []string{"C"}, Dists: []float64{1, 2}},
		{Residue: "ALA", AtomTypes: []string{"C", "N"}, Dists: []float64{1}},
		{Residue: "ALA", AtomTypes: []string{"C"}, Dists: []float64{math.NaN()}},
	} {
		err := r.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	}
}

func TestDistanceStats(t *testing.T) {
	r := Residue{Residue: "TYR", AtomTypes: []string{"C", "O", "N"}, Dists: []float64{14, 9.5, 20}}
	assert.Equal(t, 9.5, r.MinDist())
	assert.Equal(t, 20., r.MaxDist())
	assert.Equal(t, 10.5, r.Span())
	assert.InDelta(t, 43.5/3, r.MeanDist(), 1e-12)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distances.json.gz")
	in := Profiles{
		"1abc": {{Residue: "ALA", AtomTypes: []string{"C", "N"}, Dists: []float64{10, 20}}},
		"2xyz": {},
	}
	require.NoError(t, serialization.Encode(path, in))

	out, err := FileSource{Path: path}.Profiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"1abc", "2xyz"}, out.IDs())
	assert.Equal(t, in["1abc"], out["1abc"])

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Profiles()
	assert.Error(t, err)
}

type countingSource struct {
	loads int
	err   error
}

func (c *countingSource) Profiles() (Profiles, error) {
	c.loads++
	if c.err != nil {
		return nil, c.err
	}
	return Profiles{"1abc": nil}, nil
}

func TestLazy(t *testing.T) {
	src := &countingSource{}
	l := NewLazy(src)

	for i := 0; i < 3; i++ {
		p, err := l.Profiles()
		require.NoError(t, err)
		assert.Len(t, p, 1)
	}
	assert.Equal(t, 1, src.loads)

	l.Unload()
	_, err := l.Profiles()
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
}

func TestLazyError(t *testing.T) {
	src := &countingSource{err: fmt.Errorf("no such file")}
	l := NewLazy(src)

	_, err := l.LoadAndLock()
	require.Error(t, err)
	_, err = l.LoadAndLock()
	require.Error(t, err)
	assert.Equal(t, 1, src.loads)

	// the read lock must have been released, otherwise Unload would block
	l.Unload()
	_, err = l.Profiles()
	require.Error(t, err)
	assert.Equal(t, 2, src.loads)
}
