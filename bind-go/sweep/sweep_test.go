package sweep

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/bindlab/bind/bind-go/affinity"
	"github.com/bindlab/bind/bind-go/dataset"
	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-go/tokens"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/taskgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T, src profile.Source) *Env {
	store, err := dataset.OpenStore(t.TempDir())
	require.NoError(t, err)

	profiles := make(profile.Profiles)
	refined := make(dataset.Labels)
	core := make(dataset.Labels)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("s%02d", i)
		if i%2 == 0 {
			profiles[id] = profile.Structure{{Residue: "ALA", AtomTypes: []string{"C", "N"}, Dists: []float64{10, 20}}}
		} else {
			profiles[id] = profile.Structure{{Residue: "GLY", AtomTypes: []string{"C"}, Dists: []float64{30}}}
		}
		if i < 16 {
			refined[id] = float64(10 * (1 - i%2))
		} else {
			core[id] = float64(10 * (1 - i%2))
		}
	}
	if src == nil {
		src = profile.MemorySource(profiles)
	}

	model := affinity.DefaultConfig()
	model.Trees = 3
	return &Env{
		Store:    store,
		Profiles: profile.NewLazy(src),
		Refined:  refined,
		Core:     core,
		Model:    model,
		Workers:  2,
	}
}

func TestRun(t *testing.T) {
	env := testEnv(t, nil)
	var out bytes.Buffer
	env.Out = &out

	outcomes, err := Run(context.Background(), env, []float64{5, 3, 5}, 2)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, taskgraph.Done, o.Status)
		require.NotNil(t, o.Report)
		assert.Equal(t, 16, o.Report.TrainRows)
		assert.Equal(t, 4, o.Report.TestRows)
	}
	assert.Equal(t, 5., outcomes[0].BinWidth)
	assert.Contains(t, out.String(), "bin width 3")
	assert.Contains(t, out.String(), "bin width 5")

	refined, err := env.Store.Get(NewTokensTask(env, 5).Artifact(dataset.Refined))
	require.NoError(t, err)
	assert.Equal(t, dataset.Row{ID: "s00", Tokens: "ALA-N", Label: 10}, refined[0])
	assert.Equal(t, dataset.Row{ID: "s01", Tokens: "GLY", Label: 0}, refined[1])
}

func TestRerunKeepsArtifacts(t *testing.T) {
	env := testEnv(t, nil)
	tokens := NewTokensTask(env, 4)

	_, err := Run(context.Background(), env, []float64{4}, 1)
	require.NoError(t, err)

	key := tokens.Artifact(dataset.Refined)
	before, err := env.Store.ModTime(key)
	require.NoError(t, err)

	// a second sweep finds the tokens complete and still models the bin width
	outcomes, err := Run(context.Background(), env, []float64{4}, 1)
	require.NoError(t, err)
	require.NotNil(t, outcomes[0].Report)

	after, err := env.Store.ModTime(key)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRFWithoutTokens(t *testing.T) {
	env := testEnv(t, nil)
	rf := NewRFTask(env, 6)

	err := rf.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, taskgraph.ErrUnmetDependency))
	assert.Contains(t, err.Error(), "tokens(6)")
	assert.False(t, rf.Complete())
}

func TestFailedTokens(t *testing.T) {
	env := testEnv(t, profile.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")})

	outcomes, err := Run(context.Background(), env, []float64{5}, 1)
	require.Error(t, err)
	assert.Equal(t, taskgraph.Failed, outcomes[0].Status)
	assert.True(t, errors.Is(outcomes[0].Err, taskgraph.ErrUnmetDependency))
	assert.Nil(t, outcomes[0].Report)
}

func TestBinWidthsIndependent(t *testing.T) {
	env := testEnv(t, nil)

	// empty tables for bin width 4 make its modeling fail
	broken := NewTokensTask(env, 4)
	require.NoError(t, env.Store.Put(broken.Artifact(dataset.Refined), dataset.Dataset{}))
	require.NoError(t, env.Store.Put(broken.Artifact(dataset.Core), dataset.Dataset{}))

	outcomes, err := Run(context.Background(), env, []float64{5, 4, 3}, 3)
	require.Error(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, taskgraph.Done, outcomes[0].Status)
	assert.Equal(t, taskgraph.Failed, outcomes[1].Status)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, taskgraph.Done, outcomes[2].Status)

	path := filepath.Join(t.TempDir(), "sweep.png")
	require.NoError(t, WriteChart(path, outcomes))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, fi.Size() > 0)

	assert.Error(t, WriteChart(path, outcomes[:1]))
}

func TestMaterialize(t *testing.T) {
	env := testEnv(t, nil)
	require.NoError(t, Materialize(context.Background(), env, []float64{2.5}, 1))
	assert.True(t, NewTokensTask(env, 2.5).Complete())
	assert.False(t, NewTokensTask(env, 3).Complete())
}

func TestInvalidBinWidth(t *testing.T) {
	for _, bw := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		env := testEnv(t, nil)
		_, err := Run(context.Background(), env, []float64{5, bw}, 1)
		require.Error(t, err, "bin width %v", bw)
		assert.True(t, errors.Is(err, tokens.ErrInvalidBinWidth))

		err = Materialize(context.Background(), env, []float64{5, bw}, 1)
		require.Error(t, err, "bin width %v", bw)
		assert.True(t, errors.Is(err, tokens.ErrInvalidBinWidth))

		// nothing is stored, not even the valid width
		assert.False(t, NewTokensTask(env, 5).Complete())
		assert.False(t, NewTokensTask(env, bw).Complete())
	}
}
