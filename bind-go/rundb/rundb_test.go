package rundb

import (
	"path/filepath"
	"testing"

	"github.com/bindlab/bind/bind-go/affinity"
	"github.com/bindlab/bind/bind-go/sweep"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/gridsearch"
	"github.com/bindlab/bind/bind-golib/taskgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *DB {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRun(t *testing.T) {
	db := open(t)

	run, err := db.Start(map[string]interface{}{"bin_widths": []float64{5, 4}})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	outcomes := []sweep.Outcome{
		{
			BinWidth: 5,
			Status:   taskgraph.Done,
			Report: &affinity.Report{
				TrainRows:      16,
				TestRows:       4,
				VocabularySize: 2,
				BestScore:      -1.5,
				BestParams:     gridsearch.Params{"tfidf__min_df": 0},
				MSE:            4,
				RMSE:           2,
			},
		},
		{BinWidth: 4, Status: taskgraph.Failed, Err: errors.New("training set is empty")},
	}
	require.NoError(t, db.Finish(run, outcomes, errors.New("1 bin width failed")))

	runs, err := db.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, StatusError, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.JSONEq(t, `{"bin_widths": [5, 4]}`, runs[0].Params)

	results, err := db.Results(run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 4., results[0].BinWidth)
	assert.Equal(t, "FAILED", results[0].Status)
	assert.Nil(t, results[0].MSE)
	assert.Equal(t, "training set is empty", results[0].Error)

	assert.Equal(t, 5., results[1].BinWidth)
	assert.Equal(t, "DONE", results[1].Status)
	require.NotNil(t, results[1].CVMSE)
	assert.Equal(t, 1.5, *results[1].CVMSE)
	assert.Equal(t, 2., *results[1].RMSE)
	assert.Equal(t, "{tfidf__min_df=0}", results[1].BestParams)
}

func TestRunsNewestFirst(t *testing.T) {
	db := open(t)
	first, err := db.Start(nil)
	require.NoError(t, err)
	require.NoError(t, db.Finish(first, nil, nil))
	second, err := db.Start(nil)
	require.NoError(t, err)

	runs, err := db.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, StatusStarted, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	runs, err = db.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, StatusFinished, runs[1].Status)
}
