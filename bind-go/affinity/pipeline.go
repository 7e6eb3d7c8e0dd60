// Package affinity predicts binding affinity from token strings with a tf-idf + random forest pipeline.
package affinity

import (
	"github.com/bindlab/bind/bind-golib/decisiontree"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/gridsearch"
	"github.com/bindlab/bind/bind-golib/tfidf"
)

// Parameter names accepted by Pipeline.SetParams
const (
	MinDFParam          = "tfidf__min_df"
	MaxDFParam          = "tfidf__max_df"
	MaxDepthParam       = "model__max_depth"
	MaxFeaturesParam    = "model__max_features"
	MinSamplesLeafParam = "model__min_samples_leaf"
)

// Pipeline vectorizes documents and regresses their labels with a random forest
type Pipeline struct {
	Vectorizer *tfidf.Vectorizer
	Forest     *decisiontree.Forest
	Options    decisiontree.ForestOptions
}

// NewPipeline returns an unfitted pipeline
func NewPipeline(minDF, maxDF float64, opts decisiontree.ForestOptions) *Pipeline {
	return &Pipeline{
		Vectorizer: tfidf.NewVectorizer(minDF, maxDF),
		Options:    opts,
	}
}

// SetParams implements gridsearch.Estimator
func (p *Pipeline) SetParams(params gridsearch.Params) error {
	for _, name := range params.Names() {
		v := params[name]
		switch name {
		case MinDFParam:
			p.Vectorizer.MinDF = v
		case MaxDFParam:
			p.Vectorizer.MaxDF = v
		case MaxDepthParam:
			p.Options.Tree.MaxDepth = int(v)
		case MaxFeaturesParam:
			p.Options.Tree.MaxFeatures = v
		case MinSamplesLeafParam:
			p.Options.Tree.MinSamplesLeaf = int(v)
		default:
			return errors.Errorf("unknown parameter %s", name)
		}
	}
	return nil
}

// Fit implements gridsearch.Estimator
func (p *Pipeline) Fit(docs []string, y []float64) error {
	X, err := p.Vectorizer.FitTransform(docs)
	if err != nil {
		return err
	}
	forest, err := decisiontree.TrainForest(X, y, p.Options)
	if err != nil {
		return errors.Wrapf(err, "error training forest")
	}
	p.Forest = forest
	return nil
}

// Predict implements gridsearch.Estimator
func (p *Pipeline) Predict(docs []string) ([]float64, error) {
	if p.Forest == nil {
		return nil, errors.Errorf("pipeline is not fitted")
	}
	X, err := p.Vectorizer.Transform(docs)
	if err != nil {
		return nil, err
	}
	return p.Forest.Predict(X), nil
}
