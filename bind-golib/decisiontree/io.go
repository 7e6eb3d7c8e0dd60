package decisiontree

import (
	"encoding/json"
	"io"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/serialization"
)

// Load reads and validates a JSON encoded Ensemble
func Load(r io.Reader) (*Ensemble, error) {
	var ensemble Ensemble
	if err := json.NewDecoder(r).Decode(&ensemble); err != nil {
		return nil, err
	}
	if err := ensemble.Validate(); err != nil {
		return nil, err
	}
	return &ensemble, nil
}

// LoadForest reads a Forest from path; the format follows the extension (e.g. forest.json.sz).
func LoadForest(path string) (*Forest, error) {
	var f Forest
	if err := serialization.Decode(path, &f); err != nil {
		return nil, err
	}
	if len(f.Trees) == 0 {
		return nil, errors.Errorf("%s: forest has no trees", path)
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &f, nil
}

// Save writes the forest to path; the format follows the extension (e.g. forest.json.sz).
func (f *Forest) Save(path string) error {
	return serialization.Encode(path, f)
}
