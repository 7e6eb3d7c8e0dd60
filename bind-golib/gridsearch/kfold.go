package gridsearch

import "github.com/bindlab/bind/bind-golib/errors"

// Fold holds the row indices used to train and test one cross-validation split
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n rows into k contiguous test folds without shuffling. The first n%k folds
// hold one extra row.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, errors.Errorf("k-fold cross-validation needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, errors.Errorf("cannot split %d samples into %d folds", n, k)
	}

	folds := make([]Fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size

		var fold Fold
		for j := 0; j < n; j++ {
			if j >= start && j < end {
				fold.Test = append(fold.Test, j)
			} else {
				fold.Train = append(fold.Train, j)
			}
		}
		folds = append(folds, fold)
		start = end
	}
	return folds, nil
}
