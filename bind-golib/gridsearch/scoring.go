package gridsearch

import "math"

// Scorer rates predictions against the truth; greater is better.
type Scorer func(yTrue, yPred []float64) float64

// MSE returns the mean squared error of the predictions
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue))
}

// NegMSE is the negated mean squared error, so that greater is better
func NegMSE(yTrue, yPred []float64) float64 {
	return -MSE(yTrue, yPred)
}
