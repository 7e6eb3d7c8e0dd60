package affinity

import (
	"math"

	"github.com/bindlab/bind/bind-golib/gridsearch"
)

// MSE is the mean squared error of the predictions
func MSE(yTrue, yPred []float64) float64 {
	return gridsearch.MSE(yTrue, yPred)
}

// RMSE is the square root of MSE
func RMSE(yTrue, yPred []float64) float64 {
	return math.Sqrt(MSE(yTrue, yPred))
}
