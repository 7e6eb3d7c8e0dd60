// Package gridsearch selects estimator hyperparameters by exhaustive k-fold cross-validation.
package gridsearch

import (
	"fmt"
	"sort"
	"strings"
)

// Params assigns a value to each named hyperparameter
type Params map[string]float64

// Names returns the parameter names in sorted order
func (p Params) Names() []string {
	var names []string
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the parameters as sorted name=value pairs
func (p Params) String() string {
	var parts []string
	for _, name := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%v", name, p[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Grid lists the candidate values of each hyperparameter
type Grid map[string][]float64

// Expand returns every combination of the grid's values. Names are iterated in sorted
// order with the last name varying fastest. An empty grid expands to a single empty Params
// and a name with no values expands to nothing.
func (g Grid) Expand() []Params {
	var names []string
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []Params{{}}
	for _, name := range names {
		var next []Params
		for _, p := range out {
			for _, v := range g[name] {
				q := make(Params, len(p)+1)
				for k, x := range p {
					q[k] = x
				}
				q[name] = v
				next = append(next, q)
			}
		}
		out = next
	}
	return out
}
