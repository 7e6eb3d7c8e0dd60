package sweep

import (
	"context"
	"os"
	"sort"

	"github.com/bindlab/bind/bind-go/affinity"
	"github.com/bindlab/bind/bind-go/tokens"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/taskgraph"
	chart "github.com/wcharczuk/go-chart"
)

// DefaultBinWidths are swept when none are configured
var DefaultBinWidths = []float64{7, 6, 5, 4, 3}

// Outcome is the result of modeling one bin width
type Outcome struct {
	BinWidth float64
	Status   taskgraph.Status
	Report   *affinity.Report
	Err      error
}

// Run models every bin width, at most workers at a time. Bin widths are independent: the
// failure of one is reported in its Outcome and in the combined error, and the others run
// to completion. Outcomes are in the order of binWidths.
func Run(ctx context.Context, env *Env, binWidths []float64, workers int) ([]Outcome, error) {
	if len(binWidths) == 0 {
		binWidths = DefaultBinWidths
	}

	seen := make(map[float64]bool)
	var roots []taskgraph.Task
	var tasks []*RFTask
	for _, bw := range binWidths {
		if err := tokens.ValidateBinWidth(bw); err != nil {
			return nil, err
		}
		if seen[bw] {
			continue
		}
		seen[bw] = true
		t := NewRFTask(env, bw)
		tasks = append(tasks, t)
		roots = append(roots, t)
	}

	sched := taskgraph.New(taskgraph.Options{Workers: workers, Logger: env.Logger})
	err := sched.Build(ctx, roots...)

	outcomes := make([]Outcome, 0, len(tasks))
	for _, t := range tasks {
		outcomes = append(outcomes, Outcome{
			BinWidth: t.BinWidth,
			Status:   sched.Status(t.Key()),
			Report:   t.Report(),
			Err:      sched.Err(t.Key()),
		})
	}
	return outcomes, err
}

// Materialize stores the tokenized datasets of every bin width without modeling them
func Materialize(ctx context.Context, env *Env, binWidths []float64, workers int) error {
	if len(binWidths) == 0 {
		binWidths = DefaultBinWidths
	}
	var roots []taskgraph.Task
	for _, bw := range binWidths {
		if err := tokens.ValidateBinWidth(bw); err != nil {
			return err
		}
		roots = append(roots, NewTokensTask(env, bw))
	}
	sched := taskgraph.New(taskgraph.Options{Workers: workers, Logger: env.Logger})
	return sched.Build(ctx, roots...)
}

// WriteChart plots the cross-validated and held-out MSE of the successful outcomes against
// bin width as a PNG.
func WriteChart(path string, outcomes []Outcome) (err error) {
	var ok []Outcome
	for _, o := range outcomes {
		if o.Report != nil {
			ok = append(ok, o)
		}
	}
	if len(ok) < 2 {
		return errors.Errorf("need at least two modeled bin widths to chart, got %d", len(ok))
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].BinWidth < ok[j].BinWidth })

	var xs, cv, heldOut []float64
	for _, o := range ok {
		xs = append(xs, o.BinWidth)
		cv = append(cv, -o.Report.BestScore)
		heldOut = append(heldOut, o.Report.MSE)
	}

	graph := chart.Chart{
		Title:      "MSE by bin width",
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "Bin width",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      "MSE",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "cross-validation",
				XValues: xs,
				YValues: cv,
				Style: chart.Style{
					Show:        true,
					StrokeColor: chart.GetAlternateColor(0),
				},
			},
			chart.ContinuousSeries{
				Name:    "held-out",
				XValues: xs,
				YValues: heldOut,
				Style: chart.Style{
					Show:            true,
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)

	return graph.Render(chart.PNG, f)
}
