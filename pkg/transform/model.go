package transform

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Predictions overlays model predictions on the actual values, with an
// optional error band of one residual standard deviation around the
// prediction.
type Predictions struct {
	base
	actual, predicted string
}

func NewPredictions(id, actual, predicted, color string) *Predictions {
	return &Predictions{base: base{id: id, color: color}, actual: actual, predicted: predicted}
}

func (p *Predictions) Parameters() []params.Parameter {
	return []params.Parameter{params.Bool(p.param("band"), true)}
}

func (p *Predictions) RelevantParams() []string   { return []string{p.param("band")} }
func (p *Predictions) Warmup(params.Snapshot) int { return 0 }

func (p *Predictions) Compute(in derived.Input) (derived.Series, error) {
	if err := requireColumns(in, p.actual, p.predicted); err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, 2); err != nil {
		return derived.Series{}, err
	}
	showBand, err := in.Params.Bool(p.param("band"))
	if err != nil {
		return derived.Series{}, err
	}

	actual := in.Trim(in.Column(p.actual))
	predicted := in.Trim(in.Column(p.predicted))

	residuals := lo.Map(actual, func(a float64, i int) float64 { return a - predicted[i] })
	squared := lo.Map(residuals, func(r float64, _ int) float64 { return r * r })
	absolute := lo.Map(residuals, func(r float64, _ int) float64 { return math.Abs(r) })
	std := stat.StdDev(residuals, nil)

	series := derived.Series{
		Lines: []derived.Line{
			timeLine(in, "Actual", derived.StyleLine, "", actual),
			timeLine(in, "Predicted", derived.StyleLine, p.color, predicted),
		},
		Scores: map[string]float64{
			"residual_std": std,
			"rmse":         math.Sqrt(stat.Mean(squared, nil)),
			"mae":          stat.Mean(absolute, nil),
		},
	}

	if showBand {
		band := timeLine(in, "Error Band", derived.StyleBand, p.color,
			lo.Map(predicted, func(v float64, _ int) float64 { return v + std }))
		band.Lower = lo.Map(predicted, func(v float64, _ int) float64 { return v - std })
		series.Lines = append(series.Lines, band)
	}
	return series, nil
}

// Predictor classifies a point of a two dimensional feature space.
type Predictor interface {
	Predict(x, y float64) float64
}

type PredictorFunc func(x, y float64) float64

func (f PredictorFunc) Predict(x, y float64) float64 { return f(x, y) }

// DecisionBoundary samples a classifier over a grid covering the feature
// columns x and y, extended by one unit on every side, and plots the data
// points by class on top of it.
type DecisionBoundary struct {
	base
	model      Predictor
	x, y       string
	label      string
	resolution int
}

func NewDecisionBoundary(id string, model Predictor, x, y, label string) *DecisionBoundary {
	return &DecisionBoundary{base: base{id: id}, model: model, x: x, y: y, label: label, resolution: 100}
}

func (d *DecisionBoundary) Parameters() []params.Parameter {
	return []params.Parameter{params.Int(d.param("resolution"), d.resolution, 2, 1000)}
}

func (d *DecisionBoundary) RelevantParams() []string   { return []string{d.param("resolution")} }
func (d *DecisionBoundary) FullHistory() bool          { return true }
func (d *DecisionBoundary) Warmup(params.Snapshot) int { return 0 }

func (d *DecisionBoundary) Compute(in derived.Input) (derived.Series, error) {
	if err := requireColumns(in, d.x, d.y); err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, 1); err != nil {
		return derived.Series{}, err
	}
	resolution, err := in.Params.Int(d.param("resolution"))
	if err != nil {
		return derived.Series{}, err
	}

	xs, ys := in.Column(d.x), in.Column(d.y)
	grid := &derived.Grid{
		X: floats.Span(make([]float64, resolution), xs.Min()-1, xs.Max()+1),
		Y: floats.Span(make([]float64, resolution), ys.Min()-1, ys.Max()+1),
		Z: make([][]float64, resolution),
	}
	for j, gy := range grid.Y {
		row := make([]float64, resolution)
		for i, gx := range grid.X {
			row[i] = d.model.Predict(gx, gy)
		}
		grid.Z[j] = row
	}

	series := derived.Series{Grid: grid}
	if d.label == "" || !in.HasColumn(d.label) {
		series.Lines = []derived.Line{{Name: "Data", Style: derived.StyleScatter, X: xs, Values: ys}}
		return series, nil
	}

	labels := in.Column(d.label)
	for _, class := range sortedUnique(labels) {
		line := derived.Line{Name: "Class " + formatLabel(class), Style: derived.StyleScatter}
		for i, l := range labels {
			if l == class {
				line.X = append(line.X, xs[i])
				line.Values = append(line.Values, ys[i])
			}
		}
		series.Lines = append(series.Lines, line)
	}
	return series, nil
}

// ConfusionMatrix counts actual against predicted class labels over the
// whole series.
type ConfusionMatrix struct {
	base
	actual, predicted string
}

func NewConfusionMatrix(id, actual, predicted string) *ConfusionMatrix {
	return &ConfusionMatrix{base: base{id: id}, actual: actual, predicted: predicted}
}

func (c *ConfusionMatrix) RelevantParams() []string   { return nil }
func (c *ConfusionMatrix) FullHistory() bool          { return true }
func (c *ConfusionMatrix) Warmup(params.Snapshot) int { return 0 }

func (c *ConfusionMatrix) Compute(in derived.Input) (derived.Series, error) {
	if err := requireColumns(in, c.actual, c.predicted); err != nil {
		return derived.Series{}, err
	}
	if err := requireBars(in, 1); err != nil {
		return derived.Series{}, err
	}

	actual, predicted := in.Column(c.actual), in.Column(c.predicted)
	classes := sortedUnique(append(append([]float64(nil), actual...), predicted...))
	index := make(map[float64]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}

	counts := make([][]int, len(classes))
	for i := range counts {
		counts[i] = make([]int, len(classes))
	}
	correct := 0
	for i := range actual {
		counts[index[actual[i]]][index[predicted[i]]]++
		if actual[i] == predicted[i] {
			correct++
		}
	}

	return derived.Series{
		Matrix: &derived.Matrix{
			Labels: lo.Map(classes, func(v float64, _ int) string { return formatLabel(v) }),
			Counts: counts,
		},
		Scores: map[string]float64{"accuracy": float64(correct) / float64(len(actual))},
	}, nil
}

// ROC plots the receiver operating characteristic of a binary classifier
// score against 0/1 labels and reports the area under the curve.
type ROC struct {
	base
	label, score string
}

func NewROC(id, label, score, color string) *ROC {
	return &ROC{base: base{id: id, color: color}, label: label, score: score}
}

func (r *ROC) RelevantParams() []string   { return nil }
func (r *ROC) FullHistory() bool          { return true }
func (r *ROC) Warmup(params.Snapshot) int { return 0 }

func (r *ROC) Compute(in derived.Input) (derived.Series, error) {
	if err := requireColumns(in, r.label, r.score); err != nil {
		return derived.Series{}, err
	}

	scores := append([]float64(nil), in.Column(r.score)...)
	classes := lo.Map(in.Column(r.label), func(l float64, _ int) bool { return l > 0.5 })

	positives := lo.Count(classes, true)
	if positives == 0 || positives == len(classes) {
		return derived.Series{}, fmt.Errorf("%w: ROC needs both classes", ErrNotEnoughData)
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)

	return derived.Series{
		Lines: []derived.Line{
			{Name: fmt.Sprintf("ROC (AUC = %.2f)", auc), Style: derived.StyleLine, Color: r.color, X: fpr, Values: tpr},
			{Name: "Random", Style: derived.StyleLine, X: []float64{0, 1}, Values: []float64{0, 1}},
		},
		Scores: map[string]float64{"auc": auc},
	}, nil
}

func sortedUnique(values []float64) []float64 {
	out := lo.Uniq(values)
	sort.Float64s(out)
	return out
}

func formatLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
