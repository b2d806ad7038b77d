package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/metric"
	"github.com/raykavin/chartsync/pkg/panel"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/session"
	"github.com/raykavin/chartsync/pkg/storage"
	"github.com/raykavin/chartsync/pkg/window"
	"github.com/schollz/progressbar/v3"
)

const dateLayout = "2006-01-02"

// parseDate accepts a plain date or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s or RFC 3339", value, dateLayout)
	}
	return t, nil
}

// pointAt returns the close of the first bar at or after t.
func pointAt(series *core.Series, t time.Time) (core.Point, error) {
	i := series.Index(t)
	if i >= series.Len() {
		return core.Point{}, &core.RangeError{Requested: core.NewRange(t, t), Span: series.Span(), Reason: "after the last bar"}
	}
	bar := series.Bar(i)
	return core.Point{Time: bar.Time, Price: bar.Close}, nil
}

// warmUp computes every overlay for the current view once, so the first
// frames are served from the cache.
func warmUp(ctx context.Context, s *session.Session) error {
	w, err := window.Slice(s.Series(), s.Bus().Current().Range)
	if err != nil {
		return err
	}

	ids := s.Engine().Transforms()
	progressBar := progressbar.Default(int64(len(ids)), "computing overlays")
	for _, id := range ids {
		if _, err := s.Engine().Compute(ctx, id, w, s.Params()); err != nil {
			log.WithError(err).Warnf("overlay %s unavailable", id)
		}
		if err := progressBar.Add(1); err != nil {
			log.Warnf("update progressbar fail: %v", err)
		}
	}
	return progressBar.Close()
}

// settle waits until every recorder drew version or later.
func settle(ctx context.Context, recorders map[string]*panel.Recorder, version uint64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		pending := 0
		for _, r := range recorders {
			if scene, ok := r.Last(); !ok || scene.Version < version {
				pending++
			}
		}
		if pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%d panels did not reach version %d: %w", pending, version, ctx.Err())
		case <-ticker.C:
		}
	}
}

func panelTable(s *session.Session, recorders map[string]*panel.Recorder) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Panel", "Mode", "Version", "Renders", "Overlays", "Failed"})

	for _, id := range s.Panels() {
		recorder := recorders[id]
		scene, ok := recorder.Last()
		if !ok {
			table.Append([]string{id, "-", "-", "0", "-", "-"})
			continue
		}

		failed := 0
		for _, overlay := range scene.Overlays {
			if overlay.Failed() {
				failed++
			}
		}
		table.Append([]string{
			id,
			string(scene.Main.Kind),
			strconv.FormatUint(scene.Version, 10),
			strconv.Itoa(recorder.Len()),
			strconv.Itoa(len(scene.Overlays)),
			strconv.Itoa(failed),
		})
	}
	table.Render()
	return buffer.String()
}

func overlayTable(v storage.View) string {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Overlay", "Lines", "Warm-up", "Scores / Error"})

	ids := make([]string, 0, len(v.Overlays)+len(v.Errors))
	for id := range v.Overlays {
		ids = append(ids, id)
	}
	for id := range v.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if msg, failed := v.Errors[id]; failed {
			table.Append([]string{id, "-", "-", msg})
			continue
		}

		series := v.Overlays[id]
		names := make([]string, 0, len(series.Lines))
		for _, line := range series.Lines {
			names = append(names, line.Name)
		}
		if series.Grid != nil {
			names = append(names, "grid")
		}
		if series.Matrix != nil {
			names = append(names, "matrix")
		}

		scores := make([]string, 0, len(series.Scores))
		for name, value := range series.Scores {
			scores = append(scores, fmt.Sprintf("%s=%.3f", name, value))
		}
		sort.Strings(scores)

		table.Append([]string{id, strings.Join(names, ", "), strconv.Itoa(series.Warmup), strings.Join(scores, " ")})
	}
	table.Render()
	return buffer.String()
}

func pnlTable(result pnl.Result) string {
	buffer := &strings.Builder{}
	table := tablewriter.NewWriter(buffer)

	data := [][]string{
		{"Direction", string(result.Direction)},
		{"Entry", fmt.Sprintf("%s @ %.4f", result.Entry.Time.Format(time.DateTime), result.Entry.Price)},
		{"Exit", fmt.Sprintf("%s @ %.4f", result.Exit.Time.Format(time.DateTime), result.Exit.Price)},
		{"Size", fmt.Sprintf("%.4f", result.Size)},
		{"P&L", fmt.Sprintf("%.4f", result.Absolute)},
		{"P&L %", fmt.Sprintf("%.2f %%", result.Percent)},
		{"Holding", result.Duration.String()},
	}

	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()
	return buffer.String()
}

// printReturns draws the distribution of bar returns inside the visible
// window and their bootstrap confidence intervals.
func printReturns(out io.Writer, w window.Window) {
	closes := w.Column(core.ColumnClose)
	returns := metric.Returns(closes)
	if len(returns) == 0 {
		fmt.Fprintln(out, "not enough bars for returns")
		return
	}

	returnsPercent := make([]float64, len(returns))
	for i, r := range returns {
		returnsPercent[i] = r * 100
	}

	fmt.Fprintln(out, "------ RETURN -------")
	hist := histogram.Hist(15, returnsPercent)
	if err := histogram.Fprint(out, hist, histogram.Linear(10)); err != nil {
		log.WithError(err).Warn("drawing histogram")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "------ CONFIDENCE INTERVAL (95%) -------")
	mean := metric.Bootstrap(returns, metric.Mean, 10000, 0.95)
	payoff := metric.Bootstrap(returns, metric.Payoff, 10000, 0.95)
	profitFactor := metric.Bootstrap(returns, metric.ProfitFactor, 10000, 0.95)

	fmt.Fprintf(out, "RETURN:      %.2f%% (%.2f%% ~ %.2f%%)\n", mean.Mean*100, mean.Lower*100, mean.Upper*100)
	fmt.Fprintf(out, "PAYOFF:      %.2f (%.2f ~ %.2f)\n", payoff.Mean, payoff.Lower, payoff.Upper)
	fmt.Fprintf(out, "PROF.FACTOR: %.2f (%.2f ~ %.2f)\n", profitFactor.Mean, profitFactor.Lower, profitFactor.Upper)
	fmt.Fprintf(out, "MAX DRAWDOWN: %.2f%%\n", metric.MaxDrawdown(closes)*100)
}
