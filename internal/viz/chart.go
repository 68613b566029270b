// Package viz renders chart artifacts from tabular data. No model call is
// involved: the orchestrating model supplies rows (typically query results)
// and gets back the path of the rendered PNG.
package viz

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
)

// Kind names a supported chart type.
type Kind string

const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
	KindPie  Kind = "pie"
)

// Render draws the table as the requested chart kind into w as a PNG.
func Render(kind Kind, title, xLabel, yLabel string, table Table, w io.Writer) error {
	if len(table.Rows) == 0 {
		return ErrEmptyData
	}
	series := table.SeriesColumns()
	if len(series) == 0 {
		return fmt.Errorf("%w: no numeric columns", ErrInvalidData)
	}

	switch kind {
	case KindBar:
		return renderBar(title, table, series[0], w)
	case KindLine:
		return renderLine(title, xLabel, yLabel, table, series, w)
	case KindPie:
		return renderPie(title, table, series[0], w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedChartKind, kind)
	}
}

// RenderMulti draws every numeric column as its own series: lines for
// KindLine, stacked bars for KindBar.
func RenderMulti(kind Kind, title, xLabel, yLabel string, table Table, w io.Writer) error {
	if len(table.Rows) == 0 {
		return ErrEmptyData
	}
	series := table.SeriesColumns()
	if len(series) == 0 {
		return fmt.Errorf("%w: need at least one data series after the x column", ErrInvalidData)
	}

	switch kind {
	case KindLine:
		return renderLine(title, xLabel, yLabel, table, series, w)
	case KindBar:
		return renderStackedBar(title, table, series, w)
	default:
		return fmt.Errorf("%w: %q (multi-series supports bar and line)", ErrUnsupportedChartKind, kind)
	}
}

func renderBar(title string, table Table, valueCol string, w io.Writer) error {
	bars := make([]chart.Value, 0, len(table.Rows))
	for _, row := range table.Rows {
		v, ok := numeric(row[valueCol])
		if !ok {
			continue
		}
		bars = append(bars, chart.Value{Label: table.Label(row), Value: v})
	}
	if len(bars) == 0 {
		return ErrEmptyData
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    1024,
		Height:   576,
		BarWidth: 48,
		Bars:     bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering bar chart: %w", err)
	}
	return nil
}

func renderLine(title, xLabel, yLabel string, table Table, seriesCols []string, w io.Writer) error {
	xs := make([]float64, len(table.Rows))
	ticks := make([]chart.Tick, len(table.Rows))
	for i, row := range table.Rows {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: table.Label(row)}
	}

	var series []chart.Series
	for _, col := range seriesCols {
		ys := make([]float64, len(table.Rows))
		for i, row := range table.Rows {
			v, _ := numeric(row[col])
			ys[i] = v
		}
		series = append(series, chart.ContinuousSeries{Name: col, XValues: xs, YValues: ys})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1024,
		Height: 576,
		XAxis:  chart.XAxis{Name: xLabel, Ticks: ticks},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: series,
	}
	if len(seriesCols) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering line chart: %w", err)
	}
	return nil
}

func renderPie(title string, table Table, valueCol string, w io.Writer) error {
	values := make([]chart.Value, 0, len(table.Rows))
	for _, row := range table.Rows {
		v, ok := numeric(row[valueCol])
		if !ok || v <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: table.Label(row), Value: v})
	}
	if len(values) == 0 {
		return ErrEmptyData
	}

	graph := chart.PieChart{
		Title:  title,
		Width:  768,
		Height: 768,
		Values: values,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering pie chart: %w", err)
	}
	return nil
}

func renderStackedBar(title string, table Table, seriesCols []string, w io.Writer) error {
	bars := make([]chart.StackedBar, 0, len(table.Rows))
	for _, row := range table.Rows {
		var values []chart.Value
		for _, col := range seriesCols {
			v, ok := numeric(row[col])
			if !ok {
				continue
			}
			values = append(values, chart.Value{Label: col, Value: v})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: table.Label(row), Values: values})
	}
	if len(bars) == 0 {
		return ErrEmptyData
	}

	graph := chart.StackedBarChart{
		Title:  title,
		Width:  1024,
		Height: 576,
		Bars:   bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering stacked bar chart: %w", err)
	}
	return nil
}
