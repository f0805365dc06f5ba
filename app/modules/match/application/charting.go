package matchservice

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette holds the colors used by round charts.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	TopBar     drawing.Color
	Text       drawing.Color
}

// DefaultChartPalette matches the page's dark theme.
var DefaultChartPalette = ChartPalette{
	Background: drawing.ColorFromHex("1f2937"),
	Bar:        drawing.ColorFromHex("60a5fa"),
	TopBar:     drawing.ColorFromHex("facc15"),
	Text:       drawing.ColorFromHex("e5e7eb"),
}

// GenerateRoundChart produces a PNG bar chart of a round's scores, one bar per
// score in play order. The highest score is highlighted.
func GenerateRoundChart(round RoundView, palette ChartPalette) ([]byte, error) {
	if len(round.Scores) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	var top int64
	for _, s := range round.Scores {
		top = max(top, s.Score)
	}

	bars := make([]chart.Value, len(round.Scores))
	for i, s := range round.Scores {
		color := palette.Bar
		if s.Score == top {
			color = palette.TopBar
		}
		bars[i] = chart.Value{
			Label: s.PlayerName,
			Value: float64(s.Score),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
			},
		}
	}

	graph := chart.BarChart{
		Title:      round.Title,
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      max(400, 120*len(bars)),
		Height:     400,
		BarWidth:   60,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Canvas: chart.Style{FillColor: palette.Background},
		XAxis:  chart.Style{FontColor: palette.Text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.Text},
			// an explicit range keeps single-score and all-zero rounds renderable
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(top, 1)) * 1.1},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return FormatScore(int64(f))
				}
				return fmt.Sprint(v)
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render round chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const msg = "No scores in this round"

	graph := chart.BarChart{
		Width:      400,
		Height:     200,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		XAxis:      chart.Style{Hidden: true},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Bars: []chart.Value{{Value: 0}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render placeholder chart: %w", err)
	}
	return buffer.Bytes(), nil
}
