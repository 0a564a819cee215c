package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/httputil"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/pipeline"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/units"
)

func classColor(c pipeline.Class) string {
	switch c {
	case pipeline.Violation:
		return "#e53935"
	case pipeline.Warning:
		return "#fdd835"
	case pipeline.Normal:
		return "#43a047"
	default:
		return "#9e9e9e"
	}
}

// speedChart renders current and peak speed per live track as a bar chart.
func (s *Server) speedChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.unitsParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	snap, _ := s.opts.Latest.Load()
	x := make([]string, 0, len(snap.Tracks))
	current := make([]opts.BarData, 0, len(snap.Tracks))
	peak := make([]opts.BarData, 0, len(snap.Tracks))
	for _, t := range snap.Tracks {
		x = append(x, "id "+strconv.Itoa(t.ID))
		current = append(current, opts.BarData{
			Value:     round2(units.FromKMPH(t.Speed, u)),
			ItemStyle: &opts.ItemStyle{Color: classColor(t.Class)},
		})
		peak = append(peak, opts.BarData{Value: round2(units.FromKMPH(t.PeakSpeed, u))})
	}

	limit := units.FromKMPH(s.opts.Config.GetSpeedLimit(), u)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vehicle speeds", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Vehicle speeds (" + units.Label(u) + ")",
			Subtitle: fmt.Sprintf("frame %d at %s, limit %.0f %s", snap.FrameIndex, snap.Timestamp.Round(time.Millisecond), limit, units.Label(u)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("current", current,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("peak", peak)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
