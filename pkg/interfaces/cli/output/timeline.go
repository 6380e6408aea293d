package output

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
)

// Timeline draws a lot's passage through the line as an SVG bar chart, one
// row per stage
type Timeline struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// TimelineBar is one stage row
type TimelineBar struct {
	Stage     entities.Stage
	Label     string
	Input     entities.Quantity
	Output    entities.Quantity
	Yield     entities.Quantity
	Entries   int
	StartTime time.Time
	EndTime   time.Time
	X         int
	Width     int
	Color     string
}

// NewTimeline sizes a timeline for the trace
func NewTimeline(trace *dto.LotTrace) *Timeline {
	if len(trace.Steps) == 0 {
		return &Timeline{
			Width:        800,
			Height:       200,
			MarginLeft:   150,
			MarginTop:    50,
			MarginRight:  50,
			MarginBottom: 50,
			RowHeight:    25,
		}
	}

	startTime := trace.Steps[0].FirstAt
	endTime := trace.Steps[0].LastAt
	for _, step := range trace.Steps {
		if step.FirstAt.Before(startTime) {
			startTime = step.FirstAt
		}
		if step.LastAt.After(endTime) {
			endTime = step.LastAt
		}
	}

	// Pad by 10% and never show less than one day
	totalDuration := endTime.Sub(startTime)
	if totalDuration < 24*time.Hour {
		totalDuration = 24 * time.Hour
	}
	padding := time.Duration(float64(totalDuration) * 0.1)
	startTime = startTime.Add(-padding)
	endTime = startTime.Add(totalDuration + 2*padding)

	rowHeight := 30
	return &Timeline{
		Width:        1000,
		Height:       len(trace.Steps)*rowHeight + 170,
		MarginLeft:   150,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 80,
		RowHeight:    rowHeight,
		StartTime:    startTime,
		EndTime:      endTime,
	}
}

// GenerateSVG renders the trace
func (tl *Timeline) GenerateSVG(trace *dto.LotTrace) string {
	if len(trace.Steps) == 0 {
		return tl.generateEmptyChart(trace.LotID)
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, tl.Width, tl.Height))
	svg.WriteString(`<defs><style>`)
	svg.WriteString(`.stage-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.stage-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.bar-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style></defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, tl.Width, tl.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">Lot %s: overall yield %s%%</text>`,
		tl.Width/2, html.EscapeString(trace.LotID), trace.OverallYieldPct))

	bars := tl.createBars(trace.Steps)
	tl.drawTimeAxis(&svg)
	tl.drawTimeGrid(&svg, len(bars))
	for i, bar := range bars {
		tl.drawRow(&svg, bar, tl.MarginTop+i*tl.RowHeight)
	}
	tl.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (tl *Timeline) createBars(steps []dto.TraceStep) []TimelineBar {
	chartWidth := tl.Width - tl.MarginLeft - tl.MarginRight
	totalDuration := tl.EndTime.Sub(tl.StartTime)

	bars := make([]TimelineBar, 0, len(steps))
	for _, step := range steps {
		startOffset := step.FirstAt.Sub(tl.StartTime)
		duration := step.LastAt.Sub(step.FirstAt)

		x := tl.MarginLeft + int(float64(startOffset)/float64(totalDuration)*float64(chartWidth))
		width := int(float64(duration) / float64(totalDuration) * float64(chartWidth))
		if width < 6 {
			width = 6
		}

		bars = append(bars, TimelineBar{
			Stage:     step.Stage,
			Label:     step.DisplayName,
			Input:     step.InputQty,
			Output:    step.OutputQty,
			Yield:     step.YieldPct,
			Entries:   len(step.Logs),
			StartTime: step.FirstAt,
			EndTime:   step.LastAt,
			X:         x,
			Width:     width,
			Color:     stageColor(step.Stage),
		})
	}
	return bars
}

func (tl *Timeline) interval() (time.Duration, string) {
	days := int(math.Ceil(tl.EndTime.Sub(tl.StartTime).Hours() / 24))
	switch {
	case days <= 2:
		return 6 * time.Hour, "Jan 2 15:04"
	case days <= 30:
		return 24 * time.Hour, "Jan 2"
	default:
		return 7 * 24 * time.Hour, "Jan 2"
	}
}

func (tl *Timeline) xFor(t time.Time) int {
	chartWidth := tl.Width - tl.MarginLeft - tl.MarginRight
	offset := t.Sub(tl.StartTime)
	return tl.MarginLeft + int(float64(offset)/float64(tl.EndTime.Sub(tl.StartTime))*float64(chartWidth))
}

func (tl *Timeline) drawTimeAxis(svg *strings.Builder) {
	interval, labelFormat := tl.interval()
	axisY := tl.Height - tl.MarginBottom

	for t := tl.StartTime.Truncate(interval); t.Before(tl.EndTime); t = t.Add(interval) {
		x := tl.xFor(t)
		if x >= tl.MarginLeft && x <= tl.Width-tl.MarginRight {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
				x, axisY+15, t.Format(labelFormat)))
		}
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		tl.MarginLeft, axisY, tl.Width-tl.MarginRight, axisY))
}

func (tl *Timeline) drawTimeGrid(svg *strings.Builder, numRows int) {
	interval, _ := tl.interval()
	gridBottom := tl.MarginTop + numRows*tl.RowHeight

	for t := tl.StartTime.Truncate(interval); t.Before(tl.EndTime); t = t.Add(interval) {
		x := tl.xFor(t)
		if x >= tl.MarginLeft && x <= tl.Width-tl.MarginRight {
			svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
				x, tl.MarginTop, x, gridBottom))
		}
	}
}

func (tl *Timeline) drawRow(svg *strings.Builder, bar TimelineBar, y int) {
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="stage-label" text-anchor="end">%s</text>`,
		tl.MarginLeft-15, y+tl.RowHeight/2+4, html.EscapeString(bar.Label)))
	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		tl.MarginLeft, y+tl.RowHeight, tl.Width-tl.MarginRight, y+tl.RowHeight))

	barHeight := tl.RowHeight - 4
	barY := y + 2
	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="stage-bar">`,
		bar.X, barY, bar.Width, barHeight, bar.Color))
	svg.WriteString(fmt.Sprintf(`<title>%s: %d entries, in %s, out %s, yield %s%%, %s to %s</title></rect>`,
		html.EscapeString(bar.Label), bar.Entries, bar.Input, bar.Output, bar.Yield,
		bar.StartTime.Format("2006-01-02 15:04"), bar.EndTime.Format("2006-01-02 15:04")))

	if bar.Width > 60 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="bar-text" text-anchor="middle">%s kg</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, bar.Output))
	}
}

func (tl *Timeline) drawLegend(svg *strings.Builder) {
	legendX := tl.Width - tl.MarginRight - 180
	legendY := tl.Height - tl.MarginBottom + 30

	items := []struct {
		color string
		label string
	}{
		{"#8D6E63", "Raw nut handling"},
		{"#4CAF50", "Kernel processing"},
		{"#2196F3", "Packing and dispatch"},
	}
	for i, item := range items {
		itemY := legendY + i*12
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`, legendX, itemY, item.color))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`, legendX+20, itemY+8, item.label))
	}
}

func stageColor(stage entities.Stage) string {
	switch stage {
	case entities.StageIntake, entities.StageDrying, entities.StageSteaming:
		return "#8D6E63"
	case entities.StageShelling, entities.StageKernelDrying, entities.StagePeeling, entities.StageGrading:
		return "#4CAF50"
	case entities.StagePackaging, entities.StageDispatch:
		return "#2196F3"
	default:
		return "#9E9E9E"
	}
}

func (tl *Timeline) generateEmptyChart(lotID string) string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No stage entries for lot %s</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, tl.Width, tl.Height, tl.Width, tl.Height, tl.Width/2, tl.Height/2, html.EscapeString(lotID))
}
