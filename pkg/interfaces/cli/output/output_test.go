package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	testhelpers "github.com/vsinha/cashew/pkg/infrastructure/testing"
)

func sampleTrace() *dto.LotTrace {
	logs := testhelpers.BuildLotLogs()
	step := func(log *entities.ProductionLog) dto.TraceStep {
		return dto.TraceStep{
			Stage:       log.Stage,
			DisplayName: log.Stage.DisplayName(),
			InputQty:    log.InputQty,
			OutputQty:   log.OutputQty,
			YieldPct:    log.Yield(),
			FirstAt:     log.RecordedAt,
			LastAt:      log.RecordedAt.Add(30 * time.Minute),
			Logs:        []*entities.ProductionLog{log},
		}
	}
	return &dto.LotTrace{
		LotID:           "LOT-1",
		Steps:           []dto.TraceStep{step(logs[0]), step(logs[1]), step(logs[2]), step(logs[3])},
		QualityChecks:   []*entities.ProductionLog{logs[4]},
		MissingStages:   []entities.Stage{entities.StageDrying},
		CurrentStage:    entities.StageGrading,
		IntakeKg:        entities.Qty(1000),
		FinalOutputKg:   entities.Qty(230),
		OverallYieldPct: entities.Qty(23),
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, " csv ": FormatCSV, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestRender_ItemsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText).Render(testhelpers.BuildStockItems()))

	out := buf.String()
	assert.Contains(t, out, "Raw Cashew Nuts")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasSuffix(lines[3], "LOW"), "vacuum bags row should be flagged: %q", lines[3])
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatJSON).Render(sampleTrace()))

	var decoded dto.LotTrace
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "LOT-1", decoded.LotID)
	assert.Equal(t, []entities.Stage{entities.StageDrying}, decoded.MissingStages)
}

func TestRender_TraceText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatText).Render(sampleTrace()))

	out := buf.String()
	assert.Contains(t, out, "Lot LOT-1, at Grading")
	assert.Contains(t, out, "overall yield 23%")
	assert.Contains(t, out, "Missing stages: RCN Drying")
	assert.Contains(t, out, "Quality check 2025-03-14 16:00: pass")
}

func TestRender_DailyCSV(t *testing.T) {
	report := &dto.DailyReport{
		Date: testhelpers.Day,
		Stages: []dto.StageSummary{
			{Stage: entities.StageIntake, LogCount: 2, InputQty: entities.Qty(1500), OutputQty: entities.Qty(1500), YieldPct: entities.Qty(100)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, FormatCSV).Render(report))
	assert.Equal(t, "date,stage,entries,input_qty,output_qty,yield_pct\n2025-03-14,intake,2,1500,1500,100\n", buf.String())
}

func TestRender_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, New(&buf, FormatText).Render(42))
	assert.Error(t, New(&buf, FormatCSV).Render(&dto.Summary{Text: "x"}))
}

func TestTimeline_GenerateSVG(t *testing.T) {
	trace := sampleTrace()
	svg := NewTimeline(trace).GenerateSVG(trace)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, len(trace.Steps), strings.Count(svg, `class="stage-bar"`))
	assert.Contains(t, svg, "Lot LOT-1: overall yield 23%")

	empty := &dto.LotTrace{LotID: "<LOT>"}
	out := NewTimeline(empty).GenerateSVG(empty)
	assert.Contains(t, out, "No stage entries for lot &lt;LOT&gt;")
}
