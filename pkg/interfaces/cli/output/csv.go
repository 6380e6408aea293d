package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/vsinha/cashew/pkg/application/dto"
)

func writeStageSummaries(w io.Writer, date string, stages []dto.StageSummary, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write([]string{"date", "stage", "entries", "input_qty", "output_qty", "yield_pct"}); err != nil {
			return err
		}
	}
	for _, s := range stages {
		if err := cw.Write([]string{
			date,
			s.Stage.String(),
			strconv.Itoa(s.LogCount),
			s.InputQty.String(),
			s.OutputQty.String(),
			s.YieldPct.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeLotSummaries(w io.Writer, lots []dto.LotSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"lot_id", "current_stage", "entries", "last_recorded_at"}); err != nil {
		return err
	}
	for _, l := range lots {
		if err := cw.Write([]string{
			l.LotID,
			l.CurrentStage.String(),
			strconv.Itoa(l.LogCount),
			l.LastRecordedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
