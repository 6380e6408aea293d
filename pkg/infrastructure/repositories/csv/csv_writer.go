package csv

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

// WriteItems writes stock items in the layout LoadStock reads
func WriteItems(w io.Writer, items []*entities.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(stockHeader); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write([]string{
			item.Name,
			item.Category.String(),
			string(item.Unit),
			item.Quantity.String(),
			item.ReorderLevel.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInventoryLogs writes ledger audit rows
func WriteInventoryLogs(w io.Writer, logs []*entities.InventoryLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"created_at", "item", "change", "quantity_after", "reason", "reference", "lot_id", "actor"}); err != nil {
		return err
	}
	for _, l := range logs {
		if err := cw.Write([]string{
			l.CreatedAt.Format(time.RFC3339),
			l.ItemName,
			l.Change.String(),
			l.QuantityAfter.String(),
			l.Reason.String(),
			l.Reference,
			l.LotID,
			l.Actor,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProductionLogs writes production logs in the layout LoadProduction reads
func WriteProductionLogs(w io.Writer, logs []*entities.ProductionLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(productionHeader); err != nil {
		return err
	}
	for _, p := range logs {
		if err := cw.Write([]string{
			p.Stage.String(),
			p.LotID,
			p.Operator,
			string(p.Shift),
			p.RecordedAt.Format(time.RFC3339),
			p.InputQty.String(),
			p.OutputQty.String(),
			formatFields(p),
			p.Notes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFields(p *entities.ProductionLog) string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(p.Grades))
	for _, k := range keys {
		parts = append(parts, k+"="+p.Fields[k])
	}
	for _, g := range p.GradeNames() {
		parts = append(parts, "grade:"+g+"="+p.Grades[g].String())
	}
	return strings.Join(parts, ";")
}
