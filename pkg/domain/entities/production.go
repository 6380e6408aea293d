package entities

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionLog is the immutable record of one data-entry event on the line
type ProductionLog struct {
	ID         string              `json:"id"`
	Stage      Stage               `json:"stage"`
	LotID      string              `json:"lot_id"`
	Operator   string              `json:"operator,omitempty"`
	Shift      Shift               `json:"shift,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
	InputQty   Quantity            `json:"input_qty"`
	OutputQty  Quantity            `json:"output_qty"`
	Fields     map[string]string   `json:"fields,omitempty"`
	Grades     map[string]Quantity `json:"grades,omitempty"`
	Notes      string              `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// NormalizeLotID trims and upper-cases a lot id so free-text entries match
func NormalizeLotID(lotID string) string {
	return strings.ToUpper(strings.TrimSpace(lotID))
}

// NewProductionLog creates a validated ProductionLog. Stage-specific fields
// are checked separately by the form validator.
func NewProductionLog(stage Stage, lotID, operator string, shift Shift, recordedAt time.Time, inputQty, outputQty Quantity, now time.Time) (*ProductionLog, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStage, stage)
	}
	lotID = NormalizeLotID(lotID)
	if lotID == "" {
		return nil, fmt.Errorf("lot id cannot be empty")
	}
	if inputQty.IsNegative() {
		return nil, fmt.Errorf("input quantity cannot be negative, got %s", inputQty)
	}
	if outputQty.IsNegative() {
		return nil, fmt.Errorf("output quantity cannot be negative, got %s", outputQty)
	}
	if recordedAt.IsZero() {
		recordedAt = now
	}

	return &ProductionLog{
		ID:         uuid.NewString(),
		Stage:      stage,
		LotID:      lotID,
		Operator:   strings.TrimSpace(operator),
		Shift:      shift,
		RecordedAt: recordedAt,
		InputQty:   inputQty,
		OutputQty:  outputQty,
		Fields:     map[string]string{},
		CreatedAt:  now,
	}, nil
}

// Field returns a trimmed stage field value
func (p *ProductionLog) Field(name string) string {
	return strings.TrimSpace(p.Fields[name])
}

// QuantityField parses a numeric stage field; a missing field is zero
func (p *ProductionLog) QuantityField(name string) (Quantity, error) {
	v := p.Field(name)
	if v == "" {
		return decimal.Zero, nil
	}
	return ParseQuantity(v)
}

// Yield is output as a percentage of input; zero input yields zero
func (p *ProductionLog) Yield() Quantity {
	return YieldPercent(p.InputQty, p.OutputQty)
}

// GradeNames returns the graded kernel grades in a stable order
func (p *ProductionLog) GradeNames() []string {
	names := make([]string, 0, len(p.Grades))
	for g := range p.Grades {
		names = append(names, g)
	}
	sort.Strings(names)
	return names
}

// YieldPercent computes output/input*100 rounded to two places
func YieldPercent(input, output Quantity) Quantity {
	if !input.IsPositive() {
		return decimal.Zero
	}
	return output.Div(input).Mul(decimal.NewFromInt(100)).Round(2)
}

// ProductionFilter narrows a production log listing. Zero values match everything.
type ProductionFilter struct {
	Stage    *Stage
	LotID    string
	Operator string
	From     time.Time
	To       time.Time

	// Limit keeps the most recent N matches; the result stays oldest first
	Limit int
}

// Matches reports whether a log passes the filter (Limit is not applied)
func (f ProductionFilter) Matches(p *ProductionLog) bool {
	if f.Stage != nil && *f.Stage != p.Stage {
		return false
	}
	if f.LotID != "" && NormalizeLotID(f.LotID) != p.LotID {
		return false
	}
	if f.Operator != "" && !strings.EqualFold(f.Operator, p.Operator) {
		return false
	}
	if !f.From.IsZero() && p.RecordedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !p.RecordedAt.Before(f.To) {
		return false
	}
	return true
}

// SortProductionLogs orders logs by stage order, then recorded time
func SortProductionLogs(logs []*ProductionLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].Stage != logs[j].Stage {
			return logs[i].Stage.Order() < logs[j].Stage.Order()
		}
		return logs[i].RecordedAt.Before(logs[j].RecordedAt)
	})
}
