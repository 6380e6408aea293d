package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

var (
	stockHeader      = []string{"name", "category", "unit", "quantity", "reorder_level"}
	productionHeader = []string{"stage", "lot_id", "operator", "shift", "recorded_at", "input_qty", "output_qty", "fields", "notes"}
)

// StockRow is one opening stock line
type StockRow struct {
	Name         string
	Category     entities.Category
	Unit         entities.Unit
	Quantity     entities.Quantity
	ReorderLevel entities.Quantity
}

// ProductionRow is one historical production entry. Grades are carried in
// Fields as grade:<name>=<kg>.
type ProductionRow struct {
	Stage      entities.Stage
	LotID      string
	Operator   string
	Shift      string
	RecordedAt time.Time
	InputQty   entities.Quantity
	OutputQty  entities.Quantity
	Fields     map[string]string
	Grades     map[string]entities.Quantity
	Notes      string
}

// Loader handles loading plant data from CSV files
type Loader struct {
	// Location is used for recorded_at values without a zone
	Location *time.Location
}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{Location: time.UTC}
}

// LoadStock loads opening stock from a CSV file
func (l *Loader) LoadStock(filename string) ([]StockRow, error) {
	records, err := readFile(filename, "stock", stockHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]StockRow, 0, len(records))
	for i, record := range records {
		row, err := parseStockRow(record)
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadProduction loads production entries from a CSV file
func (l *Loader) LoadProduction(filename string) ([]ProductionRow, error) {
	records, err := readFile(filename, "production", productionHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]ProductionRow, 0, len(records))
	for i, record := range records {
		row, err := l.parseProductionRow(record)
		if err != nil {
			return nil, fmt.Errorf("production CSV row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DetectKind reports whether a CSV file holds stock or production rows by
// looking at its header
func DetectKind(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return "", fmt.Errorf("failed to read header of %s: %w", filename, err)
	}
	switch {
	case validateHeader(header, stockHeader):
		return "stock", nil
	case validateHeader(header, productionHeader):
		return "production", nil
	default:
		return "", fmt.Errorf("unrecognised CSV header in %s: %v", filename, header)
	}
}

// readFile returns the data rows of a CSV file after checking its header
func readFile(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()
	return readRecords(file, kind, expectedHeader)
}

func readRecords(r io.Reader, kind string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}
	return records[1:], nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseStockRow(record []string) (StockRow, error) {
	name := entities.NormalizeItemName(record[0])
	if name == "" {
		return StockRow{}, fmt.Errorf("name is required")
	}

	category, err := entities.ParseCategory(record[1])
	if err != nil {
		return StockRow{}, err
	}

	unit, err := entities.ParseUnit(record[2])
	if err != nil {
		return StockRow{}, err
	}

	quantity, err := parseQuantity("quantity", record[3])
	if err != nil {
		return StockRow{}, err
	}
	if quantity.IsNegative() {
		return StockRow{}, fmt.Errorf("quantity cannot be negative: %s", record[3])
	}

	reorder, err := parseQuantity("reorder_level", record[4])
	if err != nil {
		return StockRow{}, err
	}

	return StockRow{
		Name:         name,
		Category:     category,
		Unit:         unit,
		Quantity:     quantity,
		ReorderLevel: reorder,
	}, nil
}

func (l *Loader) parseProductionRow(record []string) (ProductionRow, error) {
	stage, err := entities.ParseStage(record[0])
	if err != nil {
		return ProductionRow{}, err
	}

	recordedAt, err := l.parseTime(record[4])
	if err != nil {
		return ProductionRow{}, err
	}

	input, err := parseQuantity("input_qty", record[5])
	if err != nil {
		return ProductionRow{}, err
	}
	output, err := parseQuantity("output_qty", record[6])
	if err != nil {
		return ProductionRow{}, err
	}

	fields, grades, err := parseFields(record[7])
	if err != nil {
		return ProductionRow{}, err
	}

	return ProductionRow{
		Stage:      stage,
		LotID:      record[1],
		Operator:   record[2],
		Shift:      record[3],
		RecordedAt: recordedAt,
		InputQty:   input,
		OutputQty:  output,
		Fields:     fields,
		Grades:     grades,
		Notes:      record[8],
	}, nil
}

func (l *Loader) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	loc := l.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid recorded_at: %s", s)
}

func parseQuantity(column, s string) (entities.Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return entities.Qty(0), nil
	}
	q, err := entities.ParseQuantity(s)
	if err != nil {
		return entities.Quantity{}, fmt.Errorf("invalid %s: %s", column, s)
	}
	return q, nil
}

// parseFields parses "key=value;key=value". Keys prefixed with grade: become
// graded kernel weights.
func parseFields(s string) (map[string]string, map[string]entities.Quantity, error) {
	fields := make(map[string]string)
	var grades map[string]entities.Quantity

	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if grade, isGrade := strings.CutPrefix(key, "grade:"); isGrade {
			kg, err := parseQuantity("grade "+grade, value)
			if err != nil {
				return nil, nil, err
			}
			if grades == nil {
				grades = make(map[string]entities.Quantity)
			}
			grades[strings.ToUpper(grade)] = kg
			continue
		}
		fields[key] = value
	}
	return fields, grades, nil
}
