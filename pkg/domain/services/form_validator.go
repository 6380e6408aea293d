package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

type fieldKind int

const (
	textField fieldKind = iota
	numberField
	countField
	percentField
	choiceField
)

// fieldRule describes one stage-specific form field
type fieldRule struct {
	name     string
	kind     fieldKind
	required bool
	choices  []string
}

var stageRules = map[entities.Stage][]fieldRule{
	entities.StageIntake: {
		{name: "supplier", kind: textField, required: true},
		{name: "origin", kind: textField},
		{name: "bag_count", kind: countField},
		{name: "moisture_pct", kind: percentField},
		{name: "nut_count", kind: countField},
		{name: "outturn_lbs", kind: numberField},
	},
	entities.StageDrying: {
		{name: "method", kind: choiceField, required: true, choices: []string{"sun", "mechanical"}},
		{name: "duration_hours", kind: numberField},
		{name: "moisture_pct", kind: percentField},
	},
	entities.StageSteaming: {
		{name: "boiler_pressure_bar", kind: numberField},
		{name: "duration_minutes", kind: numberField, required: true},
		{name: "batch_no", kind: textField},
	},
	entities.StageShelling: {
		{name: "machine", kind: textField},
		{name: "whole_pct", kind: percentField},
		{name: "broken_pct", kind: percentField},
		{name: "shell_kg", kind: numberField},
	},
	entities.StageKernelDrying: {
		{name: "temperature_c", kind: numberField},
		{name: "duration_hours", kind: numberField, required: true},
		{name: "moisture_pct", kind: percentField},
	},
	entities.StagePeeling: {
		{name: "method", kind: choiceField, choices: []string{"manual", "machine"}},
		{name: "peeled_pct", kind: percentField},
		{name: "unpeeled_kg", kind: numberField},
	},
	entities.StageGrading: {},
	entities.StagePackaging: {
		{name: "grade", kind: textField, required: true},
		{name: "bag_count", kind: countField, required: true},
		{name: "kg_per_bag", kind: numberField, required: true},
		{name: "box_count", kind: countField, required: true},
	},
	entities.StageDispatch: {
		{name: "customer", kind: textField, required: true},
		{name: "grade", kind: textField, required: true},
		{name: "box_count", kind: countField, required: true},
		{name: "vehicle_no", kind: textField},
		{name: "invoice_no", kind: textField},
	},
	entities.StageQualityCheck: {
		{name: "moisture_pct", kind: percentField},
		{name: "defects_pct", kind: percentField},
		{name: "result", kind: choiceField, required: true, choices: []string{"pass", "fail"}},
	},
}

// StageFields returns the field names accepted for a stage
func StageFields(stage entities.Stage) []string {
	rules := stageRules[stage]
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// FormValidator checks submitted production logs against the stage forms
type FormValidator struct{}

// NewFormValidator creates a new form validator
func NewFormValidator() *FormValidator {
	return &FormValidator{}
}

// ValidationResult contains the results of validating one production log
type ValidationResult struct {
	Errors        []string
	UnknownFields []string
}

// Valid reports whether no errors were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts the result into a *entities.ValidationError, or nil
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &entities.ValidationError{Problems: r.Errors}
}

// ValidateLog performs field and cross-field validation on a production log
func (v *FormValidator) ValidateLog(log *entities.ProductionLog) *ValidationResult {
	result := &ValidationResult{
		Errors:        make([]string, 0),
		UnknownFields: make([]string, 0),
	}

	rules, ok := stageRules[log.Stage]
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown stage %d", log.Stage))
		return result
	}

	known := make(map[string]bool, len(rules))
	for _, rule := range rules {
		known[rule.name] = true
		if msg := v.checkField(rule, log.Field(rule.name)); msg != "" {
			result.Errors = append(result.Errors, msg)
		}
	}
	for name := range log.Fields {
		if !known[name] {
			result.UnknownFields = append(result.UnknownFields, name)
		}
	}
	sort.Strings(result.UnknownFields)

	result.Errors = append(result.Errors, v.checkStage(log)...)
	return result
}

func (v *FormValidator) checkField(rule fieldRule, value string) string {
	if value == "" {
		if rule.required {
			return fmt.Sprintf("%s is required", rule.name)
		}
		return ""
	}

	switch rule.kind {
	case numberField, countField, percentField:
		n, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Sprintf("%s must be a number, got %q", rule.name, value)
		}
		if n.IsNegative() {
			return fmt.Sprintf("%s cannot be negative, got %s", rule.name, value)
		}
		if rule.kind == countField && !n.Equal(n.Truncate(0)) {
			return fmt.Sprintf("%s must be a whole number, got %s", rule.name, value)
		}
		if rule.kind == percentField && n.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Sprintf("%s must be between 0 and 100, got %s", rule.name, value)
		}
	case choiceField:
		for _, c := range rule.choices {
			if strings.EqualFold(c, value) {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of %s, got %q", rule.name, strings.Join(rule.choices, ", "), value)
	}
	return ""
}

// checkStage applies the rules that span several fields of one stage
func (v *FormValidator) checkStage(log *entities.ProductionLog) []string {
	var errs []string

	switch log.Stage {
	case entities.StageIntake:
		if !log.InputQty.IsPositive() {
			errs = append(errs, "intake weight must be greater than zero")
		}
	case entities.StageSteaming, entities.StageDrying, entities.StageShelling,
		entities.StageKernelDrying, entities.StagePeeling:
		if !log.InputQty.IsPositive() {
			errs = append(errs, fmt.Sprintf("%s input weight must be greater than zero", log.Stage.DisplayName()))
		}
	}

	switch log.Stage {
	case entities.StageDrying, entities.StageShelling, entities.StageKernelDrying,
		entities.StagePeeling, entities.StageGrading:
		if log.OutputQty.GreaterThan(log.InputQty) && log.InputQty.IsPositive() {
			errs = append(errs, fmt.Sprintf("%s output %s kg exceeds input %s kg",
				log.Stage.DisplayName(), log.OutputQty, log.InputQty))
		}
	}

	switch log.Stage {
	case entities.StageShelling:
		whole, _ := log.QuantityField("whole_pct")
		broken, _ := log.QuantityField("broken_pct")
		if whole.Add(broken).GreaterThan(decimal.NewFromInt(100)) {
			errs = append(errs, "whole_pct and broken_pct together exceed 100")
		}
		shell, _ := log.QuantityField("shell_kg")
		if log.InputQty.IsPositive() && shell.Add(log.OutputQty).GreaterThan(log.InputQty) {
			errs = append(errs, "kernel output plus shell weight exceeds input weight")
		}
	case entities.StageGrading:
		if len(log.Grades) == 0 {
			errs = append(errs, "grading requires at least one grade")
		}
		for _, g := range log.GradeNames() {
			if strings.TrimSpace(g) == "" {
				errs = append(errs, "grade name cannot be empty")
			}
			if !log.Grades[g].IsPositive() {
				errs = append(errs, fmt.Sprintf("grade %s weight must be greater than zero", g))
			}
		}
	case entities.StagePackaging, entities.StageDispatch:
		boxes, _ := log.QuantityField("box_count")
		if !boxes.IsPositive() && log.Field("box_count") != "" {
			errs = append(errs, "box_count must be greater than zero")
		}
		if log.Stage == entities.StagePackaging {
			bags, _ := log.QuantityField("bag_count")
			perBag, _ := log.QuantityField("kg_per_bag")
			if log.Field("bag_count") != "" && !bags.IsPositive() {
				errs = append(errs, "bag_count must be greater than zero")
			}
			if log.Field("kg_per_bag") != "" && !perBag.IsPositive() {
				errs = append(errs, "kg_per_bag must be greater than zero")
			}
		}
	}

	return errs
}
