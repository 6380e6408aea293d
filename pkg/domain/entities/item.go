package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quantity is a decimal stock amount. Weights are kilograms, counts are whole numbers.
type Quantity = decimal.Decimal

// Qty returns a whole-number Quantity
func Qty(v int64) Quantity {
	return decimal.NewFromInt(v)
}

// ParseQuantity parses a decimal string such as "125.5"
func ParseQuantity(s string) (Quantity, error) {
	q, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return q, nil
}

// Unit is the unit of measure of an inventory item
type Unit string

const (
	UnitKg    Unit = "kg"
	UnitPcs   Unit = "pcs"
	UnitBags  Unit = "bags"
	UnitBoxes Unit = "boxes"
)

// ParseUnit validates a unit of measure
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitKg, UnitPcs, UnitBags, UnitBoxes:
		return u, nil
	default:
		return "", fmt.Errorf("invalid unit: %s (expected: kg, pcs, bags or boxes)", s)
	}
}

// Category groups inventory items by their role in the plant
type Category int

const (
	RawMaterial Category = iota
	WorkInProgress
	FinishedGood
	Packaging
	ByProduct
)

var categoryNames = []string{"raw_material", "work_in_progress", "finished_good", "packaging", "by_product"}

// String method for Category enum
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// ParseCategory converts a category name to a Category
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return RawMaterial, fmt.Errorf("invalid category: %s", s)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Well-known stock items touched by production stages
const (
	RawCashewNuts = "Raw Cashew Nuts"
	VacuumBags    = "Vacuum Bags"
	CashewShells  = "Cashew Shells"
)

// KernelItemName names the bulk graded kernel stock for a grade
func KernelItemName(grade string) string {
	return "Kernels " + strings.ToUpper(strings.TrimSpace(grade))
}

// PackedItemName names the packed finished-good stock for a grade
func PackedItemName(grade string) string {
	return "Packed " + strings.ToUpper(strings.TrimSpace(grade))
}

// InventoryItem is a named stock record with a running quantity
type InventoryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Unit         Unit      `json:"unit"`
	Quantity     Quantity  `json:"quantity"`
	ReorderLevel Quantity  `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Version is the ledger sequence of the last committed change
	Version int64 `json:"version"`
}

// NormalizeItemName trims and collapses whitespace in an item name
func NormalizeItemName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// ItemKey is the lookup key for an item name; names match case-insensitively
func ItemKey(name string) string {
	return strings.ToLower(NormalizeItemName(name))
}

// NewInventoryItem creates a validated InventoryItem with zero stock
func NewInventoryItem(name string, category Category, unit Unit, reorderLevel Quantity, now time.Time) (*InventoryItem, error) {
	name = NormalizeItemName(name)
	if name == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty for item %s", name)
	}
	if reorderLevel.IsNegative() {
		return nil, fmt.Errorf("reorder level cannot be negative, got %s", reorderLevel)
	}

	return &InventoryItem{
		ID:           uuid.NewString(),
		Name:         name,
		Category:     category,
		Unit:         unit,
		Quantity:     decimal.Zero,
		ReorderLevel: reorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsLowStock reports whether stock has fallen to the reorder level.
// Items without a reorder level are never low.
func (i *InventoryItem) IsLowStock() bool {
	if !i.ReorderLevel.IsPositive() {
		return false
	}
	return i.Quantity.LessThanOrEqual(i.ReorderLevel)
}

// Clone returns a copy safe to hand out of a repository
func (i *InventoryItem) Clone() *InventoryItem {
	c := *i
	return &c
}
