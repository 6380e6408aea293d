package entities

import (
	"strings"
	"testing"
	"time"
)

func TestInventoryItem_Validation(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	item, err := NewInventoryItem("  Raw   Cashew Nuts ", RawMaterial, UnitKg, Qty(1000), now)
	if err != nil {
		t.Fatalf("Expected valid item creation to succeed: %v", err)
	}
	if item.Name != "Raw Cashew Nuts" {
		t.Errorf("Expected normalized name, got %q", item.Name)
	}
	if !item.Quantity.IsZero() {
		t.Errorf("Expected zero opening quantity, got %s", item.Quantity)
	}
	if item.ID == "" {
		t.Error("Expected an id to be assigned")
	}

	testCases := []struct {
		name        string
		itemName    string
		unit        Unit
		reorder     Quantity
		expectError string
	}{
		{"empty name", "   ", UnitKg, Qty(0), "item name cannot be empty"},
		{"empty unit", "Vacuum Bags", "", Qty(0), "unit cannot be empty"},
		{"negative reorder level", "Vacuum Bags", UnitPcs, Qty(-5), "reorder level cannot be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventoryItem(tc.itemName, Packaging, tc.unit, tc.reorder, now)
			if err == nil {
				t.Fatalf("Expected error containing %q", tc.expectError)
			}
			if !strings.Contains(err.Error(), tc.expectError) {
				t.Errorf("Expected error containing %q, got %q", tc.expectError, err.Error())
			}
		})
	}
}

func TestInventoryItem_IsLowStock(t *testing.T) {
	testCases := []struct {
		quantity int64
		reorder  int64
		want     bool
	}{
		{100, 50, false},
		{50, 50, true},
		{10, 50, true},
		{0, 0, false},
		{-5, 0, false},
	}

	for _, tc := range testCases {
		item := &InventoryItem{Name: "Vacuum Bags", Quantity: Qty(tc.quantity), ReorderLevel: Qty(tc.reorder)}
		if got := item.IsLowStock(); got != tc.want {
			t.Errorf("quantity %d reorder %d: IsLowStock() = %v, want %v", tc.quantity, tc.reorder, got, tc.want)
		}
	}
}

func TestItemKey(t *testing.T) {
	if ItemKey("Raw Cashew Nuts") != ItemKey("  raw cashew   NUTS") {
		t.Error("Expected item names to match case-insensitively after trimming")
	}
	if KernelItemName(" w240") != "Kernels W240" {
		t.Errorf("Unexpected kernel item name %q", KernelItemName(" w240"))
	}
	if PackedItemName("sw") != "Packed SW" {
		t.Errorf("Unexpected packed item name %q", PackedItemName("sw"))
	}
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity(" 125.50 ")
	if err != nil {
		t.Fatalf("ParseQuantity failed: %v", err)
	}
	if q.String() != "125.5" {
		t.Errorf("Expected 125.5, got %s", q)
	}
	if _, err := ParseQuantity("ten"); err == nil {
		t.Error("Expected error for non-numeric quantity")
	}
}

func TestParseUnitAndCategory(t *testing.T) {
	if u, err := ParseUnit("KG"); err != nil || u != UnitKg {
		t.Errorf("ParseUnit(KG) = %q, %v", u, err)
	}
	if _, err := ParseUnit("tonnes"); err == nil {
		t.Error("Expected error for unknown unit")
	}

	for _, c := range []Category{RawMaterial, WorkInProgress, FinishedGood, Packaging, ByProduct} {
		parsed, err := ParseCategory(c.String())
		if err != nil || parsed != c {
			t.Errorf("ParseCategory(%s) = %v, %v", c, parsed, err)
		}
	}
	if _, err := ParseCategory("scrap"); err == nil {
		t.Error("Expected error for unknown category")
	}
}
