package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies why an inventory quantity changed
type TransactionType int

const (
	Intake TransactionType = iota
	Consumption
	ProductionOutput
	Dispatch
	Adjustment
	PackagingReceipt
)

var transactionTypeNames = []string{"intake", "consumption", "production_output", "dispatch", "adjustment", "packaging_receipt"}

// String method for TransactionType enum
func (t TransactionType) String() string {
	if t < 0 || int(t) >= len(transactionTypeNames) {
		return "unknown"
	}
	return transactionTypeNames[t]
}

// ParseTransactionType converts a name to a TransactionType
func ParseTransactionType(s string) (TransactionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range transactionTypeNames {
		if n == name {
			return TransactionType(i), nil
		}
	}
	return Adjustment, fmt.Errorf("invalid transaction type: %s", s)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// InventoryLog is an append-only audit row for one quantity change
type InventoryLog struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Change        Quantity        `json:"change"`
	QuantityAfter Quantity        `json:"quantity_after"`
	Reason        TransactionType `json:"reason"`
	Reference     string          `json:"reference,omitempty"`
	LotID         string          `json:"lot_id,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	// Sequence orders rows by when their change committed
	Sequence int64 `json:"sequence"`
}

// NewInventoryLog records the change just applied to item
func NewInventoryLog(item *InventoryItem, change Quantity, reason TransactionType, reference, lotID, actor string, now time.Time) (*InventoryLog, error) {
	if item == nil {
		return nil, fmt.Errorf("inventory log requires an item")
	}
	if change.IsZero() {
		return nil, fmt.Errorf("inventory log for %s has zero change", item.Name)
	}

	return &InventoryLog{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemName:      item.Name,
		Change:        change,
		QuantityAfter: item.Quantity,
		Reason:        reason,
		Reference:     reference,
		LotID:         lotID,
		Actor:         actor,
		CreatedAt:     now,
		Sequence:      item.Version,
	}, nil
}

// InventoryLogFilter narrows a log listing. Zero values match everything.
type InventoryLogFilter struct {
	ItemName  string
	LotID     string
	Reference string
	From      time.Time
	To        time.Time
	Limit     int
}

// Matches reports whether a log row passes the filter (Limit is not applied)
func (f InventoryLogFilter) Matches(l *InventoryLog) bool {
	if f.ItemName != "" && ItemKey(f.ItemName) != ItemKey(l.ItemName) {
		return false
	}
	if f.LotID != "" && !strings.EqualFold(f.LotID, l.LotID) {
		return false
	}
	if f.Reference != "" && f.Reference != l.Reference {
		return false
	}
	if !f.From.IsZero() && l.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !l.CreatedAt.Before(f.To) {
		return false
	}
	return true
}
