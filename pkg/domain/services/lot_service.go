package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

const maxLotIDLength = 64

// LotComparator orders free-text lot ids so that numbered lots sort naturally
// (LOT-9 before LOT-10). Ids are split into digit and non-digit runs; digit
// runs compare by value and everything else byte-wise, which keeps the order
// total for ids with numbers anywhere or none at all.
type LotComparator struct{}

// NewLotComparator creates a new lot comparator
func NewLotComparator() *LotComparator {
	return &LotComparator{}
}

// CompareLots compares two lot ids with numeric sorting of embedded numbers
// Returns: -1 if lot1 < lot2, 0 if equal, 1 if lot1 > lot2
func (lc *LotComparator) CompareLots(lot1, lot2 string) int {
	lot1 = entities.NormalizeLotID(lot1)
	lot2 = entities.NormalizeLotID(lot2)
	if lot1 == lot2 {
		return 0
	}

	runs1, runs2 := splitRuns(lot1), splitRuns(lot2)
	for i := 0; i < len(runs1) && i < len(runs2); i++ {
		if c := compareRuns(runs1[i], runs2[i]); c != 0 {
			return c
		}
	}
	if len(runs1) != len(runs2) {
		if len(runs1) < len(runs2) {
			return -1
		}
		return 1
	}
	return strings.Compare(lot1, lot2)
}

// SortLots sorts lot ids in place using CompareLots
func (lc *LotComparator) SortLots(lots []string) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lc.CompareLots(lots[i], lots[j]) < 0
	})
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// splitRuns cuts RCN-12B into RCN-, 12, B
func splitRuns(lot string) []string {
	var runs []string
	start := 0
	for i := 1; i <= len(lot); i++ {
		if i == len(lot) || isDigit(lot[i]) != isDigit(lot[start]) {
			runs = append(runs, lot[start:i])
			start = i
		}
	}
	return runs
}

// compareRuns orders two runs. A digit run and a non-digit run always differ
// in their first byte, so comparing them as strings puts every number on the
// same side of a given word.
func compareRuns(a, b string) int {
	if !isDigit(a[0]) || !isDigit(b[0]) {
		return strings.Compare(a, b)
	}
	// LOT-07 and LOT-7 carry the same number; fall back to the text
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// ValidateLotID checks that a free-text lot id is usable as a trace key
func ValidateLotID(lotID string) error {
	lotID = entities.NormalizeLotID(lotID)
	if lotID == "" {
		return fmt.Errorf("lot id cannot be empty")
	}
	if len(lotID) > maxLotIDLength {
		return fmt.Errorf("lot id longer than %d characters", maxLotIDLength)
	}
	for _, r := range lotID {
		if unicode.IsControl(r) {
			return fmt.Errorf("lot id contains control characters")
		}
	}
	return nil
}
