package tracker

import (
	"fmt"

	"github.com/guarzo/dealwatch/internal/model"
)

// evaluateAlerts checks the two alert conditions against a freshly observed
// price and records the outcome on result:
//
//   - absolute: price at or below the configured alert threshold
//   - relative: drop from the first-seen price at or beyond the configured
//     alert percentage
//
// The drop figures are always filled in so callers can report movement even
// when no alert fired.
func evaluateAlerts(item *model.TrackedItem, currentPrice float64, result *CheckResult) {
	drop := item.FirstSeenPrice - currentPrice
	result.DropFromFirst = drop
	if item.FirstSeenPrice > 0 {
		result.DropPercentage = drop / item.FirstSeenPrice * 100
	}

	if item.AlertThreshold > 0 && currentPrice <= item.AlertThreshold {
		result.Alert = true
		result.AlertReasons = append(result.AlertReasons,
			fmt.Sprintf("price $%.2f at or below threshold $%.2f", currentPrice, item.AlertThreshold))
	}
	if item.AlertPercentage > 0 && result.DropPercentage >= item.AlertPercentage {
		result.Alert = true
		result.AlertReasons = append(result.AlertReasons,
			fmt.Sprintf("price dropped %.1f%% from first seen (>= %.1f%%)", result.DropPercentage, item.AlertPercentage))
	}
}
