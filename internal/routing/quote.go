package routing

import (
	"fmt"
	"strings"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
)

const (
	ItemAvailable        = "AVAILABLE"
	ItemUnavailable      = "UNAVAILABLE"
	ItemGenericAvailable = "GENERIC_AVAILABLE"
)

// ValidateQuoteItems rejects a quote before anything is written. Every
// line needs a name; lines the pharmacy can supply also need a positive
// price and a quantity of at least one.
func ValidateQuoteItems(items []models.PrescriptionItem) error {
	if len(items) == 0 {
		return fmt.Errorf("a quote needs at least one item")
	}
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("every item needs a name")
		}
		if item.Status == ItemUnavailable {
			continue
		}
		if item.Price <= 0 {
			return fmt.Errorf("item %q needs a valid price", item.Name)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %q needs a quantity of at least 1", item.Name)
		}
	}
	return nil
}

// QuoteTotal sums the priced lines, skipping unavailable ones.
func QuoteTotal(items []models.PrescriptionItem) float64 {
	var total float64
	for _, item := range items {
		if item.Status == ItemUnavailable {
			continue
		}
		total += item.Price * float64(item.Quantity)
	}
	return total
}
