package catalog

import (
	"math"
	"strings"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	"github.com/shopspring/decimal"
)

type GroceryItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Inventory   int             `json:"inventory"`
}

// ItemInput carries every writable field; Update replaces all of them.
type ItemInput struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Inventory   int             `json:"inventory"`
}

// maxPrice is the first value NUMERIC(12,2) cannot hold.
var maxPrice = decimal.New(1, 10)

func (in ItemInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if in.Price.IsNegative() {
		return apperr.Invalid("price must not be negative")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return apperr.Invalid("price %s has more than two decimal places", in.Price)
	}
	if in.Price.GreaterThanOrEqual(maxPrice) {
		return apperr.Invalid("price %s is too large", in.Price)
	}
	return validInventory(in.Inventory)
}

func validInventory(n int) error {
	if n < 0 {
		return apperr.Invalid("inventory must not be negative")
	}
	if n > math.MaxInt32 {
		return apperr.Invalid("inventory %d is too large", n)
	}
	return nil
}
