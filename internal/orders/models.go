package orders

import "time"

type Order struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
	Items     []OrderLine `json:"items"`
}

type OrderLine struct {
	OrderID   int64 `json:"orderId"`
	GroceryID int64 `json:"groceryId"`
	Quantity  int   `json:"quantity"`
}

// LineInput is one requested (grocery, quantity) pair. The wire name of the
// grocery id is "id".
type LineInput struct {
	GroceryID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// Placed is the result of a committed PlaceOrder.
type Placed struct {
	OrderID   int64
	CreatedAt time.Time
}
