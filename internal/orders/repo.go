package orders

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	"github.com/ariefcatur/go-grocery-store/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

// PlaceOrder records the order, its lines and the inventory decrements in
// one transaction. Either all of it commits or none of it is visible.
//
// Decrements run one at a time, in ascending grocery id order, before the
// commit decision. The conditional UPDATE takes the row lock, so concurrent
// orders for the same grocery serialize and stock never goes negative.
func (r *Repo) PlaceOrder(ctx context.Context, userID string, items []LineInput) (Placed, error) {
	if err := validate(userID, items); err != nil {
		return Placed{}, err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return Placed{}, apperr.Store("begin order", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Placed
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, created_at)
		VALUES ($1, now())
		RETURNING id, created_at`, userID,
	).Scan(&p.OrderID, &p.CreatedAt)
	if err != nil {
		return Placed{}, apperr.Store("insert order", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, grocery_id, quantity)
			VALUES ($1, $2, $3)`,
			p.OrderID, it.GroceryID, it.Quantity,
		); err != nil {
			return Placed{}, apperr.Store("insert order item", err)
		}
	}

	for _, d := range decrements(items) {
		if err := decrement(ctx, tx, d); err != nil {
			return Placed{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Placed{}, apperr.Store("commit order", err)
	}
	return p, nil
}

func validate(userID string, items []LineInput) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Invalid("userId is required")
	}
	if len(items) == 0 {
		return apperr.Invalid("order has no items")
	}
	// quantities are INTEGER columns; bound each line before summing so the
	// running total cannot wrap
	total := make(map[int64]int64, len(items))
	for i, it := range items {
		if it.GroceryID <= 0 {
			return apperr.Invalid("items[%d]: grocery id must be positive", i)
		}
		if it.Quantity <= 0 {
			return apperr.Invalid("items[%d]: quantity must be positive", i)
		}
		if it.Quantity > math.MaxInt32 {
			return apperr.Invalid("items[%d]: quantity too large", i)
		}
		total[it.GroceryID] += int64(it.Quantity)
		if total[it.GroceryID] > math.MaxInt32 {
			return apperr.Invalid("grocery %d: quantity too large", it.GroceryID)
		}
	}
	return nil
}

// decrements sums quantities per grocery and sorts by id, giving every
// transaction the same lock order.
func decrements(items []LineInput) []LineInput {
	sum := make(map[int64]int, len(items))
	for _, it := range items {
		sum[it.GroceryID] += it.Quantity
	}
	out := make([]LineInput, 0, len(sum))
	for id, q := range sum {
		out = append(out, LineInput{GroceryID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroceryID < out[j].GroceryID })
	return out
}

func decrement(ctx context.Context, tx pgx.Tx, d LineInput) error {
	var left int
	err := tx.QueryRow(ctx, `
		UPDATE groceries SET inventory = inventory - $2
		WHERE id = $1 AND inventory >= $2
		RETURNING inventory`,
		d.GroceryID, d.Quantity,
	).Scan(&left)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperr.Store("decrement inventory", err)
	}

	// nothing updated: either the grocery is gone or stock is short
	var available int
	err = tx.QueryRow(ctx, `SELECT inventory FROM groceries WHERE id = $1`, d.GroceryID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("grocery %d", d.GroceryID)
	}
	if err != nil {
		return apperr.Store("read inventory", err)
	}
	return &apperr.InsufficientInventoryError{
		GroceryID: d.GroceryID,
		Requested: d.Quantity,
		Available: available,
	}
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o := Order{ID: id}
	err := r.DB.QueryRow(ctx, `SELECT user_id, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.UserID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order %d", id)
	}
	if err != nil {
		return Order{}, apperr.Store("get order", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT grocery_id, quantity FROM order_items
		WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, apperr.Store("get order items", err)
	}
	defer rows.Close()

	o.Items = []OrderLine{}
	for rows.Next() {
		l := OrderLine{OrderID: id}
		if err := rows.Scan(&l.GroceryID, &l.Quantity); err != nil {
			return Order{}, apperr.Store("get order items", err)
		}
		o.Items = append(o.Items, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, apperr.Store("get order items", err)
	}
	return o, nil
}
