package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	"github.com/ariefcatur/go-grocery-store/internal/postgres"
	"github.com/jackc/pgx/v5"
)

const itemColumns = `id, name, price, description, category, inventory`

type Repo struct{ DB postgres.DB }

func (r *Repo) Add(ctx context.Context, in ItemInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO groceries (name, price, description, category, inventory)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		in.Name, in.Price, in.Description, in.Category, in.Inventory,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Store("insert grocery", err)
	}
	return id, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (GroceryItem, error) {
	var it GroceryItem
	err := r.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM groceries WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.Category, &it.Inventory)
	if errors.Is(err, pgx.ErrNoRows) {
		return GroceryItem{}, apperr.NotFound("grocery %d", id)
	}
	if err != nil {
		return GroceryItem{}, apperr.Store("get grocery", err)
	}
	return it, nil
}

// List returns every item matching f. f.Sort is ignored.
func (r *Repo) List(ctx context.Context, f Filter) ([]GroceryItem, error) {
	sql, args := listQuery(f)
	return r.query(ctx, "list groceries", sql, args)
}

// ListAvailable is List restricted to items with stock, ordered by f.Sort.
func (r *Repo) ListAvailable(ctx context.Context, f Filter) ([]GroceryItem, error) {
	sql, args := availableQuery(f)
	return r.query(ctx, "list available groceries", sql, args)
}

func (r *Repo) Update(ctx context.Context, id int64, in ItemInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE groceries
		SET name = $2, price = $3, description = $4, category = $5, inventory = $6
		WHERE id = $1`,
		id, in.Name, in.Price, in.Description, in.Category, in.Inventory,
	)
	if err != nil {
		return apperr.Store("update grocery", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("grocery %d", id)
	}
	return nil
}

// AdjustInventory sets stock to an absolute value.
func (r *Repo) AdjustInventory(ctx context.Context, id int64, inventory int) error {
	if err := validInventory(inventory); err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `UPDATE groceries SET inventory = $2 WHERE id = $1`, id, inventory)
	if err != nil {
		return apperr.Store("adjust inventory", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("grocery %d", id)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM groceries WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("delete grocery", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("grocery %d", id)
	}
	return nil
}

func (r *Repo) query(ctx context.Context, op, sql string, args []any) ([]GroceryItem, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	out := []GroceryItem{}
	for rows.Next() {
		var it GroceryItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.Category, &it.Inventory); err != nil {
			return nil, apperr.Store(op, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}
