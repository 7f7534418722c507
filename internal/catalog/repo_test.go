package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	"github.com/ariefcatur/go-grocery-store/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

type fakeRows struct {
	pgx.Rows
	vals   [][]any
	i      int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.vals) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.vals[r.i-1]) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 { r.closed = true }

func assign(dest, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

type fakeDB struct {
	postgres.DB

	row      fakeRow
	rows     *fakeRows
	queryErr error
	tag      pgconn.CommandTag
	execErr  error

	sql  string
	args []any
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, f.execErr
}

func apple() ItemInput {
	return ItemInput{
		Name:        "Apple",
		Price:       decimal.RequireFromString("1.25"),
		Description: "Crisp",
		Category:    "fruit",
		Inventory:   10,
	}
}

func TestAddReturnsID(t *testing.T) {
	db := &fakeDB{row: fakeRow{vals: []any{int64(42)}}}
	repo := &Repo{DB: db}

	id, err := repo.Add(context.Background(), apple())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Contains(t, db.sql, "INSERT INTO groceries")
	assert.Equal(t, []any{"Apple", decimal.RequireFromString("1.25"), "Crisp", "fruit", 10}, db.args)
}

func TestAddValidates(t *testing.T) {
	tests := map[string]func(*ItemInput){
		"blank name":         func(in *ItemInput) { in.Name = "  " },
		"negative price":     func(in *ItemInput) { in.Price = decimal.NewFromInt(-1) },
		"negative inventory": func(in *ItemInput) { in.Inventory = -3 },
		"inventory overflow": func(in *ItemInput) { in.Inventory = 1 << 31 },
		"sub-cent price":     func(in *ItemInput) { in.Price = decimal.RequireFromString("1.999") },
		"price out of range": func(in *ItemInput) { in.Price = decimal.RequireFromString("10000000000") },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			db := &fakeDB{}
			in := apple()
			mutate(&in)

			_, err := (&Repo{DB: db}).Add(context.Background(), in)
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
			assert.Empty(t, db.sql, "store must not be touched")
		})
	}
}

func TestAddStoreError(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("connection refused")}}
	_, err := (&Repo{DB: db}).Add(context.Background(), apple())
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGet(t *testing.T) {
	price := decimal.RequireFromString("0.99")
	db := &fakeDB{row: fakeRow{vals: []any{int64(3), "Milk", price, "1l", "dairy", 4}}}

	it, err := (&Repo{DB: db}).Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, GroceryItem{ID: 3, Name: "Milk", Price: price, Description: "1l", Category: "dairy", Inventory: 4}, it)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = (&Repo{DB: db}).Get(context.Background(), 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListScansRows(t *testing.T) {
	price := decimal.RequireFromString("2.50")
	rows := &fakeRows{vals: [][]any{
		{int64(1), "Bread", price, "", "bakery", 0},
		{int64(2), "Bagel", price, "", "bakery", 7},
	}}
	db := &fakeDB{rows: rows}

	items, err := (&Repo{DB: db}).List(context.Background(), Filter{Category: "bakery"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Bagel", items[1].Name)
	assert.Equal(t, []any{"bakery"}, db.args)
	assert.True(t, rows.closed)
}

func TestListEmptyIsNotNil(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{}}
	items, err := (&Repo{DB: db}).ListAvailable(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Contains(t, db.sql, "inventory > 0")
}

func TestListStoreError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("timeout")}
	_, err := (&Repo{DB: db}).List(context.Background(), Filter{})
	assert.ErrorIs(t, err, apperr.ErrStore)
}

func TestMutationsReportNotFound(t *testing.T) {
	ctx := context.Background()
	zero := pgconn.NewCommandTag("UPDATE 0")

	tests := map[string]func(*Repo) error{
		"update": func(r *Repo) error { return r.Update(ctx, 99, apple()) },
		"adjust": func(r *Repo) error { return r.AdjustInventory(ctx, 99, 5) },
		"delete": func(r *Repo) error { return r.Delete(ctx, 99) },
	}
	for name, call := range tests {
		t.Run(name, func(t *testing.T) {
			db := &fakeDB{tag: zero}
			err := call(&Repo{DB: db})
			assert.ErrorIs(t, err, apperr.ErrNotFound)
			assert.EqualValues(t, 99, db.args[0])
		})
	}
}

func TestMutationsSucceed(t *testing.T) {
	ctx := context.Background()
	one := pgconn.NewCommandTag("UPDATE 1")
	db := &fakeDB{tag: one}
	repo := &Repo{DB: db}

	require.NoError(t, repo.Update(ctx, 1, apple()))
	assert.Equal(t, []any{int64(1), "Apple", decimal.RequireFromString("1.25"), "Crisp", "fruit", 10}, db.args)

	require.NoError(t, repo.AdjustInventory(ctx, 1, 0))
	assert.Equal(t, []any{int64(1), 0}, db.args)

	db.tag = pgconn.NewCommandTag("DELETE 1")
	require.NoError(t, repo.Delete(ctx, 1))
	assert.Contains(t, db.sql, "DELETE FROM groceries")
}

func TestAdjustInventoryRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 1 << 31} {
		db := &fakeDB{}
		err := (&Repo{DB: db}).AdjustInventory(context.Background(), 1, n)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "inventory %d", n)
		assert.Empty(t, db.sql)
	}
}

func TestAddAcceptsPriceAtColumnScale(t *testing.T) {
	for _, p := range []string{"0", "2.000", "9999999999.99"} {
		in := apple()
		in.Price = decimal.RequireFromString(p)
		assert.NoError(t, in.Validate(), p)
	}
}

func TestMutationStoreError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("deadlock detected")}
	err := (&Repo{DB: db}).Delete(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}
