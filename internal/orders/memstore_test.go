package orders

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-grocery-store/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory stand-in for the groceries/orders/order_items
// tables. A transaction works on a copy and only Commit publishes it.
type memStore struct {
	postgres.DB

	mu    sync.Mutex
	state memState
	clock time.Time

	// fail maps a step name to the 1-based call that should fail.
	fail  map[string]int
	calls map[string]int
	log   []string

	begun, committed, rolledBack int
}

type memState struct {
	Inventory map[int64]int
	Orders    map[int64]memOrder
	Lines     []OrderLine
	NextID    int64
}

type memOrder struct {
	UserID    string
	CreatedAt time.Time
}

func newMemStore(inventory map[int64]int) *memStore {
	return &memStore{
		state: memState{Inventory: inventory, Orders: map[int64]memOrder{}},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		fail:  map[string]int{},
		calls: map[string]int{},
	}
}

func (s memState) clone() memState {
	c := memState{
		Inventory: make(map[int64]int, len(s.Inventory)),
		Orders:    make(map[int64]memOrder, len(s.Orders)),
		Lines:     append([]OrderLine(nil), s.Lines...),
		NextID:    s.NextID,
	}
	for k, v := range s.Inventory {
		c.Inventory[k] = v
	}
	for k, v := range s.Orders {
		c.Orders[k] = v
	}
	return c
}

func (m *memStore) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) step(name string) error {
	m.calls[name]++
	m.log = append(m.log, name)
	if n, ok := m.fail[name]; ok && n == m.calls[name] {
		return fmt.Errorf("%s: %w", name, errInjected)
	}
	return nil
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("begin"); err != nil {
		return nil, err
	}
	m.begun++
	return &memTx{store: m, state: m.state.clone()}, nil
}

func (m *memStore) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.Contains(sql, "FROM orders WHERE id") {
		o, ok := m.state.Orders[args[0].(int64)]
		if !ok {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{o.UserID, o.CreatedAt}}
	}
	return memRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (m *memStore) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.Contains(sql, "FROM order_items") {
		return nil, fmt.Errorf("unexpected query: %s", sql)
	}
	rows := &memRows{}
	for _, l := range m.state.Lines {
		if l.OrderID == args[0].(int64) {
			rows.vals = append(rows.vals, []any{l.GroceryID, l.Quantity})
		}
	}
	return rows, nil
}

type memTx struct {
	pgx.Tx
	store *memStore
	state memState
	done  bool
}

func (t *memTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.Contains(sql, "INSERT INTO orders"):
		if err := m.step("insert order"); err != nil {
			return memRow{err: err}
		}
		t.state.NextID++
		t.state.Orders[t.state.NextID] = memOrder{UserID: args[0].(string), CreatedAt: m.clock}
		return memRow{vals: []any{t.state.NextID, m.clock}}

	case strings.Contains(sql, "UPDATE groceries"):
		id, qty := args[0].(int64), args[1].(int)
		if err := m.step("decrement"); err != nil {
			return memRow{err: err}
		}
		m.log[len(m.log)-1] = fmt.Sprintf("decrement %d by %d", id, qty)
		inv, ok := t.state.Inventory[id]
		if !ok || inv < qty {
			return memRow{err: pgx.ErrNoRows}
		}
		t.state.Inventory[id] = inv - qty
		return memRow{vals: []any{inv - qty}}

	case strings.Contains(sql, "SELECT inventory FROM groceries"):
		if err := m.step("read inventory"); err != nil {
			return memRow{err: err}
		}
		inv, ok := t.state.Inventory[args[0].(int64)]
		if !ok {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{inv}}
	}
	return memRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (t *memTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if !strings.Contains(sql, "INSERT INTO order_items") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
	}
	if err := m.step("insert line"); err != nil {
		return pgconn.CommandTag{}, err
	}
	t.state.Lines = append(t.state.Lines, OrderLine{
		OrderID:   args[0].(int64),
		GroceryID: args[1].(int64),
		Quantity:  args[2].(int),
	})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *memTx) Commit(context.Context) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if err := m.step("commit"); err != nil {
		m.rolledBack++
		return err
	}
	m.state = t.state
	m.committed++
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	m.log = append(m.log, "rollback")
	m.rolledBack++
	return nil
}

type memRow struct {
	vals []any
	err  error
}

func (r memRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

type memRows struct {
	pgx.Rows
	vals [][]any
	i    int
}

func (r *memRows) Next() bool {
	if r.i >= len(r.vals) {
		return false
	}
	r.i++
	return true
}

func (r *memRows) Scan(dest ...any) error { return assign(dest, r.vals[r.i-1]) }
func (r *memRows) Err() error             { return nil }
func (r *memRows) Close()                 {}

func assign(dest, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}
