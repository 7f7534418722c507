package catalog

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
)

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	Search   string // case-sensitive substring of name, trimmed
	Sort     Sort   // only honoured by ListAvailable
}

// Sort is an ORDER BY taken from a fixed set of columns. The zero value
// leaves ordering to the store.
type Sort struct {
	column string
	desc   bool
}

var sortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"price":     "price",
	"category":  "category",
	"inventory": "inventory",
}

// ParseSort accepts a column key with an optional leading "-" for
// descending order, e.g. "price" or "-inventory".
func ParseSort(key string) (Sort, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Sort{}, nil
	}
	desc := strings.HasPrefix(key, "-")
	col, ok := sortColumns[strings.TrimPrefix(key, "-")]
	if !ok {
		return Sort{}, apperr.Invalid("unknown sort key %q", key)
	}
	return Sort{column: col, desc: desc}, nil
}

func (s Sort) IsZero() bool { return s.column == "" }

func (s Sort) orderBy() string {
	if s.IsZero() {
		return ""
	}
	dir := "ASC"
	if s.desc {
		dir = "DESC"
	}
	// id breaks ties so equal keys come back in a stable order
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", s.column, dir)
}

// where collects AND-ed predicates. Values only ever travel as bound
// arguments; format strings take the placeholder index.
type where struct {
	clauses []string
	args    []any
}

func (w *where) bind(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) fixed(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (f Filter) where() *where {
	w := &where{}
	if f.Category != "" {
		w.bind("category = $%d", f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.bind("strpos(name, $%d) > 0", s)
	}
	return w
}

func listQuery(f Filter) (string, []any) {
	w := f.where()
	return `SELECT ` + itemColumns + ` FROM groceries` + w.String(), w.args
}

func availableQuery(f Filter) (string, []any) {
	w := f.where()
	w.fixed("inventory > 0")
	return `SELECT ` + itemColumns + ` FROM groceries` + w.String() + f.Sort.orderBy(), w.args
}
