package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	"github.com/ariefcatur/go-grocery-store/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogStore interface {
	Add(ctx context.Context, in catalog.ItemInput) (int64, error)
	Get(ctx context.Context, id int64) (catalog.GroceryItem, error)
	List(ctx context.Context, f catalog.Filter) ([]catalog.GroceryItem, error)
	ListAvailable(ctx context.Context, f catalog.Filter) ([]catalog.GroceryItem, error)
	Update(ctx context.Context, id int64, in catalog.ItemInput) error
	AdjustInventory(ctx context.Context, id int64, inventory int) error
	Delete(ctx context.Context, id int64) error
}

type CatalogHandler struct {
	Catalog CatalogStore
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/admin/grocery", func(r chi.Router) {
		r.Post("/", h.addItem)
		r.Get("/", h.listItems)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
		r.Patch("/{id}/inventory", h.adjustInventory)
	})
	r.Get("/user/grocery", h.listAvailable)
}

type adjustInventoryReq struct {
	Inventory *int `json:"inventory"`
}

func (h *CatalogHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var in catalog.ItemInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	id, err := h.Catalog.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Grocery item added successfully",
		"itemId":  id,
	})
}

func (h *CatalogHandler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Catalog.List(r.Context(), catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "items": items})
}

func (h *CatalogHandler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	item, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "item": item})
}

func (h *CatalogHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in catalog.ItemInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Catalog.Update(r.Context(), id, in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Grocery item updated successfully"})
}

func (h *CatalogHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Grocery item deleted successfully"})
}

func (h *CatalogHandler) adjustInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req adjustInventoryReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Inventory == nil {
		writeError(w, r, h.Log, apperr.Invalid("inventory is required"))
		return
	}
	if err := h.Catalog.AdjustInventory(r.Context(), id, *req.Inventory); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Inventory updated successfully"})
}

func (h *CatalogHandler) listAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, err := catalog.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	items, err := h.Catalog.ListAvailable(r.Context(), catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     sort,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "items": items})
}
