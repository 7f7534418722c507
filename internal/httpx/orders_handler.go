package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-grocery-store/internal/apperr"
	kafkax "github.com/ariefcatur/go-grocery-store/internal/kafka"
	"github.com/ariefcatur/go-grocery-store/internal/orders"
	"github.com/ariefcatur/go-grocery-store/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type OrderStore interface {
	PlaceOrder(ctx context.Context, userID string, items []orders.LineInput) (orders.Placed, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// IdempotencyStore claims a key before the order runs so concurrent retries
// with the same key never place two orders.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (redisx.ClaimState, int64, error)
	Complete(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}

// OrdersHandler serves order placement. Producer and Idem are optional.
type OrdersHandler struct {
	Orders   OrderStore
	Producer EventPublisher
	Idem     IdempotencyStore
	Service  string
	Log      *zap.Logger
}

// userRef accepts the user id as a JSON string or number.
type userRef string

func (u *userRef) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = userRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*u = userRef(n.String())
	return nil
}

type placeOrderReq struct {
	UserID userRef            `json:"userId"`
	Items  []orders.LineInput `json:"items"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/user/order", h.placeOrder)
	r.Get("/user/order/{id}", h.getOrder)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx := r.Context()
	userID := string(req.UserID)

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.Idem != nil {
		state, id, err := h.Idem.Claim(ctx, key)
		switch {
		case err != nil:
			h.Log.Warn("idempotency claim failed", zap.String("key", key), zap.Error(err))
			key = ""
		case state == redisx.Completed:
			writeJSON(w, http.StatusOK, envelope{
				"success":    true,
				"message":    "Order already placed",
				"orderId":    id,
				"idempotent": true,
			})
			return
		case state == redisx.InFlight:
			writeError(w, r, h.Log, apperr.Conflict("request with Idempotency-Key %q is still in progress", key))
			return
		}
	} else {
		key = ""
	}

	placed, err := h.Orders.PlaceOrder(ctx, userID, req.Items)
	if err != nil {
		if key != "" {
			if rerr := h.Idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
				h.Log.Warn("idempotency release failed", zap.String("key", key), zap.Error(rerr))
			}
		}
		writeError(w, r, h.Log, err)
		return
	}

	if key != "" {
		if err := h.Idem.Complete(context.WithoutCancel(ctx), key, placed.OrderID); err != nil {
			h.Log.Warn("idempotency record failed", zap.String("key", key),
				zap.Int64("order_id", placed.OrderID), zap.Error(err))
		}
	}
	h.publishPlaced(r, userID, placed, req.Items)

	writeJSON(w, http.StatusOK, envelope{
		"success":    true,
		"message":    "Order placed successfully",
		"orderId":    placed.OrderID,
		"idempotent": false,
	})
}

// publishPlaced runs after commit; a failure here never changes the response.
func (h *OrdersHandler) publishPlaced(r *http.Request, userID string, p orders.Placed, items []orders.LineInput) {
	if h.Producer == nil {
		return
	}
	ev, err := orders.NewOrderPlaced(h.Service, middleware.GetReqID(r.Context()), userID, p, items)
	if err != nil {
		h.Log.Error("build order event", zap.Int64("order_id", p.OrderID), zap.Error(err))
		return
	}
	h.Producer.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "order": o})
}
