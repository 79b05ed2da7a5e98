package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/observability"
	"github.com/JairHAM/pos-api/internal/orders"
	"github.com/JairHAM/pos-api/internal/redisx"
)

// IdempotencyStore is satisfied by redisx.IdempotencyStore.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key string) (redisx.IdemState, string, error)
	Complete(ctx context.Context, scope, key, orderID string) error
	Release(ctx context.Context, scope, key string) error
}

type OrdersHandler struct {
	Service     *orders.Service
	Idempotency IdempotencyStore
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}", h.updateStatus)
	r.Patch("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Get("/orders/{id}/history", h.getHistory)
}

type createOrderItem struct {
	ProductID string              `json:"productId"`
	Quantity  json.Number         `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
	Notes     string              `json:"notes"`
}

type createOrderReq struct {
	Items         []createOrderItem   `json:"items"`
	PaymentMethod string              `json:"paymentMethod"`
	TableNumber   string              `json:"tableNumber"`
	CustomerName  string              `json:"customerName"`
	Notes         string              `json:"notes"`
	Tax           decimal.NullDecimal `json:"tax"`
	Discount      decimal.NullDecimal `json:"discount"`
}

type createOrderResp struct {
	Message       string                `json:"message"`
	Order         orders.Order          `json:"order"`
	StockWarnings []orders.StockWarning `json:"stockWarnings,omitempty"`
}

func (req createOrderReq) input(userID string) (orders.CreateOrderInput, error) {
	in := orders.CreateOrderInput{
		UserID:        userID,
		PaymentMethod: orders.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		TableNumber:   req.TableNumber,
		CustomerName:  req.CustomerName,
		Notes:         req.Notes,
		Tax:           req.Tax,
		Discount:      req.Discount,
		Items:         make([]orders.ItemRequest, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		qty, err := strconv.Atoi(it.Quantity.String())
		if err != nil {
			return in, orders.ErrInvalidQuantity.WithDetails("productId", it.ProductID)
		}
		in.Items = append(in.Items, orders.ItemRequest{
			ProductID: strings.TrimSpace(it.ProductID),
			Quantity:  qty,
			Price:     it.Price,
			Notes:     it.Notes,
		})
	}
	return in, nil
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req createOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if h.Idempotency == nil {
		key = ""
	}
	if key != "" {
		state, orderID, err := h.Idempotency.Claim(ctx, claims.UserID, key)
		switch {
		case err != nil:
			observability.FromContext(ctx, nil).Warn("idempotency unavailable, creating without it", zap.Error(err))
			key = ""
		case state == redisx.IdemInFlight:
			writeError(w, r, orders.ErrIdempotencyInProgress)
			return
		case state == redisx.IdemDone:
			o, err := h.Service.GetOrder(ctx, orderID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, createOrderResp{Message: "order already created", Order: o})
			return
		}
	}

	res, err := h.Service.CreateOrder(ctx, in)
	if err != nil {
		if key != "" {
			_ = h.Idempotency.Release(ctx, claims.UserID, key)
		}
		writeError(w, r, err)
		return
	}
	if key != "" {
		if err := h.Idempotency.Complete(ctx, claims.UserID, key, res.Order.ID); err != nil {
			observability.FromContext(ctx, nil).Warn("idempotency complete", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, createOrderResp{
		Message:       "order created",
		Order:         res.Order,
		StockWarnings: res.StockWarnings,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f orders.ListFilter
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		st, err := orders.ParseStatus(strings.ToUpper(s))
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Status = st
	}
	for _, p := range []struct {
		param    string
		endOfDay bool
		dst      **time.Time
	}{
		{"startDate", false, &f.From},
		{"endDate", true, &f.To},
	} {
		s := strings.TrimSpace(q.Get(p.param))
		if s == "" {
			continue
		}
		t, err := parseDate(s, p.endOfDay)
		if err != nil {
			writeError(w, r, errInvalidDate.WithDetails("param", p.param))
			return
		}
		*p.dst = &t
	}

	list, err := h.Service.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// parseDate accepts RFC3339 or a calendar day. A day used as an end bound
// covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := orders.ParseStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), st, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "order status updated", "order": o})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	o, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "order cancelled", "order": o})
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Service.Status(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": id, "status": st})
}

func (h *OrdersHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.StatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
