package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
	"github.com/tdhoang/withdrawal-service/internal/core/plan"
	"github.com/tdhoang/withdrawal-service/internal/core/service"
)

// WithdrawalAPI is the slice of the withdrawal service the handler needs.
type WithdrawalAPI interface {
	WithdrawForAccount(ctx context.Context, requestID, accountID string, keys []domain.ItemKey) (*service.WithdrawalResult, error)
	PendingOrderID(ctx context.Context, accountID string) (string, error)
}

type HTTPHandler struct {
	withdrawals WithdrawalAPI
	logger      *zap.Logger
}

func NewHTTPHandler(withdrawals WithdrawalAPI, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{withdrawals: withdrawals, logger: logger}
}

type withdrawItemRef struct {
	ItemID string `json:"item_id"`
	SubKey string `json:"sub_key"`
}

type WithdrawRequest struct {
	RequestID string            `json:"request_id"`
	AccountID string            `json:"account_id"`
	Items     []withdrawItemRef `json:"items"`
}

type itemView struct {
	ItemID string `json:"item_id"`
	SubKey string `json:"sub_key"`
	Status string `json:"status"`
}

type orderView struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	ItemCount int        `json:"item_count"`
	Items     []itemView `json:"items"`
}

type WithdrawResponse struct {
	RequestID string      `json:"request_id"`
	AccountID string      `json:"account_id"`
	Orders    []orderView `json:"orders"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.AccountID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account_id is required"})
		return
	}
	keys := make([]domain.ItemKey, len(req.Items))
	for i, it := range req.Items {
		if it.ItemID == "" || it.SubKey == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "items require item_id and sub_key"})
			return
		}
		keys[i] = domain.ItemKey{ItemID: it.ItemID, SubKey: it.SubKey}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	result, err := h.withdrawals.WithdrawForAccount(r.Context(), req.RequestID, req.AccountID, keys)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	statusByKey := make(map[domain.ItemKey]domain.ItemStatus, len(result.Items))
	for _, it := range result.Items {
		statusByKey[it.Key()] = it.Status
	}

	resp := WithdrawResponse{
		RequestID: req.RequestID,
		AccountID: req.AccountID,
		Orders:    make([]orderView, 0, len(result.Orders)),
	}
	for _, o := range result.Orders {
		ov := orderView{
			ID:        o.ID,
			Status:    string(o.Status),
			ItemCount: len(o.Items),
			Items:     make([]itemView, 0, len(o.Items)),
		}
		for _, k := range o.Items {
			status := statusByKey[k]
			if status == "" {
				// item was already on the order before this batch
				status = domain.ItemStatusWithdrawing
			}
			ov.Items = append(ov.Items, itemView{ItemID: k.ItemID, SubKey: k.SubKey, Status: string(status)})
		}
		resp.Orders = append(resp.Orders, ov)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) PendingOrder(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account id is required"})
		return
	}

	id, err := h.withdrawals.PendingOrderID(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if id == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no pending order"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"order_id": id})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, plan.ErrTooManyItems):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many items"})
	case errors.Is(err, plan.ErrMissingShippingAddress):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "account has no shipping address"})
	case errors.Is(err, service.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "account not found"})
	case errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "inventory item not found"})
	case errors.Is(err, service.ErrDuplicateItem):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "item appears more than once"})
	case errors.Is(err, service.ErrItemNotWithdrawable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "item not available for withdrawal"})
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate request"})
	case errors.Is(err, service.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "concurrent modification, retry with fresh state"})
	default:
		h.logger.Error("withdrawal request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
