package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"loyalty-points-api/internal/models"
	"loyalty-points-api/internal/qr"
	"loyalty-points-api/internal/service"
	"loyalty-points-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB, payloads here are tiny
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// AddPoints handles POST /add-points: redeem a scanned QR token against a
// purchase amount.
func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	resp, err := h.service.Redeem(r.Context(), req.QRData, req.Amount, time.Now().UTC())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// CreateCustomer handles POST /customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), req.Name)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, models.CustomerResponse{
		Customer: customer,
		Level:    customer.Level(),
	})
}

// GetCustomer handles GET /customers/{customer_id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := validation.SanitizeString(chi.URLParam(r, "customer_id"))
	if customerID == "" {
		h.respondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.CustomerResponse{
		Customer: customer,
		Level:    customer.Level(),
	})
}

// IssueQR handles GET /customers/{customer_id}/qr. With format=png the
// response is a scannable image, otherwise the encoded payload as JSON.
func (h *Handler) IssueQR(w http.ResponseWriter, r *http.Request) {
	customerID := validation.SanitizeString(chi.URLParam(r, "customer_id"))
	if customerID == "" {
		h.respondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	issued, err := h.service.IssueToken(r.Context(), customerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "png" {
		png, err := qr.RenderPNG(issued.Payload, 0)
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to render qr image")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
		return
	}

	h.respondJSON(w, http.StatusOK, issued)
}

// ListTransactions handles GET /customers/{customer_id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	customerID := validation.SanitizeString(chi.URLParam(r, "customer_id"))
	if customerID == "" {
		h.respondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), customerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.TransactionsResponse{
		CustomerID:   customerID,
		Transactions: transactions,
	})
}

// UpsertReward handles POST /rewards
func (h *Handler) UpsertReward(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Reward
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	reward, err := h.service.UpsertReward(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, reward)
}

// ListRewards handles GET /rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ListRewards(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, rewards)
}

// RedeemReward handles POST /rewards/redeem
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.RedeemRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.CustomerID = validation.SanitizeString(req.CustomerID)
	req.RewardID = validation.SanitizeString(req.RewardID)

	resp, err := h.service.RedeemReward(r.Context(), req.CustomerID, req.RewardID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// respondServiceError maps a classified service error to an HTTP status.
// Client errors keep their message; operational failures are logged in full
// and returned as a generic 500 so reconciliation detail never leaks out.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMalformedPayload),
		errors.Is(err, service.ErrIncompleteToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenAlreadyUsed),
		errors.Is(err, service.ErrInsufficientPoints):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrRewardNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("internal error: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
