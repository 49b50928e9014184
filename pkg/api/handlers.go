// Package api exposes the subscription lifecycle and ledger over HTTP.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/billing"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/httputil"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

// SubscriptionHandlers handles subscription-related HTTP requests
type SubscriptionHandlers struct {
	service *subscription.Service
	ledger  *billing.Ledger
	logger  *observability.Logger
}

// NewSubscriptionHandlers creates a new SubscriptionHandlers
func NewSubscriptionHandlers(service *subscription.Service, ledger *billing.Ledger, logger *observability.Logger) *SubscriptionHandlers {
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}
	return &SubscriptionHandlers{
		service: service,
		ledger:  ledger,
		logger:  logger,
	}
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/subscriptions", h.CreateSubscription).Methods("POST")
	router.HandleFunc("/subscriptions", h.ListSubscriptions).Methods("GET")
	router.HandleFunc("/subscriptions/transactions", h.ListTransactions).Methods("GET")
	router.HandleFunc("/subscriptions/{donorId}", h.CancelSubscription).Methods("DELETE")
}

// createSubscriptionRequest is the POST /subscriptions payload
type createSubscriptionRequest struct {
	DonorID             string   `json:"donorId"`
	Amount              *float64 `json:"amount"`
	Currency            string   `json:"currency"`
	Interval            string   `json:"interval"`
	CampaignDescription string   `json:"campaignDescription"`
}

func (r *createSubscriptionRequest) validate() string {
	if strings.TrimSpace(r.DonorID) == "" {
		return "donorId is required"
	}
	if r.Amount == nil {
		return "amount is required"
	}
	if *r.Amount <= 0 {
		return "amount must be positive"
	}
	if strings.TrimSpace(r.Currency) == "" {
		return "currency is required"
	}
	if strings.TrimSpace(r.Interval) == "" {
		return "interval is required"
	}
	if strings.TrimSpace(r.CampaignDescription) == "" {
		return "campaignDescription is required"
	}
	return ""
}

// CreateSubscription enrolls a new recurring donation
func (h *SubscriptionHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteBadRequest(w, msg)
		return
	}

	sub, err := h.service.Create(r.Context(), req.DonorID, *req.Amount, req.Currency,
		subscription.Interval(req.Interval), req.CampaignDescription)
	if err != nil {
		h.logger.WithError(err).Error("failed to create subscription")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, sub)
}

// CancelSubscription deactivates the oldest active subscription for a donor
func (h *SubscriptionHandlers) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	donorID, ok := httputil.ParsePathStringOrError(w, r, "donorId")
	if !ok {
		return
	}

	found, err := h.service.Cancel(r.Context(), donorID)
	if err != nil {
		h.logger.WithError(err).Error("failed to cancel subscription")
		httputil.WriteInternalError(w, err)
		return
	}
	if !found {
		httputil.WriteNotFoundError(w, "No active subscription found for donor.")
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "Subscription cancelled."})
}

// ListSubscriptions returns all active subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListActive(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list subscriptions")
		httputil.WriteInternalError(w, err)
		return
	}
	if views == nil {
		views = []subscription.View{}
	}
	httputil.WriteSuccess(w, views)
}

// ListTransactions returns the charge ledger in append order
func (h *SubscriptionHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entries := h.ledger.List()
	views := make([]billing.View, 0, len(entries))
	for _, tx := range entries {
		views = append(views, billing.ViewOf(tx))
	}
	httputil.WriteSuccess(w, views)
}
