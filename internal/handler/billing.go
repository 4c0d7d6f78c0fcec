package handler

import (
	"log/slog"
	"net/http"

	"github.com/centsibleapp/centsible/internal/payments"
	"github.com/centsibleapp/centsible/internal/store"
)

type BillingHandler struct {
	customerStore *store.CustomerStore
	billing       *payments.Client
	logger        *slog.Logger
}

func NewBillingHandler(cs *store.CustomerStore, billing *payments.Client, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{customerStore: cs, billing: billing, logger: logger}
}

// PortalSession returns a Stripe billing-portal URL for the customer. Admin only.
func (h *BillingHandler) PortalSession(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		writeError(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}

	id := r.PathValue("id")
	customer, err := h.customerStore.GetByID(id)
	if err != nil {
		h.logger.Error("get customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	if customer.StripeCustomerID == nil {
		writeError(w, http.StatusNotFound, "customer has no billing profile")
		return
	}

	url, err := h.billing.CreatePortalSession(*customer.StripeCustomerID)
	if err != nil {
		h.logger.Error("create portal session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create portal session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
