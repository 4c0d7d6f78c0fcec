package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/centsibleapp/centsible/internal/guest"
	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/payments"
	"github.com/centsibleapp/centsible/internal/store"
)

type CustomerHandler struct {
	customerStore *store.CustomerStore
	billing       *payments.Client
	logger        *slog.Logger
}

func NewCustomerHandler(cs *store.CustomerStore, billing *payments.Client, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{customerStore: cs, billing: billing, logger: logger}
}

type customerRequest struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Phone            *string `json:"phone"`
	Notes            *string `json:"notes"`
	MarketingConsent bool    `json:"marketingConsent"`
	SMSConsent       bool    `json:"smsConsent"`
}

// Upsert is the public data-collection endpoint: one customer row per
// normalized email, created or updated in place. 201 for a new customer,
// 200 for an update.
func (h *CustomerHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	addr := store.NormalizeEmail(req.Email)
	if addr == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "firstName and lastName are required")
		return
	}

	customer, isNew, err := h.customerStore.UpsertByEmail(store.NewCustomer{
		Email:            addr,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Notes:            req.Notes,
		MarketingConsent: req.MarketingConsent,
		SMSConsent:       req.SMSConsent,
	})
	if err != nil {
		h.logger.Error("upsert customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save customer")
		return
	}

	// First appearance: provision a Stripe customer. Billing failures must
	// not lose the signup, so they are only logged.
	if isNew && h.billing != nil && customer.StripeCustomerID == nil {
		stripeID, err := h.billing.CreateCustomer(customer.Email)
		if err != nil {
			h.logger.Error("provision stripe customer", "error", err, "email", customer.Email)
		} else if err := h.customerStore.SetStripeCustomerID(customer.ID, stripeID); err != nil {
			h.logger.Error("store stripe customer id", "error", err)
		} else {
			customer.StripeCustomerID = &stripeID
		}
	}

	guest.Set(w, r, customer.Email)

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"customer":      customer,
		"isNewCustomer": isNew,
	})
}

// List returns all customers, newest first. Admin only.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customerStore.List()
	if err != nil {
		h.logger.Error("list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customers": customers,
		"count":     len(customers),
	})
}

// CheckEmail reports whether a customer exists for the given email.
func (h *CustomerHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	addr := store.NormalizeEmail(r.URL.Query().Get("email"))
	if addr == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	customer, err := h.customerStore.GetByEmail(addr)
	if err != nil {
		h.logger.Error("check email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}

	resp := map[string]any{
		"exists": customer != nil,
		"email":  addr,
	}
	if customer != nil {
		resp["customer"] = customer
	}
	writeJSON(w, http.StatusOK, resp)
}
