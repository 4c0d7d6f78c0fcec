package model

import "time"

type Customer struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Phone            *string   `json:"phone,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	MarketingConsent bool      `json:"marketingConsent"`
	SMSConsent       bool      `json:"smsConsent"`
	StripeCustomerID *string   `json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
