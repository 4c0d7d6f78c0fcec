package payments

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	"github.com/stripe/stripe-go/v82/customer"
)

// Config holds Stripe settings. An empty SecretKey disables billing.
type Config struct {
	SecretKey string
	ReturnURL string
}

// Client wraps the Stripe operations the service needs: provisioning a
// customer record when someone first shares their email, and handing admins a
// billing-portal URL for an existing customer. Payment lifecycle correctness
// stays on Stripe's side.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CreateCustomer creates a Stripe customer and returns the customer ID.
func (c *Client) CreateCustomer(email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreatePortalSession returns a billing-portal URL for the Stripe customer.
func (c *Client) CreatePortalSession(stripeCustomerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(stripeCustomerID),
		ReturnURL: stripe.String(c.cfg.ReturnURL),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}
