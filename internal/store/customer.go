package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/centsibleapp/centsible/internal/model"
)

// ErrEmailExists is returned by Create when the normalized email is already taken.
var ErrEmailExists = errors.New("email already exists")

// NormalizeEmail lower-cases and trims an email address. All lookups and
// writes go through this, so comparisons are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(scanner interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	var phone, notes, stripeID sql.NullString
	var marketing, sms int

	err := scanner.Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &phone, &notes,
		&marketing, &sms, &stripeID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		c.Phone = &phone.String
	}
	if notes.Valid {
		c.Notes = &notes.String
	}
	if stripeID.Valid {
		c.StripeCustomerID = &stripeID.String
	}
	c.MarketingConsent = marketing != 0
	c.SMSConsent = sms != 0
	return &c, nil
}

const customerCols = `id, email, first_name, last_name, phone, notes, marketing_consent, sms_consent, stripe_customer_id, created_at, updated_at`

// NewCustomer carries the caller-supplied attributes for Create and UpsertByEmail.
type NewCustomer struct {
	Email            string
	FirstName        string
	LastName         string
	Phone            *string
	Notes            *string
	MarketingConsent bool
	SMSConsent       bool
}

// CustomerPatch holds partial updates; nil fields keep their stored value.
type CustomerPatch struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	Notes            *string
	MarketingConsent *bool
	SMSConsent       *bool
}

// Create inserts a new customer with a generated opaque id. The email is
// normalized before storage; a duplicate returns ErrEmailExists.
func (s *CustomerStore) Create(nc NewCustomer) (*model.Customer, error) {
	id := uuid.NewString()
	email := NormalizeEmail(nc.Email)

	_, err := s.db.Exec(
		`INSERT INTO customers (id, email, first_name, last_name, phone, notes, marketing_consent, sms_consent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, email, nc.FirstName, nc.LastName,
		nullString(nc.Phone), nullString(nc.Notes),
		boolToInt(nc.MarketingConsent), boolToInt(nc.SMSConsent),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return s.GetByID(id)
}

func (s *CustomerStore) GetByID(id string) (*model.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *CustomerStore) GetByEmail(email string) (*model.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerCols+` FROM customers WHERE email = ?`, NormalizeEmail(email))
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

// List returns all customers, most recently created first.
func (s *CustomerStore) List() ([]model.Customer, error) {
	rows, err := s.db.Query(`SELECT ` + customerCols + ` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// Update applies the non-nil patch fields and re-stamps updated_at.
// Returns nil when no customer matches the id.
func (s *CustomerStore) Update(id string, p CustomerPatch) (*model.Customer, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	firstName := existing.FirstName
	if p.FirstName != nil {
		firstName = *p.FirstName
	}
	lastName := existing.LastName
	if p.LastName != nil {
		lastName = *p.LastName
	}
	phone := existing.Phone
	if p.Phone != nil {
		phone = p.Phone
	}
	notes := existing.Notes
	if p.Notes != nil {
		notes = p.Notes
	}
	marketing := existing.MarketingConsent
	if p.MarketingConsent != nil {
		marketing = *p.MarketingConsent
	}
	sms := existing.SMSConsent
	if p.SMSConsent != nil {
		sms = *p.SMSConsent
	}

	_, err = s.db.Exec(
		`UPDATE customers SET first_name = ?, last_name = ?, phone = ?, notes = ?,
		 marketing_consent = ?, sms_consent = ?, updated_at = datetime('now') WHERE id = ?`,
		firstName, lastName, nullString(phone), nullString(notes),
		boolToInt(marketing), boolToInt(sms), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the customer and reports whether a row was removed.
func (s *CustomerStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete customer: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpsertByEmail creates the customer if the normalized email is unknown,
// otherwise updates the existing row in place. The boolean reports whether a
// new row was created. This is the only mutation path used by the public
// data-collection flow, so one email never maps to two customer rows.
func (s *CustomerStore) UpsertByEmail(nc NewCustomer) (*model.Customer, bool, error) {
	existing, err := s.GetByEmail(nc.Email)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		c, err := s.Create(nc)
		if err != nil {
			return nil, false, err
		}
		return c, true, nil
	}

	marketing := nc.MarketingConsent
	sms := nc.SMSConsent
	c, err := s.Update(existing.ID, CustomerPatch{
		FirstName:        &nc.FirstName,
		LastName:         &nc.LastName,
		Phone:            nc.Phone,
		Notes:            nc.Notes,
		MarketingConsent: &marketing,
		SMSConsent:       &sms,
	})
	if err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// SetStripeCustomerID records the provisioned Stripe customer for billing.
func (s *CustomerStore) SetStripeCustomerID(id, stripeCustomerID string) error {
	_, err := s.db.Exec(
		`UPDATE customers SET stripe_customer_id = ?, updated_at = datetime('now') WHERE id = ?`,
		stripeCustomerID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
