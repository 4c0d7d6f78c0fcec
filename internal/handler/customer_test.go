package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/centsibleapp/centsible/internal/guest"
	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/store"
)

func newCustomerMux(t *testing.T) *http.ServeMux {
	t.Helper()
	h := NewCustomerHandler(store.NewCustomerStore(setupTestDB(t)), nil, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /customers", h.Upsert)
	mux.HandleFunc("GET /customers", h.List)
	mux.HandleFunc("GET /customers/check-email", h.CheckEmail)
	return mux
}

type upsertResponse struct {
	Customer      model.Customer `json:"customer"`
	IsNewCustomer bool           `json:"isNewCustomer"`
}

func TestCustomerUpsertCreateThenUpdate(t *testing.T) {
	mux := newCustomerMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/customers",
		`{"firstName": "Alice", "lastName": "Smith", "email": "Alice@Example.com", "marketingConsent": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upsert: status %d, body %s", rec.Code, rec.Body.String())
	}
	var first upsertResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.IsNewCustomer {
		t.Error("first upsert should report a new customer")
	}
	if first.Customer.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", first.Customer.Email)
	}

	// Guest cookie accompanies the response.
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == guest.CookieName {
			found = true
		}
	}
	if !found {
		t.Error("expected guest cookie on upsert response")
	}

	rec = doJSON(t, mux, http.MethodPost, "/customers",
		`{"firstName": "Alicia", "lastName": "Smith", "email": "ALICE@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second upsert: status %d, want 200", rec.Code)
	}
	var second upsertResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.IsNewCustomer {
		t.Error("second upsert should not report a new customer")
	}
	if second.Customer.ID != first.Customer.ID {
		t.Errorf("upsert created a second row: %q vs %q", second.Customer.ID, first.Customer.ID)
	}
	if second.Customer.FirstName != "Alicia" {
		t.Errorf("firstName = %q, want updated value", second.Customer.FirstName)
	}
}

func TestCustomerUpsertValidation(t *testing.T) {
	mux := newCustomerMux(t)

	cases := []string{
		`{"firstName": "Alice", "lastName": "Smith"}`,
		`{"firstName": "Alice", "lastName": "Smith", "email": "not-an-email"}`,
		`{"email": "alice@example.com"}`,
		`{nope`,
	}
	for _, body := range cases {
		rec := doJSON(t, mux, http.MethodPost, "/customers", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rec.Code)
		}
	}
}

func TestCustomerList(t *testing.T) {
	mux := newCustomerMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/customers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty list: status %d", rec.Code)
	}
	var resp struct {
		Customers []model.Customer `json:"customers"`
		Count     int              `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 || resp.Customers == nil {
		t.Errorf("empty list = %+v; want count 0 and an empty array", resp)
	}

	doJSON(t, mux, http.MethodPost, "/customers", `{"firstName": "A", "lastName": "B", "email": "a@example.com"}`)

	rec = doJSON(t, mux, http.MethodGet, "/customers", "")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Customers) != 1 {
		t.Errorf("list = %+v, want 1 customer", resp)
	}
}

func TestCustomerCheckEmail(t *testing.T) {
	mux := newCustomerMux(t)

	doJSON(t, mux, http.MethodPost, "/customers", `{"firstName": "A", "lastName": "B", "email": "a@example.com"}`)

	check := func(query string) map[string]any {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/customers/check-email?"+query, strings.NewReader(""))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("check-email %s: status %d", query, rec.Code)
		}
		var resp map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	if resp := check("email=A@Example.com"); resp["exists"] != true {
		t.Errorf("exists = %v, want true", resp["exists"])
	}
	if resp := check("email=nobody@example.com"); resp["exists"] != false {
		t.Errorf("exists = %v, want false", resp["exists"])
	}
}
