package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/centsibleapp/centsible/internal/model"
	"github.com/centsibleapp/centsible/internal/store"
)

func newBackupMux(t *testing.T) (*http.ServeMux, *store.BackupStore) {
	t.Helper()
	bs := store.NewBackupStore(setupTestDB(t))
	h := NewBackupHandler(bs, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /backups", h.List)
	mux.HandleFunc("DELETE /backups/{id}", h.Delete)
	return mux, bs
}

func TestBackupList(t *testing.T) {
	mux, bs := newBackupMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/backups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty list: status %d", rec.Code)
	}
	var resp struct {
		Backups []model.Backup `json:"backups"`
		Count   int            `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 || resp.Backups == nil {
		t.Errorf("empty list = %+v; want count 0 and an empty array", resp)
	}

	if _, err := bs.Create("centsible/2026-08-28T01-00-00.db.enc", 1024); err != nil {
		t.Fatalf("create record: %v", err)
	}

	rec = doJSON(t, mux, http.MethodGet, "/backups", "")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || len(resp.Backups) != 1 {
		t.Fatalf("list = %+v, want 1 record", resp)
	}
	if resp.Backups[0].ObjectKey != "centsible/2026-08-28T01-00-00.db.enc" || resp.Backups[0].SizeBytes != 1024 {
		t.Errorf("record = %+v", resp.Backups[0])
	}
}

func TestBackupListBadLimit(t *testing.T) {
	mux, _ := newBackupMux(t)

	for _, query := range []string{"limit=0", "limit=-1", "limit=abc"} {
		rec := doJSON(t, mux, http.MethodGet, "/backups?"+query, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", query, rec.Code)
		}
	}
}

func TestBackupDelete(t *testing.T) {
	mux, bs := newBackupMux(t)

	created, err := bs.Create("centsible/old.db.enc", 512)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/backups/"+itoa(created.ID), ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/backups/"+itoa(created.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}
