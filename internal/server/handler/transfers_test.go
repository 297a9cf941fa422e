package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestListTransfers_200_newestFirstWithNames(t *testing.T) {
	r, store, tokens := setupCustodyRouter(t)
	store.AddUserWithName(1, "Dana Holt")
	store.AddUserWithName(2, "Miriam Chen")
	store.AddUserWithName(3, "Raj Patel")

	id := intakeLaptop(t, r, bearerFor(t, tokens, 1))
	w := doJSON(t, r, http.MethodPost, "/api/v1/transfers", bearerFor(t, tokens, 2), map[string]any{
		"evidence_id": id,
		"to_user_id":  3,
		"notes":       "To lab",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("transfer: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/transfers", bearerFor(t, tokens, 1), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var entries []struct {
		EvidenceID   int64  `json:"evidence_id"`
		FromUserID   int64  `json:"from_user_id"`
		ToUserID     int64  `json:"to_user_id"`
		FromUserName string `json:"from_user_name"`
		ToUserName   string `json:"to_user_name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode transfer log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first: the lab hand-off precedes the genesis record.
	if entries[0].ToUserID != 3 || entries[1].FromUserID != 1 {
		t.Fatalf("wrong order: %+v", entries)
	}
	if entries[0].FromUserName != "Miriam Chen" || entries[0].ToUserName != "Raj Patel" {
		t.Errorf("expected joined names, got %q -> %q", entries[0].FromUserName, entries[0].ToUserName)
	}
	if entries[1].FromUserName != "Dana Holt" {
		t.Errorf("expected genesis sender Dana Holt, got %q", entries[1].FromUserName)
	}

	// A limit caps the log at the newest entries.
	w = doJSON(t, r, http.MethodGet, "/api/v1/transfers?limit=1", bearerFor(t, tokens, 1), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("limited list: expected 200, got %d", w.Code)
	}
	entries = entries[:0]
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode limited log: %v", err)
	}
	if len(entries) != 1 || entries[0].ToUserID != 3 {
		t.Fatalf("expected only the newest entry, got %+v", entries)
	}
}

func TestListTransfers_200_emptyLog(t *testing.T) {
	r, _, tokens := setupCustodyRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/transfers", bearerFor(t, tokens, 1), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestListTransfers_400_badLimit(t *testing.T) {
	r, _, tokens := setupCustodyRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/transfers?limit=-5", bearerFor(t, tokens, 1), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListTransfers_401_withoutToken(t *testing.T) {
	r, _, _ := setupCustodyRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/transfers", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
