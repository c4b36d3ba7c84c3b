package rulesparser_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vecna/internal/services/jsonapi"
	"vecna/internal/services/rulesparser"
)

func TestClientParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req rulesparser.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.EntityID != 42 || req.DocumentReference != "https://rules.example/a.pdf" {
			t.Fatalf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "unreadable pdf"})
	}))
	defer server.Close()

	client := rulesparser.NewClient(jsonapi.Config{BaseURL: server.URL})
	resp, err := client.Parse(context.Background(), rulesparser.Request{
		EntityID:          42,
		DocumentReference: "https://rules.example/a.pdf",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Success || resp.Error != "unreadable pdf" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientParseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := rulesparser.NewClient(jsonapi.Config{BaseURL: server.URL})
	if _, err := client.Parse(context.Background(), rulesparser.Request{EntityID: 1}); err == nil {
		t.Fatal("expected error for 422 response")
	}
}
