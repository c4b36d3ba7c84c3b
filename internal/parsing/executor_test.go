package parsing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/parsing"
	"vecna/internal/pipeline"
	"vecna/internal/services"
	"vecna/internal/services/jsonapi"
	"vecna/internal/services/rulesparser"
	"vecna/internal/stageexec"
	"vecna/internal/testsupport"
)

func newExecutor(t *testing.T, store *catalog.Store, handler http.HandlerFunc) *parsing.Executor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := rulesparser.NewClient(jsonapi.Config{BaseURL: server.URL}, jsonapi.WithRetryMaxAttempts(1))
	return parsing.NewExecutor(store, client, logging.NewNop(), time.Minute, 5*time.Second)
}

func readyEntity(t *testing.T, store *catalog.Store, url string) *catalog.Entity {
	t.Helper()
	return testsupport.NewEntityInState(t, store, catalog.NewEntity{Name: "Wingspan", RulebookURL: url}, pipeline.StateRulebookReady)
}

func TestParseSuccess(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entity := readyEntity(t, store, "https://rules.example/wingspan.pdf")

	exec := newExecutor(t, store, func(w http.ResponseWriter, r *http.Request) {
		var req rulesparser.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.EntityID != entity.ID || req.DocumentReference != "https://rules.example/wingspan.pdf" {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(rulesparser.Response{Success: true})
	})

	result, err := exec.Run(context.Background(), entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Succeeded {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Entity.State != pipeline.StateParsed || !result.Entity.HasParsedText {
		t.Fatalf("unexpected entity %+v", result.Entity)
	}
}

func TestParseExplicitFailureFlag(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entity := readyEntity(t, store, "https://rules.example/wingspan.pdf")

	exec := newExecutor(t, store, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rulesparser.Response{Success: false, Error: "scanned images only"})
	})
	result, err := exec.Run(context.Background(), entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Failed || result.Entity.State != pipeline.StateRulebookReady {
		t.Fatalf("expected rollback, got %+v", result)
	}
	if result.Entity.LastError != "parse service reported failure: scanned images only" {
		t.Fatalf("LastError = %q", result.Entity.LastError)
	}
}

func TestParseHTTPFailure(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entity := readyEntity(t, store, "https://rules.example/wingspan.pdf")

	exec := newExecutor(t, store, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "extractor crashed", http.StatusBadGateway)
	})
	result, err := exec.Run(context.Background(), entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Failed || result.Entity.State != pipeline.StateRulebookReady {
		t.Fatalf("expected rollback, got %+v", result)
	}
	if !strings.HasPrefix(result.Entity.LastError, "parse service call failed") || !strings.Contains(result.Entity.LastError, "502") {
		t.Fatalf("LastError = %q", result.Entity.LastError)
	}

	// Same executor, retried after the service recovers.
	retry, err := store.RequireEntity(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("RequireEntity: %v", err)
	}
	if retry.State != pipeline.StateRulebookReady {
		t.Fatalf("entity should stay eligible for retry, got %s", retry.State)
	}
}

func TestParseWithoutRulebookIsSkipped(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entity := readyEntity(t, store, "")

	exec := newExecutor(t, store, func(w http.ResponseWriter, r *http.Request) {
		t.Error("service must not be called without a rulebook")
	})
	result, err := exec.Run(context.Background(), entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Skipped || !errors.Is(result.Err, services.ErrPrecondition) {
		t.Fatalf("expected precondition skip, got %+v", result)
	}
	if result.Entity.LastError != "" || result.Entity.State != pipeline.StateRulebookReady {
		t.Fatalf("skipped step must not mark the entity, got %+v", result.Entity)
	}
}
