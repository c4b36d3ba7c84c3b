package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"vecna/internal/catalog"
	"vecna/internal/config"
	"vecna/internal/pipeline"
	"vecna/internal/services"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.DatabasePath())
	requireContains(t, out, env.cfg.Services.ParseURL)
	requireContains(t, out, "disabled (no ntfy_topic)")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigSummaryFlagsGaps(t *testing.T) {
	cfg := config.Default()
	cfg.Services.ParseURL = "http://parse.local"
	cfg.Services.GenerateURL = ""
	cfg.Services.TimeoutSeconds = 30
	cfg.Services.RetryAttempts = 2
	cfg.Pipeline.LeaseSeconds = 10
	cfg.Notifications.NtfyTopic = "https://ntfy.example/vecna"

	got := map[string]summaryLine{}
	for _, line := range configSummary(&cfg, "/tmp/missing.toml", false) {
		got[line.label] = line
	}
	tests := []struct {
		label string
		kind  statusKind
		text  string
	}{
		{"Config file", statusWarn, "defaults used"},
		{"Parse service", statusOK, "http://parse.local"},
		{"Generate service", statusError, "not configured"},
		{"Step budget", statusInfo, "1m10s"},
		{"Processing lease", statusWarn, "raised"},
		{"Notifications", statusOK, "https://ntfy.example/vecna"},
	}
	for _, tc := range tests {
		line, ok := got[tc.label]
		if !ok {
			t.Fatalf("missing %q line", tc.label)
		}
		if line.kind != tc.kind || !strings.Contains(line.message, tc.text) {
			t.Fatalf("%s: got kind %d message %q", tc.label, line.kind, line.message)
		}
	}
}

func TestRenderTableFillsEmptyCells(t *testing.T) {
	out := renderTable([]column{{Title: "Category"}, {Title: "Score", Numeric: true}, {Title: "Missing"}},
		[][]string{{"rules", "100.0%", ""}, {"setup"}})
	requireContains(t, out, "Category")
	if strings.Count(out, " "+emptyCell+" ") != 3 {
		t.Fatalf("expected three placeholder cells:\n%s", out)
	}
	if renderTable(nil, [][]string{{"x"}}) != "" {
		t.Fatalf("expected no output without columns")
	}
}

func TestExitCodeByFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{services.Wrap(services.ErrNotFound, "catalog", "get", "entity 9", nil), 2},
		{fmt.Errorf("approve: %w", services.ErrStateConflict), 3},
		{services.Diagnose(services.ErrPrecondition, "no rulebook", nil), 3},
		{errors.New("disk full"), 1},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAdvanceApproveAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	var id int64
	env.withStore(t, func(store *catalog.Store) {
		ctx := context.Background()
		entity, err := store.CreateEntity(ctx, catalog.NewEntity{Name: "Azul", RulebookURL: "https://rules.example/azul.pdf"})
		if err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
		if err := store.SaveEnrichment(ctx, catalog.Enrichment{EntityID: entity.ID, Summary: "Tile drafting."}); err != nil {
			t.Fatalf("SaveEnrichment: %v", err)
		}
		id = entity.ID
	})
	idArg := strconv.FormatInt(id, 10)

	out, _, err := runCLI(t, env, "advance", idArg)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	requireContains(t, out, "generated -> review_pending")

	out, _, err = runCLI(t, env, "approve", idArg)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	requireContains(t, out, "published")

	out, _, err = runCLI(t, env, "show", idArg)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Azul")
	requireContains(t, out, "Content published")
	requireContains(t, out, "complete")

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Published")
}

func TestAttachRulebookUnblocksEntity(t *testing.T) {
	env := setupCLITestEnv(t)
	var id int64
	env.withStore(t, func(store *catalog.Store) {
		ctx := context.Background()
		entity, err := store.CreateEntity(ctx, catalog.NewEntity{Name: "Azul"})
		if err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
		if _, err := store.Transition(ctx, entity.ID, catalog.StateChange{From: entity.State, To: pipeline.StateRulebookMissing}); err != nil {
			t.Fatalf("Transition: %v", err)
		}
		id = entity.ID
	})

	out, _, err := runCLI(t, env, "attach-rulebook", strconv.FormatInt(id, 10), "https://rules.example/azul.pdf")
	if err != nil {
		t.Fatalf("attach-rulebook: %v", err)
	}
	requireContains(t, out, "state rulebook_ready")
}

func TestFamilyStatusShowsBlockers(t *testing.T) {
	env := setupCLITestEnv(t)
	var familyID int64
	env.withStore(t, func(store *catalog.Store) {
		ctx := context.Background()
		family, err := store.CreateFamily(ctx, "Catan")
		if err != nil {
			t.Fatalf("CreateFamily: %v", err)
		}
		entity, err := store.CreateEntity(ctx, catalog.NewEntity{Name: "Seafarers", FamilyID: family.ID})
		if err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
		if _, err := store.Transition(ctx, entity.ID, catalog.StateChange{From: entity.State, To: pipeline.StateRulebookMissing}); err != nil {
			t.Fatalf("Transition: %v", err)
		}
		familyID = family.ID
	})

	out, _, err := runCLI(t, env, "status", strconv.FormatInt(familyID, 10))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Catan")
	requireContains(t, out, "Missing rulebook")
	requireContains(t, out, "Seafarers")
}

func TestInvalidIDIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "show", "abc"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
	if _, _, err := runCLI(t, env, "show", "999"); err == nil {
		t.Fatalf("expected error for unknown entity")
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Catalog:")
	requireContains(t, out, "Parse service:")
	requireContains(t, out, "[OK]")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "test-notify"); err == nil {
		t.Fatalf("expected error without ntfy topic")
	}
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	body := "" +
		"2026-01-02 10:00:00 INFO  [workflow] entity=4  stage started\n" +
		"2026-01-02 10:00:01 INFO  [workflow] entity=5  stage started\n" +
		"2026-01-02 10:00:02 INFO  [workflow] entity=4  stage finished\n"
	if err := os.WriteFile(env.cfg.LogFilePath(), []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "stage finished")
	if strings.Contains(out, "entity=5") {
		t.Fatalf("expected only the last line, got:\n%s", out)
	}

	out, _, err = runCLI(t, env, "logs", "--entity", "5")
	if err != nil {
		t.Fatalf("logs --entity: %v", err)
	}
	requireContains(t, out, "entity=5")
	if strings.Contains(out, "entity=4") {
		t.Fatalf("expected only entity 5 lines, got:\n%s", out)
	}
}

func TestRebuildContextRecoversFamily(t *testing.T) {
	env := setupCLITestEnv(t)
	var familyID int64
	env.withStore(t, func(store *catalog.Store) {
		ctx := context.Background()
		family, err := store.CreateFamily(ctx, "Catan")
		if err != nil {
			t.Fatalf("CreateFamily: %v", err)
		}
		base, err := store.CreateEntity(ctx, catalog.NewEntity{Name: "Catan", FamilyID: family.ID})
		if err != nil {
			t.Fatalf("CreateEntity: %v", err)
		}
		if err := store.SetFamilyBase(ctx, family.ID, base.ID); err != nil {
			t.Fatalf("SetFamilyBase: %v", err)
		}
		if err := store.SaveEnrichment(ctx, catalog.Enrichment{EntityID: base.ID, Summary: "Trade and build."}); err != nil {
			t.Fatalf("SaveEnrichment: %v", err)
		}
		familyID = family.ID
	})

	out, _, err := runCLI(t, env, "rebuild-context", strconv.FormatInt(familyID, 10))
	if err != nil {
		t.Fatalf("rebuild-context: %v", err)
	}
	requireContains(t, out, "context rebuilt from Catan")

	env.withStore(t, func(store *catalog.Store) {
		family, err := store.GetFamily(context.Background(), familyID)
		if err != nil {
			t.Fatalf("GetFamily: %v", err)
		}
		if family.Context == nil || family.Context.BaseName != "Catan" {
			t.Fatalf("expected stored context, got %+v", family.Context)
		}
	})
}
