package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vecna/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "parsing", "extract", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"parsing", "extract", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"external", services.Wrap(services.ErrExternalService, "generation", "call", "", nil), true},
		{"timeout", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"precondition", services.Wrap(services.ErrPrecondition, "parsing", "prepare", "no rulebook", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "taxonomy", "lookup", "", nil), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDiagnosticMessage(t *testing.T) {
	plain := services.Diagnose(services.ErrExternalService, "generation failed for rules: timeout", nil)
	if got := services.DiagnosticMessage(plain); got != "generation failed for rules: timeout" {
		t.Fatalf("DiagnosticMessage = %q", got)
	}
	if !errors.Is(plain, services.ErrExternalService) {
		t.Fatalf("expected marker on %v", plain)
	}

	cause := fmt.Errorf("dial: %w", errors.New("connection refused"))
	wrapped := services.Diagnose(services.ErrTimeout, "parse service call failed", cause)
	if got := services.DiagnosticMessage(wrapped); got != "parse service call failed: dial: connection refused" {
		t.Fatalf("DiagnosticMessage = %q", got)
	}
	if !errors.Is(wrapped, services.ErrTimeout) || !errors.Is(wrapped, cause) {
		t.Fatalf("expected marker and cause on %v", wrapped)
	}

	// A cause tagged with the same marker still contributes its detail.
	status := services.Wrap(services.ErrExternalService, "parse service", "post", "", errors.New("http 502: extractor crashed"))
	sameMarker := services.Diagnose(services.ErrExternalService, "parse service call failed", status)
	if got := services.DiagnosticMessage(sameMarker); got != "parse service call failed: parse service: post: http 502: extractor crashed" {
		t.Fatalf("DiagnosticMessage = %q", got)
	}
	if got := services.DiagnosticMessage(services.Diagnose(services.ErrTimeout, "slow", services.ErrTimeout)); got != "slow" {
		t.Fatalf("DiagnosticMessage = %q", got)
	}

	if got := services.DiagnosticMessage(errors.New(" raw ")); got != "raw" {
		t.Fatalf("DiagnosticMessage = %q", got)
	}
	if services.DiagnosticMessage(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
}
