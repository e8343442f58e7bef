package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/abrezinsky/hackportal/internal/services"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

func TestServiceError_Error(t *testing.T) {
	err := &services.ServiceError{Message: "test error message"}

	if result := err.Error(); result != "test error message" {
		t.Errorf("expected 'test error message', got %q", result)
	}
}

func TestErrNoSession_Message(t *testing.T) {
	msg := services.ErrNoSession.Error()

	if !strings.Contains(msg, "login") {
		t.Errorf("expected error to point at login, got %q", msg)
	}
}

func TestInvalidChallengeURLError(t *testing.T) {
	_, parseErr := portal.ParseChallengeURL("https://example.com/nope")
	if parseErr == nil {
		t.Fatal("expected parse error for a URL without an answer")
	}

	err := &services.InvalidChallengeURLError{URL: "https://example.com/nope", Err: parseErr}

	if !strings.Contains(err.Error(), "https://example.com/nope") {
		t.Errorf("expected error to contain the URL, got %q", err.Error())
	}
	if !errors.Is(err, parseErr) {
		t.Error("expected error to unwrap to the parse error")
	}
}
