package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row locked")
	err := Wrap(CodeDependency, cause, "reserve stock")

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be preserved")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestAsExtractsThroughChain(t *testing.T) {
	inner := New(CodeAlreadyResolved, "offer already resolved")
	wrapped := fmt.Errorf("record response: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatalf("expected typed error from chain")
	}
	if typed.Code() != CodeAlreadyResolved {
		t.Fatalf("expected ALREADY_RESOLVED, got %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("WHAT"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestAlreadyResolvedMapsToConflict(t *testing.T) {
	meta := MetadataFor(CodeAlreadyResolved)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409 for ALREADY_RESOLVED, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatalf("race losers must not retry")
	}
}
