package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row missing")
	err := Wrap(CodeNotFound, cause, "order request not found")

	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Error() != "NOT_FOUND: order request not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeStateConflict, "quantity below linked transactions")
	wrapped := Wrap(CodeDependency, inner, "update request")

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestWithStepAccumulatesDetails(t *testing.T) {
	err := New(CodeDependency, "fulfillment cascade failed").
		WithDetails(map[string]any{"transaction_id": "t7"}).
		WithStep(2)

	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["step"] != 2 {
		t.Fatalf("expected step 2, got %v", details["step"])
	}
	if details["transaction_id"] != "t7" {
		t.Fatal("expected existing details to survive WithStep")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
	if MetadataFor(CodeStateConflict).HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatal("state conflict should map to 422")
	}
}
