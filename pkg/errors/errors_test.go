package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
	if err.Code != CodeInternalServerError {
		t.Fatalf("unexpected code: %s", err.Code)
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("test", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	wrapped := fmt.Errorf("lookup: %w", ErrResourceExists)
	if out := FromError(wrapped); out.Code != CodeResourceExists {
		t.Fatalf("expected wrapped app error to be unwrapped, got %s", out.Code)
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	custom := NewNotFound("screw 42 not found")
	if !stdErrors.Is(custom, ErrNotFound) {
		t.Fatal("expected copies to match the sentinel by code")
	}
	if stdErrors.Is(custom, ErrBadRequest) {
		t.Fatal("expected different codes not to match")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if ErrBadRequest.Message != "Invalid request" {
		t.Fatal("expected sentinel message to remain unchanged")
	}
}

func TestNewValidationCarriesFieldErrors(t *testing.T) {
	err := NewValidation("", FieldError{Field: "material", Message: "unknown material", Code: "unknown"})
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if err.Message != ErrValidation.Message {
		t.Fatalf("expected default message, got %s", err.Message)
	}
	if len(err.Errors) != 1 || err.Errors[0].Field != "material" {
		t.Fatalf("unexpected field errors: %+v", err.Errors)
	}
	if len(ErrValidation.Errors) != 0 {
		t.Fatal("expected sentinel to remain free of field errors")
	}
}

func TestNewDependencyFailure(t *testing.T) {
	cause := stdErrors.New("redis down")
	err := NewDependencyFailure("cache invalidation failed", cause)
	if err.Code != CodeDependencyFailure {
		t.Fatalf("unexpected code: %s", err.Code)
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
}
