package directory

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	e := NewNetworkError("network error while listing servers", "dial tcp: connection refused")
	want := "network error while listing servers: dial tcp: connection refused"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	bare := NewGenericAPIError("failed to list MCP servers", "")
	if bare.Error() != "failed to list MCP servers" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestAsAPIError_unwraps(t *testing.T) {
	inner := NewServerNotFoundError("not found", "gone")
	wrapped := fmt.Errorf("call failed: %w", inner)

	got := AsAPIError(wrapped)
	if got == nil || got.Kind != KindServerNotFound {
		t.Fatalf("AsAPIError(%v) = %+v", wrapped, got)
	}
	if AsAPIError(errors.New("plain")) != nil {
		t.Error("plain errors must not convert")
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(NewAuthenticationError("x", ""), KindAuthentication) {
		t.Error("expected KindAuthentication match")
	}
	if IsKind(NewAuthenticationError("x", ""), KindNetwork) {
		t.Error("kind mismatch must not match")
	}
	if IsKind(nil, KindNetwork) {
		t.Error("nil must not match")
	}
}
