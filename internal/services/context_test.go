package services_test

import (
	"context"
	"testing"

	"codestory/internal/services"
)

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id on empty context")
	}

	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "analysis")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %q ok=%v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analysis" {
		t.Fatalf("unexpected stage: %q ok=%v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("unexpected request id: %q ok=%v", rid, ok)
	}
}

func TestContextCarriersIgnoreEmptyValues(t *testing.T) {
	ctx := context.Background()
	if services.WithStage(ctx, "") != ctx {
		t.Fatal("empty stage should not allocate a new context")
	}
	if services.WithRunID(ctx, "") != ctx {
		t.Fatal("empty run id should not allocate a new context")
	}
	if services.WithRequestID(ctx, "") != ctx {
		t.Fatal("empty request id should not allocate a new context")
	}
}
