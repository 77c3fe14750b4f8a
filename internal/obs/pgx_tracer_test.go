package obs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestPGXTracerSpanLifecycle(t *testing.T) {
	tracer := PGXTracer{}
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "SELECT id FROM products WHERE published",
	})
	if ctx.Value(pgxSpanKey{}) == nil {
		t.Fatalf("no span stored on context")
	}
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	// Ending without a span on the context must be a no-op.
	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

func TestElideSQL(t *testing.T) {
	if got := elideSQL("  SELECT 1\n  FROM t  "); got != "SELECT 1 FROM t" {
		t.Fatalf("collapsed = %q", got)
	}
	long := strings.Repeat("x", maxStatementAttr+50)
	got := elideSQL(long)
	if len(got) <= maxStatementAttr || !strings.HasSuffix(got, "…") {
		t.Fatalf("long statement not elided: len=%d", len(got))
	}
}
