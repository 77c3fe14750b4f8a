package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pgxSpanKey struct{}

// Statements beyond this length are elided in span attributes; the leading
// verb and table name are what matters when reading a trace.
const maxStatementAttr = 200

// PGXTracer hooks pgx query execution into the active trace, naming each
// span after the SQL verb.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := "query"
	if fields := strings.Fields(data.SQL); len(fields) > 0 {
		op = strings.ToLower(fields[0])
	}
	ctx, span := otel.Tracer("storefront/db").Start(ctx, "db."+op,
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", elideSQL(data.SQL)),
		))
	return context.WithValue(ctx, pgxSpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(pgxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
	span.End()
}

func elideSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementAttr {
		return sql[:maxStatementAttr] + "…"
	}
	return sql
}
