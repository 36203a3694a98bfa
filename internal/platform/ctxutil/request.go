package ctxutil

import (
	"context"
	"strings"
)

// AnonymousUserID marks sessions with no external identity.
const AnonymousUserID = "anonymous"

type (
	requestDataKey struct{}
	traceKey       struct{}
)

// RequestData carries the caller identity resolved by auth middleware.
type RequestData struct {
	ExternalUserID string
}

// Trace ties one HTTP exchange to its span, log lines and response headers.
type Trace struct {
	TraceID   string
	RequestID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func TraceFrom(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// ExternalUserID returns the caller identity or "" when anonymous.
func ExternalUserID(ctx context.Context) string {
	rd := GetRequestData(ctx)
	if rd == nil {
		return ""
	}
	if IsAnonymous(rd.ExternalUserID) {
		return ""
	}
	return strings.TrimSpace(rd.ExternalUserID)
}

func IsAnonymous(externalUserID string) bool {
	id := strings.TrimSpace(externalUserID)
	return id == "" || strings.EqualFold(id, AnonymousUserID)
}

// LogFields returns trace ids and the caller identity as logger key/value
// pairs. Anonymous callers contribute no identity field.
func LogFields(ctx context.Context) []any {
	var fields []any
	if t, ok := TraceFrom(ctx); ok {
		if t.TraceID != "" {
			fields = append(fields, "trace_id", t.TraceID)
		}
		if t.RequestID != "" {
			fields = append(fields, "request_id", t.RequestID)
		}
	}
	if id := ExternalUserID(ctx); id != "" {
		fields = append(fields, "external_user_id", id)
	}
	return fields
}
