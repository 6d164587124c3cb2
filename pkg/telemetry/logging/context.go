package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// SubjectKey is the context key for subject references.
	SubjectKey contextKey = "subject"

	// CorridorKey is the context key for corridor identifiers.
	CorridorKey contextKey = "corridor"

	// ProposalIDKey is the context key for proposal identifiers.
	ProposalIDKey contextKey = "proposal_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

// WithSubject adds a subject reference to the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject retrieves the subject reference from the context.
func GetSubject(ctx context.Context) string {
	return get(ctx, SubjectKey)
}

// WithCorridor adds a corridor identifier to the context.
func WithCorridor(ctx context.Context, corridor string) context.Context {
	return context.WithValue(ctx, CorridorKey, corridor)
}

// GetCorridor retrieves the corridor identifier from the context.
func GetCorridor(ctx context.Context) string {
	return get(ctx, CorridorKey)
}

// WithProposalID adds a proposal identifier to the context.
func WithProposalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ProposalIDKey, id)
}

// GetProposalID retrieves the proposal identifier from the context.
func GetProposalID(ctx context.Context) string {
	return get(ctx, ProposalIDKey)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs returns the log fields stored in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RequestIDKey, SubjectKey, CorridorKey, ProposalIDKey} {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
