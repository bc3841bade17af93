// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const (
	keyDeliveryID ctxKey = "delivery_id"
	keySource     ctxKey = "source"
)

// WithRequest annotates context with common request scoped ids
func WithRequest(ctx context.Context, reqID, deliveryID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if deliveryID != "" {
		ctx = context.WithValue(ctx, keyDeliveryID, deliveryID)
	}
	return ctx
}

// WithSource annotates context with the webhook source system (jira, bitbucket)
func WithSource(ctx context.Context, source string) context.Context {
	if source != "" {
		ctx = context.WithValue(ctx, keySource, source)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	if v := chimw.GetReqID(ctx); v != "" {
		return v
	}
	return ""
}

// DeliveryID returns the webhook delivery id on the context if present
func DeliveryID(ctx context.Context) string {
	if v, ok := ctx.Value(keyDeliveryID).(string); ok {
		return v
	}
	return ""
}

// Source returns the webhook source on the context if present
func Source(ctx context.Context) string {
	if v, ok := ctx.Value(keySource).(string); ok {
		return v
	}
	return ""
}
