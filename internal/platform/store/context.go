package store

import "context"

type (
	reqIDKey    struct{}
	deliveryKey struct{}
)

// WithRequestID attaches a request id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

// RequestID retrieves a request id from context if present
func RequestID(ctx context.Context) (string, bool) {
	v := ctx.Value(reqIDKey{})
	if v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// WithDeliveryID attaches a webhook delivery id to the context so store
// tracing can correlate writes with the delivery that caused them
func WithDeliveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deliveryKey{}, id)
}

// DeliveryID retrieves a webhook delivery id from context if present
func DeliveryID(ctx context.Context) (string, bool) {
	v := ctx.Value(deliveryKey{})
	if v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}
