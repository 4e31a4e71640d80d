package logging

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ContextKey defines the context key type.
type ContextKey string

// ContextIDKey holds the key of the context ID.
const ContextIDKey ContextKey = "ctx_id"

// NewContext returns a copy of ctx holding a new random context ID under
// ContextIDKey.
func NewContext(ctx context.Context) (context.Context, error) {
	ctxID, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "new uuid error")
	}
	return context.WithValue(ctx, ContextIDKey, ctxID), nil
}

// ContextID returns the context ID, or uuid.Nil when not set.
func ContextID(ctx context.Context) uuid.UUID {
	if ctxID, ok := ctx.Value(ContextIDKey).(uuid.UUID); ok {
		return ctxID
	}
	return uuid.Nil
}

// FromContext returns a log entry with the ctx_id field set.
func FromContext(ctx context.Context) *log.Entry {
	return log.WithField("ctx_id", ContextID(ctx))
}
