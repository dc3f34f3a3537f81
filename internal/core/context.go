package core

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyImportID contextKey = "import_id"

// ContextWithImportID tags ctx with the id of the running import.
func ContextWithImportID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyImportID, id)
}

// ImportIDFromContext returns the id of the running import, if any.
func ImportIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKeyImportID).(uuid.UUID)
	return id, ok
}
