package dashboard

import "context"

// FieldResolver maps a field to its not-analyzed variant when the indices have one.
type FieldResolver interface {
	ResolveField(ctx context.Context, indices []string, field string) (string, error)
}
