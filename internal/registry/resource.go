package registry

import (
	"context"

	"github.com/civic-registry/console/internal/listctl"
)

// MutationHook is told about every successful write to a resource.
type MutationHook func(ctx context.Context, resource string)

// Resource binds one API resource to a record type. It implements
// listctl.Source.
type Resource[T any] struct {
	client   *Client
	name     string
	onMutate MutationHook
}

// NewResource returns the adapter for resource name.
func NewResource[T any](client *Client, name string, onMutate MutationHook) *Resource[T] {
	return &Resource[T]{client: client, name: name, onMutate: onMutate}
}

// Name returns the resource path segment.
func (r *Resource[T]) Name() string { return r.name }

// List implements listctl.Source.
func (r *Resource[T]) List(ctx context.Context, req listctl.Request) (listctl.PageResult[T], error) {
	return List[T](ctx, r.client, r.name, req.Values())
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return Get[T](ctx, r.client, r.name, id)
}

// Create posts a new record.
func (r *Resource[T]) Create(ctx context.Context, payload any) (ID, error) {
	id, err := r.client.Create(ctx, r.name, payload)
	if err == nil {
		r.mutated(ctx)
	}
	return id, err
}

// Update replaces record id.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) error {
	err := r.client.Update(ctx, r.name, id, payload)
	if err == nil {
		r.mutated(ctx)
	}
	return err
}

// Delete implements listctl.Source.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	err := r.client.Delete(ctx, r.name, id)
	if err == nil {
		r.mutated(ctx)
	}
	return err
}

func (r *Resource[T]) mutated(ctx context.Context) {
	if r.onMutate != nil {
		r.onMutate(ctx, r.name)
	}
}
