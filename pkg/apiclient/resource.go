package apiclient

import (
	"context"
	"net/http"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// resource implements the CRUD pattern shared by every catalog family.
// T is the entity, In its partial create/update payload.
type resource[T any, In any] struct {
	client *Client
	name   string
	base   string
}

func newResource[T any, In any](c *Client, name, base string) resource[T, In] {
	return resource[T, In]{client: c, name: name, base: base}
}

// GetAll lists every entity.
func (r resource[T, In]) GetAll(ctx context.Context) ([]T, error) {
	return list[T](ctx, r.client, request{op: r.name + ".list", path: r.base})
}

// GetByID fetches one entity; a missing one is an HTTPError with status 404.
func (r resource[T, In]) GetByID(ctx context.Context, id int64) (*T, error) {
	if err := domain.RequirePositiveID("id", id); err != nil {
		return nil, err
	}
	var out T
	if err := r.client.do(ctx, request{op: r.name + ".get", method: http.MethodGet, path: member(r.base, id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new entity; the server assigns id and timestamps.
func (r resource[T, In]) Create(ctx context.Context, in In) (*T, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out T
	if err := r.client.do(ctx, request{op: r.name + ".create", method: http.MethodPost, path: r.base, body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends only the fields set on in; omitted fields keep their server value.
func (r resource[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	if err := domain.RequirePositiveID("id", id); err != nil {
		return nil, err
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out T
	if err := r.client.do(ctx, request{op: r.name + ".update", method: http.MethodPut, path: member(r.base, id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an entity. The status of a repeated delete is whatever the
// server reports; it is not mapped to success here.
func (r resource[T, In]) Delete(ctx context.Context, id int64) error {
	if err := domain.RequirePositiveID("id", id); err != nil {
		return err
	}
	return r.client.do(ctx, request{op: r.name + ".delete", method: http.MethodDelete, path: member(r.base, id)}, nil)
}

func (r resource[T, In]) children(ctx context.Context, op, tmpl, field string, parentID int64) ([]T, error) {
	if err := domain.RequirePositiveID(field, parentID); err != nil {
		return nil, err
	}
	return list[T](ctx, r.client, request{op: r.name + "." + op, path: expand(tmpl, parentID)})
}
