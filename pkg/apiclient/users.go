package apiclient

import (
	"context"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// UsersAPI is the admin view of user accounts. Accounts are created through
// AuthAPI.Register, so there is no Create here.
type UsersAPI struct {
	users         resource[domain.User, domain.UserInput]
	subscriptions string
}

// GetAll lists every account; the server only answers staff.
func (a *UsersAPI) GetAll(ctx context.Context) ([]domain.User, error) {
	return a.users.GetAll(ctx)
}

// GetByID fetches one account with its wallet summary. A missing user is an
// HTTPError with status 404.
func (a *UsersAPI) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return a.users.GetByID(ctx, id)
}

// Update changes only the fields set on in. The server accepts it from
// admins only.
func (a *UsersAPI) Update(ctx context.Context, id int64, in domain.UserInput) (*domain.User, error) {
	return a.users.Update(ctx, id, in)
}

// Delete removes an account together with its wallet and memberships.
func (a *UsersAPI) Delete(ctx context.Context, id int64) error {
	return a.users.Delete(ctx, id)
}

// Subscriptions lists the shared plans a user is a member of.
func (a *UsersAPI) Subscriptions(ctx context.Context, userID int64) ([]domain.UserSubscription, error) {
	if err := domain.RequirePositiveID("userId", userID); err != nil {
		return nil, err
	}
	return list[domain.UserSubscription](ctx, a.users.client, request{op: "users.subscriptions", path: expand(a.subscriptions, userID)})
}
