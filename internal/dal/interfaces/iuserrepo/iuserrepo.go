package iuserrepo

import (
	"context"

	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
)

// IUserRepository resolves user identities.
type IUserRepository interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}
