package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
)

// UserDal represents user data access layer model.
type UserDal struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	IsAdmin  bool   `db:"is_admin"`
}

// ToModel converts UserDal to service layer User model.
func (u *UserDal) ToModel() *user.User {
	return &user.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

// UserRepository resolves users for the authentication middleware. Users are
// written by the account service, never here.
type UserRepository struct {
	conn sqldb.Executor
	sb   sq.StatementBuilderType
}

func NewUserRepository(conn sqldb.Executor, dialect sqldb.Dialect) *UserRepository {
	return &UserRepository{
		conn: conn,
		sb:   dialect.Builder(),
	}
}

// GetByID returns the user or apperr.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query, args, err := r.sb.Select("id", "username", "email", "is_admin").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal UserDal
	if err := r.conn.GetContext(ctx, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}

		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	return dal.ToModel(), nil
}
