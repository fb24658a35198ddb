package sqlrepo_test

import (
	"context"
	"testing"

	userrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/user/sql"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb/sqldbtest"
	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByID(t *testing.T) {
	client := sqldbtest.NewClient(t)
	repo := userrepo.NewUserRepository(client.DB(), client.Dialect())

	adminID := sqldbtest.InsertUser(t, client, "root", true)
	userID := sqldbtest.InsertUser(t, client, "alice", false)

	admin, err := repo.GetByID(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, "root", admin.Username)
	assert.True(t, admin.IsAdmin)

	u, err := repo.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsAdmin)

	_, err = repo.GetByID(context.Background(), 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
