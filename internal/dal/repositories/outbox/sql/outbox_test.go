package sqlrepo_test

import (
	"context"
	"testing"
	"time"

	outboxrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/outbox/sql"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb/sqldbtest"
	"github.com/corray333/backend-labs/storefront/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(key string, due time.Time) outbox.OutboxMessage {
	now := time.Now().UTC()

	return outbox.OutboxMessage{
		ExchangeName: "storefront.orders",
		RoutingKey:   key,
		Payload:      []byte(`{"order_id":1}`),
		ContentType:  "application/json",
		MaxRetries:   3,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  due,
	}
}

func TestOutboxLifecycle(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()
	repo := outboxrepo.NewOutboxRepository(client.DB(), client.Dialect())

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Insert(ctx, message(outbox.EventOrderPlaced, past)))
	require.NoError(t, repo.Insert(ctx, message(outbox.EventOrderPaid, past.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, message(outbox.EventOrderDelivered, time.Now().UTC().Add(time.Hour))))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, outbox.EventOrderPlaced, pending[0].RoutingKey)
	assert.Equal(t, `{"order_id":1}`, string(pending[0].Payload))

	require.NoError(t, repo.UpdateRetry(ctx, pending[0].ID, 1, "channel closed", time.Now().UTC().Add(time.Hour)))
	require.NoError(t, repo.Delete(ctx, pending[1].ID))

	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 2, sqldbtest.Count(t, client, "outbox"))
}

func TestOutboxSkipsExhaustedMessages(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()
	repo := outboxrepo.NewOutboxRepository(client.DB(), client.Dialect())

	msg := message(outbox.EventOrderPlaced, time.Now().UTC().Add(-time.Minute))
	msg.RetryCount = msg.MaxRetries
	require.NoError(t, repo.Insert(ctx, msg))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
