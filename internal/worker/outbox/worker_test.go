package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	outboxrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/outbox/sql"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb/sqldbtest"
	"github.com/corray333/backend-labs/storefront/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failOn    string
}

func (p *fakePublisher) Publish(_ context.Context, msg outbox.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.RoutingKey == p.failOn {
		return errors.New("channel closed")
	}
	p.published = append(p.published, msg.RoutingKey)

	return nil
}

func TestProcessMessagesPublishesAndReschedules(t *testing.T) {
	client := sqldbtest.NewClient(t)
	ctx := context.Background()
	repo := outboxrepo.NewOutboxRepository(client.DB(), client.Dialect())

	due := time.Now().UTC().Add(-time.Minute)
	for _, key := range []string{outbox.EventOrderPlaced, outbox.EventOrderPaid, outbox.EventOrderDelivered} {
		require.NoError(t, repo.Insert(ctx, outbox.OutboxMessage{
			ExchangeName: "storefront.orders",
			RoutingKey:   key,
			Payload:      []byte(`{}`),
			ContentType:  "application/json",
			MaxRetries:   5,
			CreatedAt:    due,
			UpdatedAt:    due,
			NextRetryAt:  due,
		}))
	}

	pub := &fakePublisher{failOn: outbox.EventOrderPaid}
	w := NewWorker(repo, pub)
	now := time.Now().UTC()
	w.now = func() time.Time { return now }

	w.ProcessMessages(ctx)

	assert.ElementsMatch(t, []string{outbox.EventOrderPlaced, outbox.EventOrderDelivered}, pub.published)

	var left []outbox.OutboxMessage
	require.NoError(t, client.DB().SelectContext(ctx, &left,
		"SELECT id, exchange_name, routing_key, payload, content_type, retry_count, max_retries, last_error, created_at, updated_at, next_retry_at FROM outbox"))
	require.Len(t, left, 1)
	assert.Equal(t, outbox.EventOrderPaid, left[0].RoutingKey)
	assert.Equal(t, 1, left[0].RetryCount)
	assert.Equal(t, "channel closed", left[0].LastError)
	assert.True(t, now.Add(w.retryInterval).Equal(left[0].NextRetryAt))

	pub.failOn = ""
	w.ProcessMessages(ctx)
	assert.Len(t, pub.published, 2)
}

func TestStartStops(t *testing.T) {
	client := sqldbtest.NewClient(t)
	w := NewWorker(outboxrepo.NewOutboxRepository(client.DB(), client.Dialect()), &fakePublisher{})

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
