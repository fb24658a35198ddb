package uow

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/ioutboxrepo"
	orderrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/order/sql"
	orderitemrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/orderitem/sql"
	outboxrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/outbox/sql"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
)

var errAlreadyBegun = errors.New("unit of work already has an open transaction")

type unitOfWork struct {
	client        *sqldb.Client
	tx            *sqldb.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// NewUnitOfWork returns a unit of work whose repositories run on the pool
// until Begin binds them to a transaction.
func NewUnitOfWork(client *sqldb.Client) *unitOfWork {
	u := &unitOfWork{client: client}
	u.bind(client.DB())

	return u
}

func (u *unitOfWork) bind(exec sqldb.Executor) {
	dialect := u.client.Dialect()
	u.orderRepo = orderrepo.NewOrderRepository(exec, dialect)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(exec, dialect, u.client.BatchInsert())
	u.outboxRepo = outboxrepo.NewOutboxRepository(exec, dialect)
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errAlreadyBegun
	}

	tx, err := u.client.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	// Every repository call from here on shares the transaction's connection.
	u.bind(tx.Executor())

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback()
}

// Release ends the transaction if it is still open and returns its
// connection to the pool. It is meant to be deferred right after Begin.
func (u *unitOfWork) Release() {
	if u.tx == nil {
		return
	}
	u.tx.Release()
}
