package queue

import (
	"context"
	"time"
)

// Tx is the set of row operations the queue composes into transactions.
// Store implementations bind it either to a connection pool (each call is
// its own statement) or to an open transaction.
//
// Outcome updates (CompleteJob, RequeueJob, BuryJob) must only touch rows
// whose status is pending or reserved and report the number of rows changed.
type Tx interface {
	// InsertJob stores j as a new row and returns the assigned id.
	InsertJob(ctx context.Context, j *Job) (int64, error)

	// NextPending locks and returns the lowest-id pending row in queue whose
	// available_at is not after now. Returns ErrNoJob when there is none.
	NextPending(ctx context.Context, queue string, now time.Time) (*Job, error)

	// LockJob locks and returns the row with the given id.
	// Returns ErrJobNotFound when it does not exist.
	LockJob(ctx context.Context, id int64) (*Job, error)

	// MarkReserved leases a pending row.
	MarkReserved(ctx context.Context, p ReserveParams) error

	// CompleteJob moves a row to done.
	CompleteJob(ctx context.Context, id int64, now time.Time) (int64, error)

	// RequeueJob moves a row back to pending.
	RequeueJob(ctx context.Context, p RequeueParams) (int64, error)

	// BuryJob moves a row to dead.
	BuryJob(ctx context.Context, p BuryParams) (int64, error)

	// ReapExpired resets reserved rows leased before p.Cutoff to pending.
	ReapExpired(ctx context.Context, p ReapParams) (int64, error)

	// GetJob returns the row with the given id or ErrJobNotFound.
	GetJob(ctx context.Context, id int64) (*Job, error)

	// CountByStatus returns row counts per status, limited to queue when it is not empty.
	CountByStatus(ctx context.Context, queue string) (map[Status]int64, error)

	// DeleteFinished removes done and dead rows finished before the cutoff.
	DeleteFinished(ctx context.Context, before time.Time) (int64, error)
}

// Store is a queue storage backend.
type Store interface {
	Tx

	// InTx runs fn inside a transaction. The transaction is committed when fn
	// returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// ReserveParams describes a lease.
type ReserveParams struct {
	Now time.Time
	By  string
	ID  int64
}

// RequeueParams describes a return to pending.
// Error is left untouched when nil. Attempts never lowers the stored value.
type RequeueParams struct {
	AvailableAt time.Time
	Now         time.Time
	Error       *string
	ID          int64
	Attempts    int
}

// BuryParams describes a dead-letter transition.
// Error is left untouched when nil. Attempts never lowers the stored value.
type BuryParams struct {
	Now      time.Time
	Error    *string
	ID       int64
	Attempts int
}

// ReapParams describes a stale lease sweep.
type ReapParams struct {
	Cutoff       time.Time
	Now          time.Time
	Reason       string
	CountAttempt bool
}
