package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/leaseq/pkg/queue"
)

const jobColumns = `
	id, queue, kind, payload, status, attempts, max_attempts,
	reserved_at, reserved_by, available_at, finished_at, last_error,
	created_at, updated_at`

// queries implements queue.Tx over a pool or a transaction.
type queries struct {
	db dbtx
}

func (q *queries) InsertJob(ctx context.Context, j *queue.Job) (int64, error) {
	payload := []byte(j.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	var id int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO queue_jobs (
			queue, kind, payload, status, attempts, max_attempts,
			available_at, created_at, updated_at
		) VALUES ($1, $2, $3, 'pending', 0, $4, $5, $6, $6)
		RETURNING id`,
		j.Queue, j.Kind, payload, j.MaxAttempts, j.AvailableAt, j.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert job: %w", err)
	}
	return id, nil
}

// NextPending skips rows locked by concurrent reservers, so a reserver never
// waits on a head row that another one is about to take.
func (q *queries) NextPending(ctx context.Context, queueName string, now time.Time) (*queue.Job, error) {
	row := q.db.QueryRow(ctx, `
		SELECT`+jobColumns+`
		FROM queue_jobs
		WHERE queue = $1
		  AND status = 'pending'
		  AND available_at <= $2
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		queueName, now,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNoJob
		}
		return nil, fmt.Errorf("postgres: select next pending: %w", err)
	}
	return j, nil
}

func (q *queries) LockJob(ctx context.Context, id int64) (*queue.Job, error) {
	row := q.db.QueryRow(ctx, `SELECT`+jobColumns+` FROM queue_jobs WHERE id = $1 FOR UPDATE`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: lock job: %w", err)
	}
	return j, nil
}

func (q *queries) MarkReserved(ctx context.Context, p queue.ReserveParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'reserved', reserved_at = $2, reserved_by = $3, updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		p.ID, p.Now, p.By,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark reserved: %w", err)
	}
	return nil
}

func (q *queries) CompleteJob(ctx context.Context, id int64, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'done', reserved_at = NULL, reserved_by = '', last_error = '',
		    finished_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'reserved')`,
		id, now,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: complete job: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) RequeueJob(ctx context.Context, p queue.RequeueParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'pending', reserved_at = NULL, reserved_by = '',
		    available_at = $2,
		    last_error = COALESCE($3::text, last_error),
		    attempts = GREATEST(attempts, $4::integer),
		    updated_at = $5
		WHERE id = $1 AND status IN ('pending', 'reserved')`,
		p.ID, p.AvailableAt, p.Error, p.Attempts, p.Now,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: requeue job: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) BuryJob(ctx context.Context, p queue.BuryParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'dead', reserved_at = NULL, reserved_by = '',
		    last_error = COALESCE($2::text, last_error),
		    attempts = GREATEST(attempts, $3::integer),
		    finished_at = $4, updated_at = $4
		WHERE id = $1 AND status IN ('pending', 'reserved')`,
		p.ID, p.Error, p.Attempts, p.Now,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: bury job: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) ReapExpired(ctx context.Context, p queue.ReapParams) (int64, error) {
	increment := 0
	if p.CountAttempt {
		increment = 1
	}
	tag, err := q.db.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'pending', reserved_at = NULL, reserved_by = '',
		    attempts = attempts + $2::integer,
		    last_error = $3, updated_at = $4
		WHERE status = 'reserved' AND reserved_at < $1`,
		p.Cutoff, increment, p.Reason, p.Now,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: reap expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *queries) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	row := q.db.QueryRow(ctx, `SELECT`+jobColumns+` FROM queue_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: get job: %w", err)
	}
	return j, nil
}

func (q *queries) CountByStatus(ctx context.Context, queueName string) (map[queue.Status]int64, error) {
	rows, err := q.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM queue_jobs
		WHERE $1 = '' OR queue = $1
		GROUP BY status`,
		queueName,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[queue.Status]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan job count: %w", err)
		}
		counts[queue.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: count jobs: %w", err)
	}
	return counts, nil
}

func (q *queries) DeleteFinished(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM queue_jobs
		WHERE status IN ('done', 'dead') AND finished_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete finished jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*queue.Job, error) {
	var (
		j       queue.Job
		status  string
		payload []byte
	)
	err := row.Scan(
		&j.ID, &j.Queue, &j.Kind, &payload, &status, &j.Attempts, &j.MaxAttempts,
		&j.ReservedAt, &j.ReservedBy, &j.AvailableAt, &j.FinishedAt, &j.LastError,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = queue.Status(status)
	j.Payload = payload
	return &j, nil
}
