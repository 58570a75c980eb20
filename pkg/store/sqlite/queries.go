package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/leaseq/pkg/queue"
)

const jobColumns = `
	id, queue, kind, payload, status, attempts, max_attempts,
	reserved_at, reserved_by, available_at, finished_at, last_error,
	created_at, updated_at`

// queries implements queue.Tx over a handle or a pinned connection.
type queries struct {
	db dbtx
}

func (q *queries) InsertJob(ctx context.Context, j *queue.Job) (int64, error) {
	payload := []byte(j.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO queue_jobs (
			queue, kind, payload, status, attempts, max_attempts,
			available_at, created_at, updated_at
		) VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		j.Queue, j.Kind, payload, j.MaxAttempts,
		toMillis(j.AvailableAt), toMillis(j.CreatedAt), toMillis(j.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert job id: %w", err)
	}
	return id, nil
}

func (q *queries) NextPending(ctx context.Context, queueName string, now time.Time) (*queue.Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT`+jobColumns+`
		FROM queue_jobs
		WHERE queue = ?
		  AND status = 'pending'
		  AND available_at <= ?
		ORDER BY id ASC
		LIMIT 1`,
		queueName, toMillis(now),
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrNoJob
		}
		return nil, fmt.Errorf("sqlite: select next pending: %w", err)
	}
	return j, nil
}

// LockJob reads the row. Inside InTx the database write lock is already held.
func (q *queries) LockJob(ctx context.Context, id int64) (*queue.Job, error) {
	return q.GetJob(ctx, id)
}

func (q *queries) MarkReserved(ctx context.Context, p queue.ReserveParams) error {
	now := toMillis(p.Now)
	_, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs
		SET status = 'reserved', reserved_at = ?, reserved_by = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		now, p.By, now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: mark reserved: %w", err)
	}
	return nil
}

func (q *queries) CompleteJob(ctx context.Context, id int64, now time.Time) (int64, error) {
	ms := toMillis(now)
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs
		SET status = 'done', reserved_at = NULL, reserved_by = '', last_error = '',
		    finished_at = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'reserved')`,
		ms, ms, id,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: complete job: %w", err)
	}
	return rowsAffected(res)
}

func (q *queries) RequeueJob(ctx context.Context, p queue.RequeueParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs
		SET status = 'pending', reserved_at = NULL, reserved_by = '',
		    available_at = ?,
		    last_error = COALESCE(?, last_error),
		    attempts = MAX(attempts, ?),
		    updated_at = ?
		WHERE id = ? AND status IN ('pending', 'reserved')`,
		toMillis(p.AvailableAt), nullString(p.Error), p.Attempts, toMillis(p.Now), p.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: requeue job: %w", err)
	}
	return rowsAffected(res)
}

func (q *queries) BuryJob(ctx context.Context, p queue.BuryParams) (int64, error) {
	ms := toMillis(p.Now)
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs
		SET status = 'dead', reserved_at = NULL, reserved_by = '',
		    last_error = COALESCE(?, last_error),
		    attempts = MAX(attempts, ?),
		    finished_at = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'reserved')`,
		nullString(p.Error), p.Attempts, ms, ms, p.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: bury job: %w", err)
	}
	return rowsAffected(res)
}

func (q *queries) ReapExpired(ctx context.Context, p queue.ReapParams) (int64, error) {
	increment := 0
	if p.CountAttempt {
		increment = 1
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue_jobs
		SET status = 'pending', reserved_at = NULL, reserved_by = '',
		    attempts = attempts + ?,
		    last_error = ?, updated_at = ?
		WHERE status = 'reserved' AND reserved_at < ?`,
		increment, p.Reason, toMillis(p.Now), toMillis(p.Cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reap expired leases: %w", err)
	}
	return rowsAffected(res)
}

func (q *queries) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	row := q.db.QueryRowContext(ctx, `SELECT`+jobColumns+` FROM queue_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("sqlite: get job: %w", err)
	}
	return j, nil
}

func (q *queries) CountByStatus(ctx context.Context, queueName string) (map[queue.Status]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM queue_jobs
		WHERE ? = '' OR queue = ?
		GROUP BY status`,
		queueName, queueName,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[queue.Status]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan job count: %w", err)
		}
		counts[queue.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: count jobs: %w", err)
	}
	return counts, nil
}

func (q *queries) DeleteFinished(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM queue_jobs
		WHERE status IN ('done', 'dead') AND finished_at < ?`,
		toMillis(before),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete finished jobs: %w", err)
	}
	return rowsAffected(res)
}

func scanJob(row *sql.Row) (*queue.Job, error) {
	var (
		j                                    queue.Job
		status                               string
		payload                              []byte
		reservedAt, finishedAt               sql.NullInt64
		availableAt, createdAt, updatedAtRaw int64
	)
	err := row.Scan(
		&j.ID, &j.Queue, &j.Kind, &payload, &status, &j.Attempts, &j.MaxAttempts,
		&reservedAt, &j.ReservedBy, &availableAt, &finishedAt, &j.LastError,
		&createdAt, &updatedAtRaw,
	)
	if err != nil {
		return nil, err
	}

	j.Status = queue.Status(status)
	j.Payload = payload
	j.AvailableAt = fromMillis(availableAt)
	j.CreatedAt = fromMillis(createdAt)
	j.UpdatedAt = fromMillis(updatedAtRaw)
	j.ReservedAt = nullTime(reservedAt)
	j.FinishedAt = nullTime(finishedAt)
	return &j, nil
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
