package queue

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReserved Status = "reserved"
	StatusDone     Status = "done"
	StatusDead     Status = "dead"
)

// Terminal reports whether the status can never be left again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusDead
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReserved, StatusDone, StatusDead:
		return true
	}
	return false
}

// Job is a unit of work stored in the queue table.
// Kind and Payload are opaque to the queue.
type Job struct {
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	AvailableAt time.Time       `json:"available_at"`
	ReservedAt  *time.Time      `json:"reserved_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Queue       string          `json:"queue"`
	Kind        string          `json:"kind"`
	Status      Status          `json:"status"`
	ReservedBy  string          `json:"reserved_by,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ID          int64           `json:"id"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(j.Payload, v)
}

// Stats holds job counts per status.
type Stats struct {
	Pending  int64 `json:"pending"`
	Reserved int64 `json:"reserved"`
	Done     int64 `json:"done"`
	Dead     int64 `json:"dead"`
}

// Total returns the number of rows across all statuses.
func (s Stats) Total() int64 {
	return s.Pending + s.Reserved + s.Done + s.Dead
}

func statsFromCounts(counts map[Status]int64) Stats {
	return Stats{
		Pending:  counts[StatusPending],
		Reserved: counts[StatusReserved],
		Done:     counts[StatusDone],
		Dead:     counts[StatusDead],
	}
}
