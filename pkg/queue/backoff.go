package queue

import "time"

// retrySchedule maps the failed attempt number (1-indexed) to the delay before
// the next try. Attempts past the end of the table use the last entry.
var retrySchedule = [...]time.Duration{
	5 * time.Second,
	20 * time.Second,
	time.Minute,
	3 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

// Backoff returns the retry delay after the given failed attempt.
// The schedule is a fixed table so operators can predict delays:
// 1→5s, 2→20s, 3→60s, 4→180s, 5→600s, 6→1800s, 7 and above→3600s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retrySchedule) {
		attempt = len(retrySchedule)
	}
	return retrySchedule[attempt-1]
}
