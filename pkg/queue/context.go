package queue

import "context"

type workerIDKey struct{}

// WithWorkerID attaches a worker identifier to ctx.
// Reserve records it as the lease holder for diagnostics.
func WithWorkerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}

// WorkerIDFromContext returns the worker identifier attached to ctx.
func WorkerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(workerIDKey{}).(string)
	return id, ok && id != ""
}

type jobKey struct{}

// WithJob attaches the job being processed to ctx.
func WithJob(ctx context.Context, j *Job) context.Context {
	return context.WithValue(ctx, jobKey{}, j)
}

// JobFromContext returns the job attached to ctx by WithJob.
func JobFromContext(ctx context.Context) (*Job, bool) {
	j, ok := ctx.Value(jobKey{}).(*Job)
	return j, ok && j != nil
}
