// Package health provides HTTP handlers for liveness and readiness checks
// of queue workers.
//
// [LivenessHandler] always answers OK while the process runs.
// [ReadinessHandler] runs a set of named [Checks] concurrently under a
// timeout and answers 503 when any of them fails.
//
//	r := chi.NewRouter()
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "queue":   queue.Healthcheck(q),
//	    "workers": worker.Healthcheck(manager),
//	}, health.WithLogger(log)))
//
// Responses are plain text ("OK" / "Service Unavailable") unless the client
// sends Accept: application/json or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "queue":   {"status": "healthy", "latency_ms": 1},
//	    "workers": {"status": "unhealthy", "error": "worker: healthcheck failed\nmanager not started", "latency_ms": 0}
//	  }
//	}
//
// The cmd/leaseq CLI reuses [Run] outside HTTP.
package health
