package health

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

// LivenessHandler responds OK while the process is running. It runs no
// checks: a worker blocked on a slow database is alive, just not ready.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, &Response{Status: StatusHealthy}, "OK")
	}
}

// ReadinessHandler runs checks on every request and responds 503 if any
// fails. The plain-text body names the failing checks, e.g.
// "Service Unavailable: database, workers"; the JSON body carries the full
// per-check report.
func ReadinessHandler(checks Checks, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := runChecks(r.Context(), checks, cfg)
		if resp.Status == StatusHealthy {
			respond(w, r, http.StatusOK, resp, "OK")
			return
		}
		respond(w, r, http.StatusServiceUnavailable, resp,
			"Service Unavailable: "+strings.Join(resp.failing(), ", "))
	}
}

// failing returns the names of unhealthy checks, sorted.
func (r *Response) failing() []string {
	var names []string
	for name, c := range r.Checks {
		if c.Status == StatusUnhealthy {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// respond writes resp as JSON when the client asks for it (?format=json or
// an Accept header), text otherwise. Health responses are never cached.
func respond(w http.ResponseWriter, r *http.Request, status int, resp *Response, text string) {
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		WriteJSON(w, status, resp)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
