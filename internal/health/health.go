package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is anything whose connectivity can be probed. Both the
// in-memory and the postgres endpoint stores satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Store   bool   `json:"store,omitempty"`
}

// HTTPHandler returns an HTTP handler that reports the health status of
// the service. A nil store skips the probe.
func HTTPHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Status{OK: true, Message: "ok", Store: true}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				st.OK = false
				st.Message = "store ping failed"
				st.Store = false
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}
