package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cambista/fxhooks/internal/config"
	"github.com/cambista/fxhooks/internal/signature"
)

var reqCount atomic.Int64

func main() {
	cfg := config.FromEnv().FakeReceiver

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/hook", hookHandler(cfg))

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	log.Printf("fake-receiver listening on %s", cfg.Port)
	log.Fatal(srv.ListenAndServe())
}

func hookHandler(cfg config.FakeReceiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := reqCount.Add(1)
		b, _ := io.ReadAll(r.Body)
		defer r.Body.Close()

		if cfg.ResponseDelayMS > 0 {
			time.Sleep(time.Duration(cfg.ResponseDelayMS) * time.Millisecond)
		}

		if cfg.EndpointSecret != "" {
			if ok, msg := verifyDelivery(cfg.EndpointSecret, b, r.Header.Get(signature.SignatureHeader)); !ok {
				log.Printf("fake-receiver rejected delivery: %s", msg)
				http.Error(w, "invalid signature: "+msg, http.StatusUnauthorized)
				return
			}
		}

		// Simulate flakiness: first N requests -> 500
		if n <= int64(cfg.FailFirstN) {
			log.Printf("FAILING (%d/%d) event=%s id=%s body=%s",
				n, cfg.FailFirstN, r.Header.Get(signature.EventHeader), r.Header.Get(signature.IDHeader), truncate(string(b), 160))
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}

		log.Printf("fake-receiver OK event=%s id=%s body=%q",
			r.Header.Get(signature.EventHeader), r.Header.Get(signature.IDHeader), truncate(string(b), 160))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`ok`))
	}
}

// verifyDelivery recomputes the signature over the envelope's data
// field and compares it against the header value.
func verifyDelivery(secret string, body []byte, sigHeaderVal string) (bool, string) {
	if sigHeaderVal == "" {
		return false, "missing signature header"
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, "body is not a delivery envelope"
	}
	if !signature.Verify(envelope.Data, secret, sigHeaderVal) {
		return false, "sig mismatch"
	}
	return true, ""
}

// truncate truncates a string to the specified length and adds an ellipsis if truncated
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
