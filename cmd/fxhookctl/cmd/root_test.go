package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func withTestServer(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	oldAddr, oldTimeout, oldToken, oldJSON := serverAddr, timeout, jwtToken, outputJSON
	serverAddr = srv.URL
	timeout = 5 * time.Second
	t.Cleanup(func() {
		serverAddr, timeout, jwtToken, outputJSON = oldAddr, oldTimeout, oldToken, oldJSON
	})
}

func TestMakeRequestSetsHeaders(t *testing.T) {
	var gotAuth, gotContentType string
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	jwtToken = "tok123"

	resp, err := makeRequest("POST", "/v1/events", map[string]string{"event": "user.registered"})
	if err != nil {
		t.Fatalf("makeRequest: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestMakeRequestOmitsBodyHeaders(t *testing.T) {
	var gotContentType string
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))

	resp, err := makeRequest("GET", "/v1/stats", nil)
	if err != nil {
		t.Fatalf("makeRequest: %v", err)
	}
	resp.Body.Close()

	if gotContentType != "" {
		t.Errorf("Content-Type = %q, want empty for bodyless request", gotContentType)
	}
}

func TestDoJSONDecodesResponse(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"event": "user.registered", "deliveries_scheduled": 3})
	}))

	var out struct {
		Event     string `json:"event"`
		Scheduled int    `json:"deliveries_scheduled"`
	}
	if err := doJSON("POST", "/v1/events", map[string]string{"event": "user.registered"}, &out); err != nil {
		t.Fatalf("doJSON: %v", err)
	}
	if out.Event != "user.registered" || out.Scheduled != 3 {
		t.Errorf("decoded %+v, want event user.registered scheduled 3", out)
	}
}

func TestDoJSONErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   "endpoint not found",
			want:   "404",
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   "an endpoint with this URL already exists",
			want:   "409",
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   "endpoint URL is invalid",
			want:   "400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, tt.status)
			}))

			err := doJSON("GET", "/v1/endpoints/nope", nil, nil)
			if err == nil {
				t.Fatal("expected error for status", tt.status)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention status %s", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.body) {
				t.Errorf("error %q does not carry server message %q", err, tt.body)
			}
		})
	}
}

func TestDoJSONNilOut(t *testing.T) {
	withTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := doJSON("DELETE", "/v1/endpoints/ep_1", nil, nil); err != nil {
		t.Fatalf("doJSON with nil out: %v", err)
	}
}
