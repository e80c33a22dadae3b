package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct{ seen []observation }

func (o *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{method, route, status})
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/requests/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	mux.HandleFunc("GET /ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("fine"))
	})
	obs := &recordingObserver{}
	h := Instrument(obs)(mux)

	for _, path := range []string{"/api/v1/requests/6f1c", "/ok", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := []observation{
		{"GET", "GET /api/v1/requests/{id}", http.StatusConflict},
		{"GET", "GET /ok", http.StatusOK},
		{"GET", "unmatched", http.StatusNotFound},
	}
	if len(obs.seen) != len(want) {
		t.Fatalf("observations: got %d, want %d", len(obs.seen), len(want))
	}
	for i := range want {
		if obs.seen[i] != want[i] {
			t.Errorf("observation %d: got %+v, want %+v", i, obs.seen[i], want[i])
		}
	}
}
