package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureBody records the body the handler received after normalization.
func captureBody(t *testing.T, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var got map[string]any
	h := NormalizeSkillRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read normalized body: %v", err)
		}
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("normalized body is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

// ---------------------------------------------------------------------------
// hours_requested coercion
// ---------------------------------------------------------------------------

func TestNormalizeSkillRequest_Hours(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
	}{
		{"number", `{"hours_requested":3}`, 3},
		{"numeric string", `{"hours_requested":"5"}`, 5},
		{"padded string", `{"hours_requested":" 7 "}`, 7},
		{"whole float", `{"hours_requested":2.0}`, 2},
		{"absent defaults to one", `{}`, 1},
		{"null defaults to one", `{"hours_requested":null}`, 1},
		{"out of range passes through", `{"hours_requested":169}`, 169},
		{"zero passes through", `{"hours_requested":"0"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, got := captureBody(t, tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got["hours_requested"] != tc.want {
				t.Errorf("hours_requested: got %v, want %v", got["hours_requested"], tc.want)
			}
		})
	}
}

func TestNormalizeSkillRequest_RejectsNonWholeHours(t *testing.T) {
	for _, body := range []string{
		`{"hours_requested":"abc"}`,
		`{"hours_requested":2.5}`,
		`{"hours_requested":"1.5"}`,
		`{"hours_requested":true}`,
		`{"hours_requested":[1]}`,
		`{"hours_requested":1e20}`,
		`{"hours_requested":""}`,
		`{"hours_requested":"   "}`,
	} {
		t.Run(body, func(t *testing.T) {
			rec, _ := captureBody(t, body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "whole number") {
				t.Errorf("unexpected error body: %s", rec.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// provider alias
// ---------------------------------------------------------------------------

func TestNormalizeSkillRequest_ProviderAlias(t *testing.T) {
	rec, got := captureBody(t, `{"skill_id":"s","user_id":"legacy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got["provider_id"] != "legacy" {
		t.Errorf("provider_id: got %v, want legacy", got["provider_id"])
	}
	if _, ok := got["user_id"]; ok {
		t.Error("user_id should be removed after normalization")
	}

	_, got = captureBody(t, `{"provider_id":"explicit","user_id":"legacy"}`)
	if got["provider_id"] != "explicit" {
		t.Errorf("provider_id should win over alias, got %v", got["provider_id"])
	}
}

func TestNormalizeSkillRequest_InvalidJSON(t *testing.T) {
	for _, body := range []string{"", "{bad", "[]", "null"} {
		rec, _ := captureBody(t, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}
