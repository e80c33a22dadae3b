package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/skillsvault/backend/internal/httpx"
)

// DefaultRequestHours is used when a skill request omits hours_requested.
const DefaultRequestHours = 1

var errHoursNotWhole = errors.New("hours_requested must be a whole number")

// NormalizeSkillRequest rewrites a create-request body into its canonical
// shape before the handler sees it: the legacy user_id field becomes
// provider_id, and hours_requested becomes a JSON integer (numeric strings are
// accepted, a missing value defaults to one hour). The body is replaced so
// downstream handlers can read it again.
func NormalizeSkillRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "failed to read body")
			return
		}

		dec := json.NewDecoder(bytes.NewReader(bodyBytes))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil || fields == nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if alias, ok := fields["user_id"]; ok {
			if cur, _ := fields["provider_id"].(string); cur == "" {
				fields["provider_id"] = alias
			}
			delete(fields, "user_id")
		}

		hours, err := coerceHours(fields["hours_requested"])
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		fields["hours_requested"] = hours

		normalized, err := json.Marshal(fields)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(normalized))
		r.ContentLength = int64(len(normalized))
		next.ServeHTTP(w, r)
	})
}

// coerceHours accepts a JSON number or a numeric string holding a whole
// number. Only an absent or null value takes the default; a blank string is
// rejected. Range checks are left to the request service.
func coerceHours(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return DefaultRequestHours, nil
	case json.Number:
		return wholeNumber(x.String())
	case string:
		return wholeNumber(strings.TrimSpace(x))
	default:
		return 0, errHoursNotWhole
	}
}

func wholeNumber(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errHoursNotWhole
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errHoursNotWhole
	}
	return int64(f), nil
}
