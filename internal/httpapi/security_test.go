package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	env := newTestAPI(t)
	res := env.do(t, http.MethodGet, "/healthz", "", nil)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	env := newTestAPI(t)
	res := env.do(t, http.MethodOptions, "/api/v1/exchange-sessions", "", nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	env := newTestAPI(t)
	veryLong := strings.Repeat("a", maxBodyBytes+1024)
	body := `{"sale_id":"` + veryLong + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange-sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.token(t, "ana", "seller"))
	res := httptest.NewRecorder()

	env.api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestDirectRefundNeedsManagerPIN(t *testing.T) {
	env := newTestAPIWithPIN(t, "482913")
	token := env.token(t, "ana", "seller")
	view := openExchange(t, env, token)

	res := env.do(t, http.MethodPatch, "/api/v1/exchange-sessions/"+view.ID, token, map[string]any{
		"return_quantities":  map[string]int{"si-1": 1},
		"reason":             "broken zipper",
		"issue_store_credit": false,
		"refunds":            []map[string]any{{"method": "cash", "amount": 50}},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on edit, got %d (%s)", res.Code, res.Body.String())
	}

	submit := "/api/v1/exchange-sessions/" + view.ID + "/submit"
	res = env.do(t, http.MethodPost, submit, token, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without pin, got %d", res.Code)
	}
	res = env.do(t, http.MethodPost, submit, token, map[string]string{"manager_pin": "000000"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong pin, got %d", res.Code)
	}
	res = env.do(t, http.MethodPost, submit, token, map[string]string{"manager_pin": "482913"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with manager pin, got %d (%s)", res.Code, res.Body.String())
	}
}

func TestManagerPINRateLimitReturns429(t *testing.T) {
	env := newTestAPIWithPIN(t, "482913")
	token := env.token(t, "ana", "seller")
	view := openExchange(t, env, token)
	res := env.do(t, http.MethodPatch, "/api/v1/exchange-sessions/"+view.ID, token, map[string]any{
		"return_quantities":  map[string]int{"si-1": 1},
		"reason":             "broken zipper",
		"issue_store_credit": false,
		"refunds":            []map[string]any{{"method": "pix", "amount": 50}},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on edit, got %d", res.Code)
	}

	for i := 0; i < 9; i++ {
		res := env.do(t, http.MethodPost, "/api/v1/exchange-sessions/"+view.ID+"/submit", token, map[string]string{"manager_pin": "000000"})
		if i < 8 && res.Code != http.StatusForbidden {
			t.Fatalf("attempt %d expected 403 before pin limit, got %d", i+1, res.Code)
		}
		if i == 8 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 9 expected 429, got %d", res.Code)
		}
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5400"
	if got := clientKey(req); got != "10.1.2.3" {
		t.Fatalf("expected host only, got %q", got)
	}
}
