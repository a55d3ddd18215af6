package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/storyboard/pkg/provider/tts"
	ttsmock "github.com/MrWong99/storyboard/pkg/provider/tts/mock"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return res
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "broken", Check: func(context.Context) error { return errors.New("down") }})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if res := decode(t, rec); res.Status != "ok" || res.Checks != nil {
		t.Errorf("body = %+v", res)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	var nilTTS tts.Provider
	var nilMock *ttsmock.Provider

	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name:       "configured providers",
			checkers:   []Checker{Configured("llm", "x"), Configured("tts", &ttsmock.Provider{})},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"llm": "ok", "tts": "ok"},
		},
		{
			name:       "nil interface",
			checkers:   []Checker{Configured("tts", nilTTS)},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"tts": "fail: not configured"},
		},
		{
			name:       "typed nil pointer",
			checkers:   []Checker{Configured("tts", nilMock)},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"tts": "fail: not configured"},
		},
		{
			name: "one failing",
			checkers: []Checker{
				{Name: "llm", Check: func(context.Context) error { return nil }},
				{Name: "image", Check: func(context.Context) error { return errors.New("quota") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"llm": "ok", "image": "fail: quota"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			New(tt.checkers...).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			res := decode(t, rec)
			if len(res.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", res.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if res.Checks[k] != v {
					t.Errorf("checks[%q] = %q, want %q", k, res.Checks[k], v)
				}
			}
		})
	}
}

func TestReadyz_CheckSeesDeadline(t *testing.T) {
	t.Parallel()
	var hasDeadline bool
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}})
	h.Readyz(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if !hasDeadline {
		t.Error("checker context should carry a deadline")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz = %d, want 405", rec.Code)
	}
}
