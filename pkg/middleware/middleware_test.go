package middleware_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/agentflow/pkg/middleware"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestApplyOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mw := middleware.New()
	mw.Use(tag("first"), tag("second"))
	mw.Use(tag("third"))

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "third", "handler"}
	if !slices.Equal(order, want) {
		t.Errorf("order: got %v, want %v", order, want)
	}
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"error value", errors.New("boom")},
		{"string value", "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Recover(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/agents", nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, `"kind":"Internal"`) || !strings.Contains(body, "boom") {
				t.Errorf("body: got %s", body)
			}
		})
	}
}

func TestRecoverAbortHandler(t *testing.T) {
	handler := middleware.Recover(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", v)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"implicit ok", 0, "level=INFO"},
		{"not found", http.StatusNotFound, "level=WARN"},
		{"server error", http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				w.Write([]byte("body"))
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/runs?x=1", nil))

			out := buf.String()
			want := tt.status
			if want == 0 {
				want = http.StatusOK
			}
			for _, s := range []string{tt.wantLevel, "uri=\"/runs?x=1\"", "bytes=4", fmt.Sprintf("status=%d", want)} {
				if !strings.Contains(out, s) {
					t.Errorf("log %q missing %q", out, s)
				}
			}
		})
	}
}

func corsConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         600,
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         func() *middleware.CORSConfig
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantHeaders map[string]string
	}{
		{
			name:       "disabled",
			cfg:        func() *middleware.CORSConfig { return &middleware.CORSConfig{} },
			method:     "GET",
			origin:     "http://example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed origin",
			cfg:        corsConfig,
			method:     "GET",
			origin:     "http://example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "http://example.com",
			wantHeaders: map[string]string{
				"Vary":                          "Origin",
				"Access-Control-Expose-Headers": "X-Run-ID",
			},
		},
		{
			name:       "disallowed origin passes through",
			cfg:        corsConfig,
			method:     "GET",
			origin:     "http://evil.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight allowed",
			cfg:        corsConfig,
			method:     "OPTIONS",
			origin:     "http://example.com",
			preflight:  true,
			wantStatus: http.StatusNoContent,
			wantOrigin: "http://example.com",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods": "GET, POST",
				"Access-Control-Allow-Headers": "Content-Type",
				"Access-Control-Max-Age":       "600",
			},
		},
		{
			name:       "preflight disallowed",
			cfg:        corsConfig,
			method:     "OPTIONS",
			origin:     "http://evil.com",
			preflight:  true,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "wildcard origin",
			cfg: func() *middleware.CORSConfig {
				c := corsConfig()
				c.Origins = []string{"*"}
				return c
			},
			method:     "GET",
			origin:     "http://anything.dev",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
		},
		{
			name: "credentials echo origin",
			cfg: func() *middleware.CORSConfig {
				c := corsConfig()
				c.AllowCredentials = true
				return c
			},
			method:     "GET",
			origin:     "http://example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "http://example.com",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Credentials": "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(tt.cfg())(http.HandlerFunc(ok))

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin: got %q, want %q", got, tt.wantOrigin)
			}
			for k, v := range tt.wantHeaders {
				if got := rec.Header().Get(k); got != v {
					t.Errorf("%s: got %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.com, http://b.com,")
	t.Setenv("TEST_CORS_MAX_AGE", "120")

	tests := []struct {
		name    string
		cfg     middleware.CORSConfig
		env     *middleware.CORSEnv
		check   func(t *testing.T, c middleware.CORSConfig)
		wantErr string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c middleware.CORSConfig) {
				if len(c.AllowedMethods) != 5 || len(c.AllowedHeaders) != 2 || c.MaxAge != 3600 {
					t.Errorf("defaults = %+v", c)
				}
			},
		},
		{
			name: "env overrides",
			env: &middleware.CORSEnv{
				Enabled: "TEST_CORS_ENABLED",
				Origins: "TEST_CORS_ORIGINS",
				MaxAge:  "TEST_CORS_MAX_AGE",
			},
			check: func(t *testing.T, c middleware.CORSConfig) {
				if !c.Enabled || c.MaxAge != 120 {
					t.Errorf("config = %+v", c)
				}
				if !slices.Equal(c.Origins, []string{"http://a.com", "http://b.com"}) {
					t.Errorf("origins = %v", c.Origins)
				}
			},
		},
		{
			name:    "wildcard with credentials",
			cfg:     middleware.CORSConfig{Origins: []string{"*"}, AllowCredentials: true},
			wantErr: "wildcard",
		},
		{
			name:    "negative max age",
			cfg:     middleware.CORSConfig{MaxAge: -1},
			wantErr: "max_age",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Finalize(tt.env)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := *corsConfig()
	base.Merge(&middleware.CORSConfig{
		Enabled:        false,
		Origins:        []string{"http://other.com"},
		ExposedHeaders: []string{},
	})

	if base.Enabled {
		t.Error("enabled should follow overlay")
	}
	if !slices.Equal(base.Origins, []string{"http://other.com"}) {
		t.Errorf("origins = %v", base.Origins)
	}
	if len(base.ExposedHeaders) != 0 {
		t.Errorf("exposed headers = %v, want cleared", base.ExposedHeaders)
	}
	if !slices.Equal(base.AllowedMethods, []string{"GET", "POST"}) || base.MaxAge != 600 {
		t.Errorf("unset overlay fields changed: %+v", base)
	}
}

func TestMaxBytes(t *testing.T) {
	handler := middleware.MaxBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		body string
		want int
	}{
		{"short", http.StatusOK},
		{"much too long", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
