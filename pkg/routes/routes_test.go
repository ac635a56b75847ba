package routes_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/agentflow/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func testGroups() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/agents",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: status(http.StatusOK)},
				{Method: "POST", Pattern: "/{id}/run", Handler: status(http.StatusAccepted)},
			},
			Children: []routes.Group{
				{
					Prefix: "/{id}/nodes",
					Routes: []routes.Route{
						{Method: "GET", Pattern: "", Handler: status(http.StatusTeapot)},
					},
				},
			},
		},
		{
			Prefix: "/runs",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/{run_id}/checkpoints", Handler: status(http.StatusOK)},
			},
		},
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	patterns := routes.Register(mux, testGroups()...)

	want := []string{
		"GET /agents",
		"POST /agents/{id}/run",
		"GET /agents/{id}/nodes",
		"GET /runs/{run_id}/checkpoints",
	}
	if !slices.Equal(patterns, want) {
		t.Errorf("patterns = %v, want %v", patterns, want)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", "GET", "/agents", http.StatusOK},
		{"run", "POST", "/agents/a1/run", http.StatusAccepted},
		{"nested", "GET", "/agents/a1/nodes", http.StatusTeapot},
		{"second group", "GET", "/runs/r1/checkpoints", http.StatusOK},
		{"wrong method", "GET", "/agents/a1/run", http.StatusMethodNotAllowed},
		{"unknown", "GET", "/projects", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWalkEmpty(t *testing.T) {
	var n int
	routes.Walk(func(string, http.HandlerFunc) { n++ })
	if n != 0 {
		t.Errorf("visited %d routes, want 0", n)
	}
}
