package pagination_test

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/JaimeStill/agentflow/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	t.Setenv("TEST_MAX_PAGE", "200")
	t.Setenv("TEST_BAD_PAGE", "many")

	tests := []struct {
		name    string
		cfg     pagination.Config
		env     *pagination.Env
		want    pagination.Config
		wantErr string
	}{
		{
			name: "defaults",
			want: pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		},
		{
			name: "env overrides",
			env:  &pagination.Env{DefaultPageSize: "TEST_PAGE_SIZE", MaxPageSize: "TEST_MAX_PAGE"},
			want: pagination.Config{DefaultPageSize: 50, MaxPageSize: 200},
		},
		{
			name: "unparsable env ignored",
			cfg:  pagination.Config{DefaultPageSize: 10},
			env:  &pagination.Env{DefaultPageSize: "TEST_BAD_PAGE"},
			want: pagination.Config{DefaultPageSize: 10, MaxPageSize: 100},
		},
		{
			name:    "default exceeds max",
			cfg:     pagination.Config{DefaultPageSize: 200, MaxPageSize: 100},
			wantErr: "exceeds max_page_size",
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
			if cfg != tt.want {
				t.Errorf("config = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := defaultConfig()
	base.Merge(&pagination.Config{DefaultPageSize: 50})

	if base.DefaultPageSize != 50 || base.MaxPageSize != 100 {
		t.Errorf("merged = %+v, want {50 100}", base)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
		wantOffset   int
	}{
		{"zero values", pagination.PageRequest{}, 1, 20, 0},
		{"negative page", pagination.PageRequest{Page: -1, PageSize: 10}, 1, 10, 0},
		{"clamped to max", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100, 100},
		{"preserved", pagination.PageRequest{Page: 3, PageSize: 10}, 3, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Normalize(defaultConfig())
			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("normalized = page %d size %d, want page %d size %d",
					req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if got := req.Offset(); got != tt.wantOffset {
				t.Errorf("Offset() = %d, want %d", got, tt.wantOffset)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{
		"page":      {"2"},
		"page_size": {"15"},
		"search":    {"summary"},
		"sort":      {"name,-created_at"},
	}, defaultConfig())

	if req.Page != 2 || req.PageSize != 15 {
		t.Errorf("page = %d size = %d, want 2 and 15", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "summary" {
		t.Errorf("Search = %v, want summary", req.Search)
	}
	want := pagination.SortFields{{Field: "name"}, {Field: "created_at", Descending: true}}
	if !reflect.DeepEqual(req.Sort, want) {
		t.Errorf("Sort = %v, want %v", req.Sort, want)
	}

	req = pagination.PageRequestFromQuery(url.Values{"page": {"x"}}, defaultConfig())
	if req.Page != 1 || req.PageSize != 20 || req.Search != nil || req.Sort != nil {
		t.Errorf("defaults = %+v", req)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		page      int
		wantPages int
		wantMore  bool
	}{
		{"exact division", 100, 1, 5, true},
		{"remainder", 101, 6, 6, false},
		{"single page", 5, 1, 1, false},
		{"empty", 0, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tt.total, tt.page, 20)
			if result.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantPages)
			}
			if result.HasMore != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", result.HasMore, tt.wantMore)
			}
		})
	}

	empty := pagination.NewPageResult[string](nil, 0, 1, 20)
	raw, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"data":[]`) {
		t.Errorf("nil data encoded as %s", raw)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := pagination.SortFields{{Field: "name"}, {Field: "created_at", Descending: true}}

	for _, input := range []string{
		`"name,-created_at"`,
		`[{"field":"name"},{"field":"created_at","descending":true}]`,
	} {
		var sf pagination.SortFields
		if err := json.Unmarshal([]byte(input), &sf); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if !reflect.DeepEqual(sf, want) {
			t.Errorf("unmarshal %s = %v, want %v", input, sf, want)
		}
	}

	var sf pagination.SortFields
	if err := json.Unmarshal([]byte(`42`), &sf); err == nil {
		t.Error("expected error for numeric sort")
	}
}
