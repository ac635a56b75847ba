package formatting_test

import (
	"testing"

	"github.com/JaimeStill/agentflow/pkg/formatting"
)

const (
	kb = int64(1024)
	mb = kb * 1024
	gb = mb * 1024
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"512B", 512, false},
		{"1KB", kb, false},
		{"50MB", 50 * mb, false},
		{"10mb", 10 * mb, false},
		{"1.5 GiB", gb + gb/2, false},
		{"4KiB", 4 * kb, false},
		{"  100 MB  ", 100 * mb, false},
		{"0", 0, false},
		{"", 0, true},
		{"MB", 0, true},
		{"-5MB", 0, true},
		{"50XX", 0, true},
		{"1.MB", 0, true},
		{"9000000EB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{500, 3, "500 B"},
		{kb, 0, "1 KB"},
		{1536 * kb, 1, "1.5 MB"},
		{50 * mb, 0, "50 MB"},
		{gb, -1, "1 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

func TestFormatBytesParses(t *testing.T) {
	for _, n := range []int64{kb, 50 * mb, gb, 1024 * gb} {
		formatted := formatting.FormatBytes(n, 0)
		parsed, err := formatting.ParseBytes(formatted)
		if err != nil || parsed != n {
			t.Errorf("%d formatted as %q parsed back to %d (%v)", n, formatted, parsed, err)
		}
	}
}
