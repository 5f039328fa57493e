package timeparsing

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		// Valid durations
		{
			name:  "6h is six hours",
			input: "6h",
			want:  6 * time.Hour,
		},
		{
			name:  "1d is twenty-four hours",
			input: "1d",
			want:  24 * time.Hour,
		},
		{
			name:  "7d is one week of hours",
			input: "7d",
			want:  168 * time.Hour,
		},
		{
			name:  "2w is fourteen days",
			input: "2w",
			want:  14 * 24 * time.Hour,
		},

		// Multi-digit amounts
		{
			name:  "365d",
			input: "365d",
			want:  365 * 24 * time.Hour,
		},
		{
			name:  "48h",
			input: "48h",
			want:  48 * time.Hour,
		},

		// Zero is syntactically valid; config validation rejects it later
		{
			name:  "0d parses",
			input: "0d",
			want:  0,
		},

		// Invalid inputs
		{
			name:    "negative durations are invalid",
			input:   "-1d",
			wantErr: true,
		},
		{
			name:    "signs are invalid",
			input:   "+6h",
			wantErr: true,
		},
		{
			name:    "months are not supported",
			input:   "3m",
			wantErr: true,
		},
		{
			name:    "years are not supported",
			input:   "1y",
			wantErr: true,
		},
		{
			name:    "bare number is invalid",
			input:   "7",
			wantErr: true,
		},
		{
			name:    "bare unit is invalid",
			input:   "d",
			wantErr: true,
		},
		{
			name:    "empty string is invalid",
			input:   "",
			wantErr: true,
		},
		{
			name:    "go-style composite is invalid",
			input:   "1h30m",
			wantErr: true,
		},
		{
			name:    "whitespace is invalid",
			input:   " 7d",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDuration(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCompactDuration(t *testing.T) {
	valid := []string{"6h", "1d", "2w", "30d"}
	for _, s := range valid {
		if !IsCompactDuration(s) {
			t.Errorf("IsCompactDuration(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "7", "d", "-1d", "1h30m", "tomorrow"}
	for _, s := range invalid {
		if IsCompactDuration(s) {
			t.Errorf("IsCompactDuration(%q) = true, want false", s)
		}
	}
}
