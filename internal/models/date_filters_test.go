package models

import (
	"testing"
	"time"
)

func TestParseDateFilter(t *testing.T) {
	tests := []struct {
		value  string
		want   time.Time
		wantOK bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"  ", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDateFilter(tt.value)
		if ok != tt.wantOK || !got.Equal(tt.want) {
			t.Errorf("ParseDateFilter(%q) = %v, %v, want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParsePublishedAt(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2024-03-05T10:30:00Z", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"Tue, 05 Mar 2024 10:30:00 +0000", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"not a date", time.Time{}},
	}

	for _, tt := range tests {
		if got := ParsePublishedAt(tt.value); !got.Equal(tt.want) {
			t.Errorf("ParsePublishedAt(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
