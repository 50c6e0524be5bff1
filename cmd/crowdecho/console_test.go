package main

import "testing"

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0f4b9e1c-aaaa-bbbb-cccc-000000000000", "0f4b9e1c"},
		{"run-abc", "run-abc"},
		{"12345678", "12345678"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummarizeQueries(t *testing.T) {
	short := []string{"a", "b"}
	if got := summarizeQueries(short); got != "a, b" {
		t.Errorf("summarizeQueries(short) = %q", got)
	}
	long := []string{"a", "b", "c", "d", "e", "f"}
	if got := summarizeQueries(long); got != "a, b, c, d, ... (6 total)" {
		t.Errorf("summarizeQueries(long) = %q", got)
	}
}
