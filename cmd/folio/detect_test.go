package main

import "testing"

func TestDetectType(t *testing.T) {
	tests := []struct {
		path string
		head []byte
		want string
	}{
		{"cv.pdf", nil, "application/pdf"},
		{"portrait.png", nil, "image/png"},
		{"noext", []byte("%PDF-1.7"), "application/pdf"},
		{"noext", []byte("plain words"), "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		if got := detectType(tt.path, tt.head); got != tt.want {
			t.Errorf("detectType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
