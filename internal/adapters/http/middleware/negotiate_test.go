package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		ctype  string
		want   bool
	}{
		{"no headers", "", "", false},
		{"json accept", "application/json", "", true},
		{"json body", "", "application/json; charset=utf-8", true},
		{"browser", "text/html,application/xhtml+xml,*/*;q=0.8", "", false},
		{"browser posting json", "text/html", "application/json", false},
		{"form body", "", "application/x-www-form-urlencoded", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/register", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			if got := WantsJSON(req); got != tt.want {
				t.Errorf("WantsJSON = %v, want %v", got, tt.want)
			}
		})
	}
}
