package storage

import (
	"testing"
	"time"
)

func TestBuildKey(t *testing.T) {
	now := time.UnixMilli(1717243200123)

	key := BuildKey("A@X.com", "photo.png", now)
	want := "a@x.com/1717243200123_photo.png"
	if key != want {
		t.Errorf("BuildKey = %q, want %q", key, want)
	}

	if !ValidateKey("A@X.com", key) {
		t.Error("BuildKey output failed ValidateKey for the same uploader")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name  string
		email string
		key   string
		want  bool
	}{
		{"own key", "a@x.com", "a@x.com/123_photo.png", true},
		{"uppercase caller email", "A@X.com", "a@x.com/123_photo.png", true},
		{"someone else's key", "a@x.com", "b@x.com/123_photo.png", false},
		{"prefix without separator", "a@x.com", "a@x.com123_photo.png", false},
		{"bare prefix", "a@x.com", "a@x.com/", false},
		{"empty key", "a@x.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateKey(tt.email, tt.key); got != tt.want {
				t.Errorf("ValidateKey(%q, %q) = %v, want %v", tt.email, tt.key, got, tt.want)
			}
		})
	}
}
